package recipe

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"fridge-keeper/internal/pkg/common"
)

// 產品名稱中常見的包裝／修飾詞，轉成搜尋詞前先移除
var stopWords = []string{"organic", "fresh", "pack", "bottle", "can", "jar", "box"}

// 每個停用詞一條全字比對、不分大小寫的規則；部分比對不移除
var stopWordPatterns = compileStopWords(stopWords)

func compileStopWords(words []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		patterns[i] = regexp.MustCompile(`(?i)\b` + w + `\b`)
	}
	return patterns
}

// NormalizeIngredients 將產品清單轉成食譜搜尋詞，每個產品至多一個；
// 清理後為空的結果會被丟棄，輸出長度不大於輸入長度
func NormalizeIngredients(products []common.Product) []string {
	var tokens []string
	for _, p := range products {
		if token := normalizeName(p.Name); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// normalizeName 從產品名稱推導搜尋詞：
// 轉小寫、移除停用詞、丟棄長度不超過 2 的字、取前兩個字
// 這是啟發式處理而非語言解析，多字食材名可能被截斷（如
// "extra virgin olive oil" 變成 "extra virgin"），屬已知限制
func normalizeName(name string) string {
	cleaned := strings.ToLower(name)
	for _, pattern := range stopWordPatterns {
		cleaned = pattern.ReplaceAllString(cleaned, "")
	}

	var kept []string
	for _, word := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(word) <= 2 {
			continue
		}
		kept = append(kept, word)
		if len(kept) == 2 {
			break
		}
	}

	return strings.TrimSpace(strings.Join(kept, " "))
}
