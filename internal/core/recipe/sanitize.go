package recipe

import "regexp"

// 上游的 summary 與 instructions 是未受信任的富文本，
// 輸出前移除可執行內容；其餘標記原樣保留交給呈現層處理
var (
	scriptPattern    = regexp.MustCompile(`(?is)<script\b.*?</script>`)
	stylePattern     = regexp.MustCompile(`(?is)<style\b.*?</style>`)
	eventAttrPattern = regexp.MustCompile(`(?i)\s+on[a-z]+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
	jsURLPattern     = regexp.MustCompile(`(?i)(href|src)\s*=\s*["']?\s*javascript:[^"'>\s]*["']?`)
)

// sanitizeRichText 移除 script/style 區塊、行內事件屬性與 javascript: 連結
func sanitizeRichText(s string) string {
	s = scriptPattern.ReplaceAllString(s, "")
	s = stylePattern.ReplaceAllString(s, "")
	s = eventAttrPattern.ReplaceAllString(s, "")
	s = jsURLPattern.ReplaceAllString(s, "")
	return s
}
