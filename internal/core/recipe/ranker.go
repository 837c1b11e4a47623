package recipe

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fridge-keeper/internal/infrastructure/config"
	"fridge-keeper/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// 以食材覆蓋率排序：2 = 優先最小化缺少的食材
const rankingMinimizeMissing = "2"

// Ranker 食譜推薦服務
// 以正規化後的搜尋詞呼叫 Spoonacular，回傳按食材覆蓋率排序的候選食譜；
// API Key 由建構時注入，不讀取全域狀態
type Ranker struct {
	client *resty.Client
	apiKey string
}

// searchResult Spoonacular findByIngredients 回應項目
type searchResult struct {
	ID                    int    `json:"id"`
	Title                 string `json:"title"`
	Image                 string `json:"image"`
	UsedIngredientCount   int    `json:"usedIngredientCount"`
	MissedIngredientCount int    `json:"missedIngredientCount"`
}

// detailResult Spoonacular 食譜詳細回應（只取用到的子集）
type detailResult struct {
	ID                  int    `json:"id"`
	Title               string `json:"title"`
	Image               string `json:"image"`
	ReadyInMinutes      int    `json:"readyInMinutes"`
	Servings            int    `json:"servings"`
	Summary             string `json:"summary"`
	Instructions        string `json:"instructions"`
	SourceURL           string `json:"sourceUrl"`
	ExtendedIngredients []struct {
		Original string `json:"original"`
	} `json:"extendedIngredients"`
}

// NewRanker 創建食譜推薦服務
func NewRanker(cfg config.SpoonacularConfig) *Ranker {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &Ranker{
		client: client,
		apiKey: cfg.APIKey,
	}
}

// Search 以搜尋詞查詢候選食譜，limit 限制回傳數量
// 任何傳輸或解析失敗都記錄後降級為空清單，不會把錯誤往上拋；
// 呼叫端不應以空搜尋詞呼叫（此處的防禦檢查只攔呼叫端臭蟲）
func (r *Ranker) Search(ctx context.Context, tokens []string, limit int) []common.RecipeCandidate {
	if len(tokens) == 0 {
		common.LogError("搜尋詞為空，呼叫端應先檢查再呼叫")
		return nil
	}
	if limit <= 0 {
		limit = 1
	}

	start := time.Now()
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ingredients":  strings.Join(tokens, ","),
			"number":       strconv.Itoa(limit),
			"ranking":      rankingMinimizeMissing,
			"ignorePantry": "true",
			"apiKey":       r.apiKey,
		}).
		Get("/recipes/findByIngredients")
	common.LogUpstreamCall("spoonacular", "findByIngredients", time.Since(start), err)

	if err != nil {
		common.LogWarn("食譜搜尋失敗，回傳空清單", zap.Error(err))
		return nil
	}
	if resp.StatusCode() != http.StatusOK {
		common.LogWarn("食譜搜尋回應異常，回傳空清單",
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil
	}

	var results []searchResult
	if err := common.ParseJSONBytes(resp.Body(), &results); err != nil {
		common.LogWarn("食譜搜尋回應解析失敗，回傳空清單", zap.Error(err))
		return nil
	}

	candidates := make([]common.RecipeCandidate, len(results))
	for i, res := range results {
		candidates[i] = common.RecipeCandidate{
			ID:                    res.ID,
			Title:                 res.Title,
			Image:                 res.Image,
			UsedIngredientCount:   res.UsedIngredientCount,
			MissedIngredientCount: res.MissedIngredientCount,
		}
	}

	common.LogInfo("食譜搜尋成功",
		zap.Int("token_count", len(tokens)),
		zap.Int("candidate_count", len(candidates)),
	)
	return candidates
}

// Detail 取得單一食譜的詳細內容，失敗時回傳 nil（視為暫時無法取得）
func (r *Ranker) Detail(ctx context.Context, recipeID int) *common.RecipeDetail {
	if recipeID <= 0 {
		common.LogError("食譜 ID 無效，呼叫端應先檢查再呼叫",
			zap.Int("recipe_id", recipeID),
		)
		return nil
	}

	start := time.Now()
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParam("apiKey", r.apiKey).
		Get(fmt.Sprintf("/recipes/%d/information", recipeID))
	common.LogUpstreamCall("spoonacular", "information", time.Since(start), err)

	if err != nil {
		common.LogWarn("食譜詳細查詢失敗",
			zap.Int("recipe_id", recipeID),
			zap.Error(err),
		)
		return nil
	}
	if resp.StatusCode() != http.StatusOK {
		common.LogWarn("食譜詳細回應異常",
			zap.Int("recipe_id", recipeID),
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil
	}

	var result detailResult
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		common.LogWarn("食譜詳細回應解析失敗",
			zap.Int("recipe_id", recipeID),
			zap.Error(err),
		)
		return nil
	}

	ingredients := make([]string, len(result.ExtendedIngredients))
	for i, ing := range result.ExtendedIngredients {
		ingredients[i] = ing.Original
	}

	return &common.RecipeDetail{
		ID:             result.ID,
		Title:          result.Title,
		Image:          result.Image,
		ReadyInMinutes: result.ReadyInMinutes,
		Servings:       result.Servings,
		Summary:        sanitizeRichText(result.Summary),
		Ingredients:    ingredients,
		Instructions:   sanitizeRichText(result.Instructions),
		SourceURL:      result.SourceURL,
	}
}
