package recipes

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"fridge-keeper/internal/core/expiry"
	"fridge-keeper/internal/core/recipe"
	"fridge-keeper/internal/infrastructure/config"
	"fridge-keeper/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecipeFinder 食譜搜尋介面
type RecipeFinder interface {
	Search(ctx context.Context, tokens []string, limit int) []common.RecipeCandidate
	Detail(ctx context.Context, recipeID int) *common.RecipeDetail
}

// InventoryReader 供推薦流程讀取庫存快照
type InventoryReader interface {
	GetAll(ctx context.Context) ([]common.Product, error)
}

// Handler 食譜處理程序
type Handler struct {
	finder RecipeFinder
	store  InventoryReader
	cfg    config.RecipesConfig
	now    func() time.Time
}

// NewHandler 創建食譜處理程序
func NewHandler(finder RecipeFinder, store InventoryReader, cfg config.RecipesConfig) *Handler {
	return &Handler{
		finder: finder,
		store:  store,
		cfg:    cfg,
		now:    time.Now,
	}
}

// SuggestionsResponse 推薦結果
type SuggestionsResponse struct {
	Recipes         []common.RecipeCandidate `json:"recipes"`
	IngredientCount int                      `json:"ingredient_count"`
	ExpiringOnly    bool                     `json:"expiring_only"`
	Message         string                   `json:"message,omitempty"`
}

// HandleSuggestions 依庫存推薦食譜
// 流程：篩選即將到期的產品 → 按到期日排序 → 轉成搜尋詞 → 查詢候選食譜
// 搜尋詞為空時直接回空清單，不呼叫外部搜尋
func (h *Handler) HandleSuggestions(c *gin.Context) {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = common.GenerateUUID()
		c.Header("X-Request-ID", requestID)
	}

	limit := h.cfg.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	// 預設只用即將到期的產品，帶 expiring_only=false 才納入整個庫存
	expiringOnly := true
	if raw := c.Query("expiring_only"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expiring_only"})
			return
		}
		expiringOnly = parsed
	}

	common.LogInfo("開始處理食譜推薦",
		zap.String("request_id", requestID),
		zap.Bool("expiring_only", expiringOnly),
		zap.Int("limit", limit),
	)

	products, err := h.store.GetAll(c.Request.Context())
	if err != nil {
		common.LogError("讀取庫存失敗",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read inventory"})
		return
	}

	selected := products
	if expiringOnly {
		selected = expiry.FilterExpiringWithin(
			expiry.SortByExpiry(products),
			h.cfg.ExpiringWindowDays,
			h.now(),
		)
	}

	if len(selected) == 0 {
		c.JSON(http.StatusOK, SuggestionsResponse{
			Recipes:      []common.RecipeCandidate{},
			ExpiringOnly: expiringOnly,
			Message:      "no products to suggest recipes for",
		})
		return
	}

	tokens := recipe.NormalizeIngredients(selected)
	if len(tokens) == 0 {
		// 名稱全被清掉時不呼叫外部搜尋
		common.LogInfo("無法從產品名稱萃取食材",
			zap.String("request_id", requestID),
			zap.Int("product_count", len(selected)),
		)
		c.JSON(http.StatusOK, SuggestionsResponse{
			Recipes:      []common.RecipeCandidate{},
			ExpiringOnly: expiringOnly,
			Message:      "could not extract ingredients from products",
		})
		return
	}

	candidates := h.finder.Search(c.Request.Context(), tokens, limit)
	if candidates == nil {
		candidates = []common.RecipeCandidate{}
	}

	common.LogInfo("食譜推薦完成",
		zap.String("request_id", requestID),
		zap.Int("ingredient_count", len(tokens)),
		zap.Int("recipe_count", len(candidates)),
	)

	c.JSON(http.StatusOK, SuggestionsResponse{
		Recipes:         candidates,
		IngredientCount: len(tokens),
		ExpiringOnly:    expiringOnly,
	})
}

// HandleDetail 取得單一食譜詳細內容
func (h *Handler) HandleDetail(c *gin.Context) {
	recipeID, err := strconv.Atoi(c.Param("id"))
	if err != nil || recipeID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipe id"})
		return
	}

	detail := h.finder.Detail(c.Request.Context(), recipeID)
	if detail == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Recipe unavailable",
			"code":  common.ErrRecipeUnavailable.Code,
		})
		return
	}

	c.JSON(http.StatusOK, detail)
}
