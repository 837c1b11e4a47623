package recipes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	invstore "fridge-keeper/internal/core/inventory"
	"fridge-keeper/internal/infrastructure/config"
	"fridge-keeper/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeFinder 記錄收到的搜尋詞並回應固定結果
type fakeFinder struct {
	candidates  []common.RecipeCandidate
	detail      *common.RecipeDetail
	gotTokens   []string
	gotLimit    int
	searchCalls int
}

func (f *fakeFinder) Search(ctx context.Context, tokens []string, limit int) []common.RecipeCandidate {
	f.searchCalls++
	f.gotTokens = tokens
	f.gotLimit = limit
	return f.candidates
}

func (f *fakeFinder) Detail(ctx context.Context, recipeID int) *common.RecipeDetail {
	return f.detail
}

// failingStore 模擬儲存後端故障
type failingStore struct{}

func (failingStore) GetAll(ctx context.Context) ([]common.Product, error) {
	return nil, errors.New("backend down")
}

func testConfig() config.RecipesConfig {
	return config.RecipesConfig{DefaultLimit: 12, ExpiringWindowDays: 7}
}

func newTestRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.GET("/api/v1/recipes/suggestions", h.HandleSuggestions)
	router.GET("/api/v1/recipes/:id", h.HandleDetail)
	return router
}

func doRequest(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func seededStore(t *testing.T) *invstore.MemoryStore {
	t.Helper()
	store := invstore.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, common.Product{
		Barcode:    "1",
		Name:       "Organic Fresh Apple Juice Bottle",
		ExpiryDate: common.NewDate(2025, time.March, 12),
	}))
	require.NoError(t, store.Add(ctx, common.Product{
		Barcode:    "2",
		Name:       "Cheddar Cheese Block",
		ExpiryDate: common.NewDate(2025, time.June, 1),
	}))
	return store
}

func fixedNow() time.Time {
	return time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
}

func TestHandleSuggestions(t *testing.T) {
	finder := &fakeFinder{candidates: []common.RecipeCandidate{
		{ID: 101, Title: "Apple Crumble", UsedIngredientCount: 1, MissedIngredientCount: 2},
	}}
	h := NewHandler(finder, seededStore(t), testConfig())
	h.now = fixedNow
	router := newTestRouter(h)

	w := doRequest(router, "/api/v1/recipes/suggestions")

	require.Equal(t, http.StatusOK, w.Code)
	var resp SuggestionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	// 預設只用七天內到期的產品：起司六月才到期，不進搜尋詞
	assert.Equal(t, []string{"apple juice"}, finder.gotTokens)
	assert.Equal(t, 12, finder.gotLimit)
	assert.True(t, resp.ExpiringOnly)
	assert.Equal(t, 1, resp.IngredientCount)
	require.Len(t, resp.Recipes, 1)
	assert.Equal(t, "Apple Crumble", resp.Recipes[0].Title)
	assert.Empty(t, resp.Message)
}

func TestHandleSuggestionsAllProducts(t *testing.T) {
	finder := &fakeFinder{}
	h := NewHandler(finder, seededStore(t), testConfig())
	h.now = fixedNow
	router := newTestRouter(h)

	w := doRequest(router, "/api/v1/recipes/suggestions?expiring_only=false")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"apple juice", "cheddar cheese"}, finder.gotTokens)
}

func TestHandleSuggestionsCustomLimit(t *testing.T) {
	finder := &fakeFinder{}
	h := NewHandler(finder, seededStore(t), testConfig())
	h.now = fixedNow
	router := newTestRouter(h)

	w := doRequest(router, "/api/v1/recipes/suggestions?limit=5")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, finder.gotLimit)
}

func TestHandleSuggestionsInvalidParams(t *testing.T) {
	h := NewHandler(&fakeFinder{}, seededStore(t), testConfig())
	h.now = fixedNow
	router := newTestRouter(h)

	for _, path := range []string{
		"/api/v1/recipes/suggestions?limit=0",
		"/api/v1/recipes/suggestions?limit=-1",
		"/api/v1/recipes/suggestions?limit=abc",
		"/api/v1/recipes/suggestions?expiring_only=maybe",
	} {
		w := doRequest(router, path)
		assert.Equal(t, http.StatusBadRequest, w.Code, "path=%s", path)
	}
}

func TestHandleSuggestionsEmptyInventory(t *testing.T) {
	finder := &fakeFinder{}
	h := NewHandler(finder, invstore.NewMemoryStore(), testConfig())
	h.now = fixedNow
	router := newTestRouter(h)

	w := doRequest(router, "/api/v1/recipes/suggestions")

	require.Equal(t, http.StatusOK, w.Code)
	var resp SuggestionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Recipes)
	assert.NotEmpty(t, resp.Message)
	assert.Equal(t, 0, finder.searchCalls)
}

func TestHandleSuggestionsNoExtractableTokens(t *testing.T) {
	store := invstore.NewMemoryStore()
	require.NoError(t, store.Add(context.Background(), common.Product{
		Barcode:    "1",
		Name:       "Jar", // 全是停用詞，清理後為空
		ExpiryDate: common.NewDate(2025, time.March, 12),
	}))

	finder := &fakeFinder{}
	h := NewHandler(finder, store, testConfig())
	h.now = fixedNow
	router := newTestRouter(h)

	w := doRequest(router, "/api/v1/recipes/suggestions")

	require.Equal(t, http.StatusOK, w.Code)
	var resp SuggestionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Recipes)
	assert.NotEmpty(t, resp.Message)

	// 搜尋詞為空時不應呼叫外部搜尋
	assert.Equal(t, 0, finder.searchCalls)
}

func TestHandleSuggestionsSearchDegradesToEmpty(t *testing.T) {
	// 外部搜尋失敗時 finder 回傳 nil，回應仍為空清單而非錯誤
	finder := &fakeFinder{candidates: nil}
	h := NewHandler(finder, seededStore(t), testConfig())
	h.now = fixedNow
	router := newTestRouter(h)

	w := doRequest(router, "/api/v1/recipes/suggestions")

	require.Equal(t, http.StatusOK, w.Code)
	var resp SuggestionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Recipes)
	assert.Empty(t, resp.Recipes)
	assert.Equal(t, 1, finder.searchCalls)
}

func TestHandleSuggestionsStoreFailure(t *testing.T) {
	h := NewHandler(&fakeFinder{}, failingStore{}, testConfig())
	h.now = fixedNow
	router := newTestRouter(h)

	w := doRequest(router, "/api/v1/recipes/suggestions")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandleDetail(t *testing.T) {
	finder := &fakeFinder{detail: &common.RecipeDetail{
		ID:          101,
		Title:       "Apple Crumble",
		Ingredients: []string{"3 apples"},
	}}
	h := NewHandler(finder, invstore.NewMemoryStore(), testConfig())
	router := newTestRouter(h)

	w := doRequest(router, "/api/v1/recipes/101")

	require.Equal(t, http.StatusOK, w.Code)
	var got common.RecipeDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Apple Crumble", got.Title)
}

func TestHandleDetailUnavailable(t *testing.T) {
	h := NewHandler(&fakeFinder{}, invstore.NewMemoryStore(), testConfig())
	router := newTestRouter(h)

	w := doRequest(router, "/api/v1/recipes/999")

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "RECIPE_UNAVAILABLE")
}

func TestHandleDetailInvalidID(t *testing.T) {
	h := NewHandler(&fakeFinder{}, invstore.NewMemoryStore(), testConfig())
	router := newTestRouter(h)

	for _, path := range []string{"/api/v1/recipes/0", "/api/v1/recipes/-1", "/api/v1/recipes/abc"} {
		w := doRequest(router, path)
		assert.Equal(t, http.StatusBadRequest, w.Code, "path=%s", path)
	}
}
