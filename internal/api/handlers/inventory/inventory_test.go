package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fridge-keeper/internal/core/cache"
	invstore "fridge-keeper/internal/core/inventory"
	"fridge-keeper/internal/core/product"
	"fridge-keeper/internal/infrastructure/config"
	"fridge-keeper/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeResolver 以固定結果回應的產品解析器
type fakeResolver struct {
	product *common.Product
	err     error
	calls   int
}

func (f *fakeResolver) Resolve(ctx context.Context, barcode string) (*common.Product, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.product, nil
}

func newTestRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.POST("/api/v1/products/scan", h.HandleScan)
	router.POST("/api/v1/products", h.HandleAdd)
	router.GET("/api/v1/products", h.HandleList)
	router.DELETE("/api/v1/products/:barcode", h.HandleDelete)
	return router
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleScan(t *testing.T) {
	resolver := &fakeResolver{product: &common.Product{
		Barcode: "123",
		Name:    "Milk",
		Brand:   "Dairy Co",
	}}
	h := NewHandler(resolver, invstore.NewMemoryStore(), nil)
	router := newTestRouter(h)

	w := doRequest(router, http.MethodPost, "/api/v1/products/scan", `{"barcode":"123"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var got common.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Milk", got.Name)
	assert.Equal(t, 1, resolver.calls)
}

func TestHandleScanGeneratesRequestID(t *testing.T) {
	resolver := &fakeResolver{product: &common.Product{Barcode: "123", Name: "Milk"}}
	h := NewHandler(resolver, invstore.NewMemoryStore(), nil)
	router := newTestRouter(h)

	// 未帶 X-Request-ID 時由伺服器補上
	w := doRequest(router, http.MethodPost, "/api/v1/products/scan", `{"barcode":"123"}`)

	require.Equal(t, http.StatusOK, w.Code)
	requestID := w.Header().Get("X-Request-ID")
	require.NotEmpty(t, requestID)
	_, err := uuid.Parse(requestID)
	assert.NoError(t, err)
}

func TestHandleScanUsesCache(t *testing.T) {
	resolver := &fakeResolver{product: &common.Product{Barcode: "123", Name: "Milk"}}
	manager := cache.NewManager(&config.Config{
		Cache: config.CacheConfig{
			Enabled:         true,
			MaxSize:         10,
			TTL:             time.Minute,
			CleanupInterval: time.Minute,
		},
	})
	require.NotNil(t, manager)
	defer manager.Close()

	h := NewHandler(resolver, invstore.NewMemoryStore(), manager)
	router := newTestRouter(h)

	// 第一次掃描打外部服務並寫入快取
	w := doRequest(router, http.MethodPost, "/api/v1/products/scan", `{"barcode":"123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, resolver.calls)

	// 第二次掃描命中快取，不再打外部服務
	w = doRequest(router, http.MethodPost, "/api/v1/products/scan", `{"barcode":"123"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, resolver.calls)
	assert.Contains(t, w.Body.String(), "Milk")
}

func TestHandleScanNotFound(t *testing.T) {
	resolver := &fakeResolver{err: product.ErrNotFound}
	h := NewHandler(resolver, invstore.NewMemoryStore(), nil)
	router := newTestRouter(h)

	w := doRequest(router, http.MethodPost, "/api/v1/products/scan", `{"barcode":"000"}`)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "PRODUCT_NOT_FOUND")
}

func TestHandleScanResolverFailure(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("boom")}
	h := NewHandler(resolver, invstore.NewMemoryStore(), nil)
	router := newTestRouter(h)

	w := doRequest(router, http.MethodPost, "/api/v1/products/scan", `{"barcode":"123"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandleScanInvalidRequest(t *testing.T) {
	h := NewHandler(&fakeResolver{}, invstore.NewMemoryStore(), nil)
	router := newTestRouter(h)

	for _, body := range []string{``, `{}`, `{"barcode":""}`, `not json`} {
		w := doRequest(router, http.MethodPost, "/api/v1/products/scan", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body=%q", body)
	}
}

func TestHandleAdd(t *testing.T) {
	store := invstore.NewMemoryStore()
	h := NewHandler(&fakeResolver{}, store, nil)
	router := newTestRouter(h)

	w := doRequest(router, http.MethodPost, "/api/v1/products",
		`{"barcode":"123","name":"Milk","expiry_date":"2025-03-20","reminder_days":5}`)

	require.Equal(t, http.StatusCreated, w.Code)

	got, err := store.Get(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, "Milk", got.Name)
	assert.Equal(t, 5, got.ReminderDays)
	assert.Equal(t, "2025-03-20", got.ExpiryDate.Format(common.DateFormat))
	assert.False(t, got.AddedDate.IsZero())
}

func TestHandleAddFillsDefaults(t *testing.T) {
	store := invstore.NewMemoryStore()
	h := NewHandler(&fakeResolver{}, store, nil)
	router := newTestRouter(h)

	w := doRequest(router, http.MethodPost, "/api/v1/products",
		`{"barcode":"123","expiry_date":"2025-03-20"}`)

	require.Equal(t, http.StatusCreated, w.Code)

	got, err := store.Get(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, common.UnknownProductName, got.Name)
	assert.Equal(t, common.UnknownBrand, got.Brand)
	assert.Equal(t, common.UnknownValue, got.Quantity)
	assert.Equal(t, common.UnknownValue, got.Categories)
	assert.Equal(t, common.DefaultReminderDays, got.ReminderDays)
	assert.NotNil(t, got.Nutriments)
}

func TestHandleAddInvalidExpiryDate(t *testing.T) {
	h := NewHandler(&fakeResolver{}, invstore.NewMemoryStore(), nil)
	router := newTestRouter(h)

	for _, date := range []string{"20-03-2025", "2025/03/20", "tomorrow"} {
		w := doRequest(router, http.MethodPost, "/api/v1/products",
			`{"barcode":"123","expiry_date":"`+date+`"}`)
		require.Equal(t, http.StatusBadRequest, w.Code, "date=%q", date)
		assert.Contains(t, w.Body.String(), "INVALID_EXPIRY_DATE")
	}
}

func TestHandleAddInvalidReminderDays(t *testing.T) {
	h := NewHandler(&fakeResolver{}, invstore.NewMemoryStore(), nil)
	router := newTestRouter(h)

	w := doRequest(router, http.MethodPost, "/api/v1/products",
		`{"barcode":"123","expiry_date":"2025-03-20","reminder_days":4}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_REMINDER_DAYS")
}

func TestHandleAddDuplicate(t *testing.T) {
	h := NewHandler(&fakeResolver{}, invstore.NewMemoryStore(), nil)
	router := newTestRouter(h)

	body := `{"barcode":"123","expiry_date":"2025-03-20"}`
	require.Equal(t, http.StatusCreated, doRequest(router, http.MethodPost, "/api/v1/products", body).Code)

	w := doRequest(router, http.MethodPost, "/api/v1/products", body)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "PRODUCT_EXISTS")
}

func TestHandleList(t *testing.T) {
	store := invstore.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, common.Product{Barcode: "late", ExpiryDate: common.NewDate(2025, time.April, 1)}))
	require.NoError(t, store.Add(ctx, common.Product{Barcode: "soon", ExpiryDate: common.NewDate(2025, time.March, 12)}))
	require.NoError(t, store.Add(ctx, common.Product{Barcode: "mid", ExpiryDate: common.NewDate(2025, time.March, 20)}))

	h := NewHandler(&fakeResolver{}, store, nil)
	h.now = func() time.Time { return time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC) }
	router := newTestRouter(h)

	w := doRequest(router, http.MethodGet, "/api/v1/products", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Products []ProductView `json:"products"`
		Count    int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.Count)

	// 按到期日由近到遠
	assert.Equal(t, "soon", resp.Products[0].Barcode)
	assert.Equal(t, "mid", resp.Products[1].Barcode)
	assert.Equal(t, "late", resp.Products[2].Barcode)

	// 緊急程度標註
	assert.Equal(t, 2, resp.Products[0].DaysUntilExpiry)
	assert.Equal(t, "critical", resp.Products[0].Urgency.Name)
	assert.Equal(t, "safe", resp.Products[2].Urgency.Name)
}

func TestHandleListExpiringWithin(t *testing.T) {
	store := invstore.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Add(ctx, common.Product{Barcode: "soon", ExpiryDate: common.NewDate(2025, time.March, 12)}))
	require.NoError(t, store.Add(ctx, common.Product{Barcode: "late", ExpiryDate: common.NewDate(2025, time.April, 1)}))

	h := NewHandler(&fakeResolver{}, store, nil)
	h.now = func() time.Time { return time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC) }
	router := newTestRouter(h)

	w := doRequest(router, http.MethodGet, "/api/v1/products?expiring_within=7", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Products []ProductView `json:"products"`
		Count    int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "soon", resp.Products[0].Barcode)
}

func TestHandleListInvalidExpiringWithin(t *testing.T) {
	store := invstore.NewMemoryStore()
	require.NoError(t, store.Add(context.Background(), common.Product{
		Barcode:    "123",
		ExpiryDate: common.NewDate(2025, time.March, 12),
	}))

	h := NewHandler(&fakeResolver{}, store, nil)
	router := newTestRouter(h)

	// 格式錯誤的 expiring_within 應回 400，而不是默默忽略篩選
	for _, path := range []string{
		"/api/v1/products?expiring_within=abc",
		"/api/v1/products?expiring_within=7.5",
	} {
		w := doRequest(router, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, "path=%s", path)
	}
}

func TestHandleDelete(t *testing.T) {
	store := invstore.NewMemoryStore()
	require.NoError(t, store.Add(context.Background(), common.Product{Barcode: "123"}))

	h := NewHandler(&fakeResolver{}, store, nil)
	router := newTestRouter(h)

	w := doRequest(router, http.MethodDelete, "/api/v1/products/123", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, err := store.Get(context.Background(), "123")
	assert.ErrorIs(t, err, invstore.ErrMissing)
}

func TestHandleDeleteMissing(t *testing.T) {
	h := NewHandler(&fakeResolver{}, invstore.NewMemoryStore(), nil)
	router := newTestRouter(h)

	w := doRequest(router, http.MethodDelete, "/api/v1/products/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
