package product

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fridge-keeper/internal/infrastructure/config"
	"fridge-keeper/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrNotFound 兩個端點都查不到條碼時回傳
// 這是正常結果（未知條碼），呼叫端應顯示錯誤狀態而非當成程式錯誤
var ErrNotFound = errors.New("product not found")

// lookupStrategy 單一查詢端點
// 解析失敗或上游回報查無此條碼時，依序嘗試下一個端點
type lookupStrategy struct {
	name string
	path string // 含 %s 條碼佔位
}

// Resolver 產品解析服務
// 依序對 Open Food Facts 的 v2 與 v0 端點查詢條碼，
// 將回應整理成標準 Product；不做快取也不重試
type Resolver struct {
	client     *resty.Client
	strategies []lookupStrategy
}

// offResponse Open Food Facts 回應外層
type offResponse struct {
	Status  int        `json:"status"`
	Product offProduct `json:"product"`
}

// offProduct Open Food Facts 巢狀產品欄位（只取用到的子集）
type offProduct struct {
	ProductName string                 `json:"product_name"`
	Brands      string                 `json:"brands"`
	ImageURL    string                 `json:"image_url"`
	Quantity    string                 `json:"quantity"`
	Categories  string                 `json:"categories"`
	Nutriments  map[string]interface{} `json:"nutriments"`
}

// NewResolver 創建產品解析服務
func NewResolver(cfg config.OpenFoodFactConfig) *Resolver {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &Resolver{
		client: client,
		// 先查 v2，失敗再退回 v0；新增備援端點只要加在這裡
		strategies: []lookupStrategy{
			{name: "v2", path: "/api/v2/product/%s"},
			{name: "v0", path: "/api/v0/product/%s.json"},
		},
	}
}

// Resolve 以條碼查詢產品
// 依序嘗試各端點，第一個回報找到的端點勝出；全部失敗回傳 ErrNotFound
func (r *Resolver) Resolve(ctx context.Context, barcode string) (*common.Product, error) {
	if strings.TrimSpace(barcode) == "" {
		common.LogError("條碼為空，呼叫端應先驗證輸入")
		return nil, ErrNotFound
	}

	for _, strategy := range r.strategies {
		p, err := r.lookup(ctx, strategy, barcode)
		if err != nil {
			common.LogWarn("產品查詢失敗，嘗試下一個端點",
				zap.String("endpoint", strategy.name),
				zap.String("barcode", barcode),
				zap.Error(err),
			)
			continue
		}
		if p == nil {
			// 上游回報查無此條碼
			common.LogInfo("端點查無此條碼",
				zap.String("endpoint", strategy.name),
				zap.String("barcode", barcode),
			)
			continue
		}

		common.LogInfo("產品解析成功",
			zap.String("endpoint", strategy.name),
			zap.String("barcode", barcode),
			zap.String("name", p.Name),
		)
		return p, nil
	}

	return nil, ErrNotFound
}

// lookup 對單一端點查詢；上游回報查無此條碼時回傳 (nil, nil)
func (r *Resolver) lookup(ctx context.Context, strategy lookupStrategy, barcode string) (*common.Product, error) {
	start := time.Now()
	resp, err := r.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf(strategy.path, barcode))
	common.LogUpstreamCall("openfoodfacts", strategy.name, time.Since(start), err)

	if err != nil {
		return nil, fmt.Errorf("failed to query product endpoint %s: %w", strategy.name, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("product endpoint %s returned status %d", strategy.name, resp.StatusCode())
	}

	var parsed offResponse
	if err := common.ParseJSONBytes(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse product response: %w", err)
	}

	if parsed.Status != 1 {
		return nil, nil
	}

	return buildProduct(barcode, parsed.Product), nil
}

// buildProduct 將上游欄位整理成標準 Product，缺漏欄位補預設值
func buildProduct(barcode string, raw offProduct) *common.Product {
	p := &common.Product{
		Barcode:    barcode,
		Name:       raw.ProductName,
		Brand:      raw.Brands,
		Quantity:   raw.Quantity,
		Categories: raw.Categories,
		Image:      raw.ImageURL,
		Nutriments: raw.Nutriments,
	}

	if p.Name == "" {
		p.Name = common.UnknownProductName
	}
	if p.Brand == "" {
		p.Brand = common.UnknownBrand
	}
	if p.Quantity == "" {
		p.Quantity = common.UnknownValue
	}
	if p.Categories == "" {
		p.Categories = common.UnknownValue
	}
	if p.Nutriments == nil {
		p.Nutriments = map[string]interface{}{}
	}

	return p
}
