package inventory

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"fridge-keeper/internal/core/cache"
	"fridge-keeper/internal/core/expiry"
	invstore "fridge-keeper/internal/core/inventory"
	"fridge-keeper/internal/core/product"
	"fridge-keeper/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProductResolver 供掃描使用的產品解析介面
type ProductResolver interface {
	Resolve(ctx context.Context, barcode string) (*common.Product, error)
}

// Handler 庫存處理程序
type Handler struct {
	resolver ProductResolver
	store    invstore.Store
	cache    *cache.Manager
	now      func() time.Time
}

// NewHandler 創建庫存處理程序
func NewHandler(resolver ProductResolver, store invstore.Store, cacheManager *cache.Manager) *Handler {
	return &Handler{
		resolver: resolver,
		store:    store,
		cache:    cacheManager,
		now:      time.Now,
	}
}

// ScanRequest 掃描條碼請求
type ScanRequest struct {
	Barcode string `json:"barcode" binding:"required"`
}

// AddRequest 加入庫存請求
// 掃描結果欄位由前端原樣帶回；手動輸入時允許留空，缺漏欄位補預設值
type AddRequest struct {
	Barcode      string                 `json:"barcode" binding:"required"`
	Name         string                 `json:"name"`
	Brand        string                 `json:"brand"`
	Quantity     string                 `json:"quantity"`
	Categories   string                 `json:"categories"`
	Image        string                 `json:"image"`
	Nutriments   map[string]interface{} `json:"nutriments"`
	ExpiryDate   string                 `json:"expiry_date" binding:"required"`
	ReminderDays int                    `json:"reminder_days"`
}

// ProductView 帶到期標註的產品
type ProductView struct {
	common.Product
	DaysUntilExpiry int                `json:"days_until_expiry"`
	Urgency         expiry.UrgencyBand `json:"urgency"`
}

// HandleScan 以條碼解析產品
// 查無此條碼回傳 404，前端應引導使用者手動輸入
func (h *Handler) HandleScan(c *gin.Context) {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = common.GenerateUUID()
		c.Header("X-Request-ID", requestID)
	}

	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	common.LogInfo("開始處理條碼掃描",
		zap.String("request_id", requestID),
		zap.String("barcode", req.Barcode),
	)

	// 先查快取，命中就不打外部服務
	if h.cache != nil {
		if cached, ok := h.cache.Get("product", req.Barcode); ok {
			var p common.Product
			if err := common.ParseJSON(cached, &p); err == nil {
				c.JSON(http.StatusOK, p)
				return
			}
			common.LogWarn("快取內容解析失敗，改打外部服務",
				zap.String("request_id", requestID),
			)
		}
	}

	p, err := h.resolver.Resolve(c.Request.Context(), req.Barcode)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			common.LogInfo("查無此產品",
				zap.String("request_id", requestID),
				zap.String("barcode", req.Barcode),
			)
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Product not found",
				"code":  common.ErrProductNotFound.Code,
			})
			return
		}
		common.LogError("產品解析失敗",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Product lookup failed"})
		return
	}

	if h.cache != nil {
		if data, err := common.ToJSON(p); err == nil {
			_ = h.cache.Set("product", req.Barcode, data)
		}
	}

	c.JSON(http.StatusOK, p)
}

// HandleAdd 將產品加入庫存
// 到期日必填；提醒天數須為固定選項之一，未填時補預設值
func (h *Handler) HandleAdd(c *gin.Context) {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = common.GenerateUUID()
		c.Header("X-Request-ID", requestID)
	}

	var req AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogError("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	expiryDate, err := common.ParseDate(req.ExpiryDate)
	if err != nil {
		common.LogWarn("到期日格式無效",
			zap.String("request_id", requestID),
			zap.String("expiry_date", req.ExpiryDate),
		)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid expiry date, expected YYYY-MM-DD",
			"code":  common.ErrInvalidExpiryDate.Code,
		})
		return
	}

	reminderDays := req.ReminderDays
	if reminderDays == 0 {
		reminderDays = common.DefaultReminderDays
	}
	if !common.ValidReminderDays(reminderDays) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid reminder days",
			"code":  common.ErrInvalidReminderDays.Code,
		})
		return
	}

	p := common.Product{
		Barcode:      req.Barcode,
		Name:         req.Name,
		Brand:        req.Brand,
		Quantity:     req.Quantity,
		Categories:   req.Categories,
		Image:        req.Image,
		Nutriments:   req.Nutriments,
		ExpiryDate:   expiryDate,
		ReminderDays: reminderDays,
		AddedDate:    h.now(),
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

	if err := h.store.Add(c.Request.Context(), p); err != nil {
		if errors.Is(err, invstore.ErrExists) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "Product already in inventory",
				"code":  common.ErrProductExists.Code,
			})
			return
		}
		common.LogError("加入庫存失敗",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add product"})
		return
	}

	common.LogInfo("產品已加入庫存",
		zap.String("request_id", requestID),
		zap.String("barcode", p.Barcode),
		zap.String("name", p.Name),
	)

	c.JSON(http.StatusCreated, p)
}

// HandleList 列出庫存，按到期日由近到遠並帶緊急程度標註
// expiring_within 參數可只取剩餘天數不超過 N 的產品
func (h *Handler) HandleList(c *gin.Context) {
	products, err := h.store.GetAll(c.Request.Context())
	if err != nil {
		common.LogError("讀取庫存失敗", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read inventory"})
		return
	}

	now := h.now()
	sorted := expiry.SortByExpiry(products)

	if raw := c.Query("expiring_within"); raw != "" {
		window, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expiring_within"})
			return
		}
		sorted = expiry.FilterExpiringWithin(sorted, window, now)
	}

	views := make([]ProductView, len(sorted))
	for i, p := range sorted {
		days := expiry.DaysUntilExpiry(p.ExpiryDate, now)
		views[i] = ProductView{
			Product:         p,
			DaysUntilExpiry: days,
			Urgency:         expiry.Classify(days),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"products": views,
		"count":    len(views),
	})
}

// HandleDelete 從庫存刪除產品
func (h *Handler) HandleDelete(c *gin.Context) {
	barcode := c.Param("barcode")

	if err := h.store.Remove(c.Request.Context(), barcode); err != nil {
		if errors.Is(err, invstore.ErrMissing) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Product not in inventory",
				"code":  common.ErrCodeNotFound,
			})
			return
		}
		common.LogError("刪除產品失敗",
			zap.Error(err),
			zap.String("barcode", barcode),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove product"})
		return
	}

	common.LogInfo("產品已從庫存刪除", zap.String("barcode", barcode))
	c.Status(http.StatusNoContent)
}
