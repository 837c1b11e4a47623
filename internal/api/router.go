package api

import (
	"context"
	"net/http"
	"time"

	healthHandler "fridge-keeper/internal/api/handlers/health"
	inventoryHandler "fridge-keeper/internal/api/handlers/inventory"
	recipesHandler "fridge-keeper/internal/api/handlers/recipes"
	"fridge-keeper/internal/api/middleware"
	"fridge-keeper/internal/core/cache"
	"fridge-keeper/internal/core/inventory"
	"fridge-keeper/internal/core/product"
	"fridge-keeper/internal/core/recipe"
	"fridge-keeper/internal/infrastructure/config"
	"fridge-keeper/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 單一請求最多兩次外部往返（主端點加備援），30 秒已含餘裕
	timeoutDuration = 30 * time.Second
	// 請求體大小限制 (1MB)，這個服務沒有大型上傳
	maxBodySize = 1 << 20
)

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, store inventory.Store, cacheManager *cache.Manager) (*gin.Engine, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New()) // 自動生成請求 ID

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(maxBodySize))

	// 重複掃描／重送表單去重
	router.Use(middleware.Deduplication(cfg))

	// 限流
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	common.LogInfo("Initializing services",
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("product_base_url", cfg.OpenFoodFact.BaseURL),
		zap.String("recipe_base_url", cfg.Spoonacular.BaseURL),
	)

	// 初始化服務
	resolver := product.NewResolver(cfg.OpenFoodFact)
	ranker := recipe.NewRanker(cfg.Spoonacular)

	invHandler := inventoryHandler.NewHandler(resolver, store, cacheManager)
	recHandler := recipesHandler.NewHandler(ranker, store, cfg.Recipes)

	// 全局中間件：設置超時和共享狀態
	router.Use(func(c *gin.Context) {
		// 設置請求超時
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		// 健康檢查需要讀取配置與快取統計
		c.Set("config", cfg)
		c.Set("cache_manager", cacheManager)

		// 處理請求
		c.Next()

		// 檢查是否超時
		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetHeader("X-Request-ID")),
				zap.Duration("timeout", timeoutDuration),
			)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  common.ErrCodeGatewayTimeout,
				"details": gin.H{
					"timeout": timeoutDuration.String(),
				},
			})
			c.Abort()
			return
		}
	})

	// 健康檢查路由
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	// API 路由組
	api := router.Group("/api/v1")
	{
		// 庫存相關路由
		productGroup := api.Group("/products")
		{
			// 掃描條碼解析產品
			productGroup.POST("/scan", invHandler.HandleScan)

			// 加入庫存
			productGroup.POST("", invHandler.HandleAdd)

			// 列出庫存（按到期日排序）
			productGroup.GET("", invHandler.HandleList)

			// 從庫存刪除
			productGroup.DELETE("/:barcode", invHandler.HandleDelete)
		}

		// 食譜相關路由
		recipeGroup := api.Group("/recipes")
		{
			// 依庫存推薦食譜
			recipeGroup.GET("/suggestions", recHandler.HandleSuggestions)

			// 食譜詳細內容
			recipeGroup.GET("/:id", recHandler.HandleDetail)
		}
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Bool("cache_manager_initialized", cacheManager != nil),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router, nil
}
