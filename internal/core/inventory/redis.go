package inventory

import (
	"context"
	"encoding/json"
	"fmt"

	"fridge-keeper/internal/infrastructure/config"
	"fridge-keeper/internal/pkg/common"

	"github.com/go-redis/redis/v8"
)

// RedisStore Redis 庫存儲存
// 產品 JSON 存在 hash，另以 list 保留加入順序
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore 創建 Redis 庫存儲存並測試連接
func NewRedisStore(cfg config.StorageConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})

	// 測試連接
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

func (s *RedisStore) productsKey() string {
	return s.keyPrefix + ":products"
}

func (s *RedisStore) orderKey() string {
	return s.keyPrefix + ":order"
}

// GetAll 回傳全部產品，按加入順序
func (s *RedisStore) GetAll(ctx context.Context) ([]common.Product, error) {
	barcodes, err := s.client.LRange(ctx, s.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory order: %w", err)
	}
	if len(barcodes) == 0 {
		return []common.Product{}, nil
	}

	raw, err := s.client.HGetAll(ctx, s.productsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	}

	products := make([]common.Product, 0, len(barcodes))
	for _, barcode := range barcodes {
		data, exists := raw[barcode]
		if !exists {
			// 順序表與 hash 不一致時略過，不中斷整批讀取
			continue
		}
		var p common.Product
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal product %s: %w", barcode, err)
		}
		products = append(products, p)
	}
	return products, nil
}

// Get 以條碼取得單一產品
func (s *RedisStore) Get(ctx context.Context, barcode string) (*common.Product, error) {
	data, err := s.client.HGet(ctx, s.productsKey(), barcode).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrMissing
		}
		return nil, fmt.Errorf("failed to read product: %w", err)
	}

	var p common.Product
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product %s: %w", barcode, err)
	}
	return &p, nil
}

// Add 加入產品，條碼重複時回傳 ErrExists
func (s *RedisStore) Add(ctx context.Context, p common.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal product: %w", err)
	}

	// HSetNX 保證條碼唯一；成功後再補順序表
	created, err := s.client.HSetNX(ctx, s.productsKey(), p.Barcode, data).Result()
	if err != nil {
		return fmt.Errorf("failed to store product: %w", err)
	}
	if !created {
		return ErrExists
	}

	if err := s.client.RPush(ctx, s.orderKey(), p.Barcode).Err(); err != nil {
		return fmt.Errorf("failed to append inventory order: %w", err)
	}
	return nil
}

// Remove 刪除產品，不存在時回傳 ErrMissing
func (s *RedisStore) Remove(ctx context.Context, barcode string) error {
	removed, err := s.client.HDel(ctx, s.productsKey(), barcode).Result()
	if err != nil {
		return fmt.Errorf("failed to remove product: %w", err)
	}
	if removed == 0 {
		return ErrMissing
	}

	if err := s.client.LRem(ctx, s.orderKey(), 0, barcode).Err(); err != nil {
		return fmt.Errorf("failed to trim inventory order: %w", err)
	}
	return nil
}

// Close 關閉 Redis 連接
func (s *RedisStore) Close() error {
	return s.client.Close()
}
