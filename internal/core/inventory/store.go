package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fridge-keeper/internal/infrastructure/config"
	"fridge-keeper/internal/pkg/common"

	"go.uber.org/zap"
)

var (
	// ErrExists 條碼已存在於庫存
	ErrExists = errors.New("product already in inventory")
	// ErrMissing 庫存中沒有此條碼
	ErrMissing = errors.New("product not in inventory")
)

// Store 庫存儲存介面
// 只由使用者觸發的加入／刪除操作寫入；解析與推薦元件只讀取快照
type Store interface {
	GetAll(ctx context.Context) ([]common.Product, error)
	Get(ctx context.Context, barcode string) (*common.Product, error)
	Add(ctx context.Context, p common.Product) error
	Remove(ctx context.Context, barcode string) error
	Close() error
}

// NewStore 依設定建立儲存後端
func NewStore(cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "memory":
		common.LogInfo("使用記憶體庫存儲存")
		return NewMemoryStore(), nil
	case "redis":
		common.LogInfo("使用 Redis 庫存儲存",
			zap.String("addr", cfg.RedisAddr),
			zap.String("prefix", cfg.KeyPrefix),
		)
		return NewRedisStore(cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

// MemoryStore 記憶體庫存儲存，保留加入順序
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]common.Product
	order    []string
}

// NewMemoryStore 創建記憶體庫存儲存
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]common.Product),
	}
}

// GetAll 回傳全部產品的快照，按加入順序
func (s *MemoryStore) GetAll(ctx context.Context) ([]common.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]common.Product, 0, len(s.order))
	for _, barcode := range s.order {
		products = append(products, s.products[barcode])
	}
	return products, nil
}

// Get 以條碼取得單一產品
func (s *MemoryStore) Get(ctx context.Context, barcode string) (*common.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.products[barcode]
	if !exists {
		return nil, ErrMissing
	}
	return &p, nil
}

// Add 加入產品，條碼重複時回傳 ErrExists
func (s *MemoryStore) Add(ctx context.Context, p common.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[p.Barcode]; exists {
		return ErrExists
	}
	s.products[p.Barcode] = p
	s.order = append(s.order, p.Barcode)
	return nil
}

// Remove 刪除產品，不存在時回傳 ErrMissing
func (s *MemoryStore) Remove(ctx context.Context, barcode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[barcode]; !exists {
		return ErrMissing
	}
	delete(s.products, barcode)
	for i, b := range s.order {
		if b == barcode {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Close 實現 Store 介面
func (s *MemoryStore) Close() error {
	return nil
}
