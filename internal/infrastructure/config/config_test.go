package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "https://world.openfoodfacts.org", cfg.OpenFoodFact.BaseURL)
	assert.Equal(t, "https://api.spoonacular.com", cfg.Spoonacular.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.OpenFoodFact.Timeout)
	assert.Equal(t, 12, cfg.Recipes.DefaultLimit)
	assert.Equal(t, 7, cfg.Recipes.ExpiringWindowDays)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, time.Second, cfg.DedupWindow)
}

func TestValidateConfig(t *testing.T) {
	valid := &Config{
		Server:  ServerConfig{Port: 8080},
		Storage: StorageConfig{Backend: "memory"},
		Recipes: RecipesConfig{DefaultLimit: 12, ExpiringWindowDays: 7},
	}
	assert.NoError(t, validateConfig(valid))
}

func TestValidateConfigRejectsBadValues(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:  ServerConfig{Port: 8080},
			Storage: StorageConfig{Backend: "memory"},
			Recipes: RecipesConfig{DefaultLimit: 12, ExpiringWindowDays: 7},
		}
	}

	missingPort := base()
	missingPort.Server.Port = 0
	assert.Error(t, validateConfig(missingPort))

	badBackend := base()
	badBackend.Storage.Backend = "cassandra"
	assert.Error(t, validateConfig(badBackend))

	redisWithoutAddr := base()
	redisWithoutAddr.Storage.Backend = "redis"
	redisWithoutAddr.Storage.RedisAddr = ""
	assert.Error(t, validateConfig(redisWithoutAddr))

	badCache := base()
	badCache.Cache = CacheConfig{Enabled: true, MaxSize: 0, TTL: time.Hour, CleanupInterval: time.Minute}
	assert.Error(t, validateConfig(badCache))

	badLimit := base()
	badLimit.Recipes.DefaultLimit = 0
	assert.Error(t, validateConfig(badLimit))
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey(""))
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "abcd...wxyz", maskAPIKey("abcdefghijklmnopqrstuvwxyz"))
}
