package service_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jerseyshop/storefront-api/internal/cache"
	"github.com/jerseyshop/storefront-api/internal/config"
	appErrors "github.com/jerseyshop/storefront-api/internal/errors"
	"github.com/jerseyshop/storefront-api/internal/models"
	repository "github.com/jerseyshop/storefront-api/internal/repositories"
	repoMocks "github.com/jerseyshop/storefront-api/internal/repositories/mocks"
	service "github.com/jerseyshop/storefront-api/internal/services"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testProduct() *models.Product {
	return &models.Product{
		ID:             uuid.New(),
		Name:           "Home Jersey",
		Price:          decimal.RequireFromString("90.00"),
		StockQuantity:  7,
		Status:         models.ProductStatusActive,
		SizeVariations: []string{"S", "M", "L"},
	}
}

func TestCatalogResolver(t *testing.T) {
	t.Run("Success - Snapshot of the current catalog row", func(t *testing.T) {
		// Arrange
		products := new(repoMocks.ProductRepository)
		resolver := service.NewCatalogResolver(products)
		product := testProduct()
		products.On("GetProductByID", mock.Anything, product.ID).Return(product, nil).Once()

		// Act
		snapshot, err := resolver.Resolve(t.Context(), product.ID, models.LineOptions{"size": "M"})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "Home Jersey", snapshot.ProductName)
		assert.True(t, product.Price.Equal(snapshot.UnitPrice))
		assert.Equal(t, 7, snapshot.AvailableStock)
	})

	t.Run("Failure - Product missing", func(t *testing.T) {
		products := new(repoMocks.ProductRepository)
		resolver := service.NewCatalogResolver(products)
		id := uuid.New()
		products.On("GetProductByID", mock.Anything, id).Return(nil, repository.ErrProductNotFound).Once()

		_, err := resolver.Resolve(t.Context(), id, nil)

		requireAppError(t, err, appErrors.ErrCodeNotFound, http.StatusNotFound)
	})

	t.Run("Failure - Inactive product is not for sale", func(t *testing.T) {
		products := new(repoMocks.ProductRepository)
		resolver := service.NewCatalogResolver(products)
		product := testProduct()
		product.Status = "archived"
		products.On("GetProductByID", mock.Anything, product.ID).Return(product, nil).Once()

		_, err := resolver.Resolve(t.Context(), product.ID, models.LineOptions{"size": "M"})

		requireAppError(t, err, appErrors.ErrCodeNotFound, http.StatusNotFound)
	})

	t.Run("Failure - Size not offered", func(t *testing.T) {
		products := new(repoMocks.ProductRepository)
		resolver := service.NewCatalogResolver(products)
		product := testProduct()
		products.On("GetProductByID", mock.Anything, product.ID).Return(product, nil).Once()

		_, err := resolver.Resolve(t.Context(), product.ID, models.LineOptions{"size": "XXL"})

		requireAppError(t, err, appErrors.ErrCodeValidation, http.StatusBadRequest)
	})

	t.Run("Failure - Database error", func(t *testing.T) {
		products := new(repoMocks.ProductRepository)
		resolver := service.NewCatalogResolver(products)
		id := uuid.New()
		products.On("GetProductByID", mock.Anything, id).Return(nil, errors.New("timeout")).Once()

		_, err := resolver.Resolve(t.Context(), id, nil)

		requireAppError(t, err, appErrors.ErrCodeDatabaseError, http.StatusInternalServerError)
	})
}

func TestCachedResolver(t *testing.T) {
	t.Run("Second read is served from the cache", func(t *testing.T) {
		// Arrange
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { client.Close() })

		products := new(repoMocks.ProductRepository)
		product := testProduct()
		products.On("GetProductByID", mock.Anything, product.ID).Return(product, nil).Once()

		resolver := service.NewCachedResolver(products, cache.NewRedisCache(client, config.CacheConfig{DefaultTTL: time.Minute}), 30*time.Second)

		// Act
		first, err := resolver.Resolve(t.Context(), product.ID, models.LineOptions{"size": "L"})
		require.NoError(t, err)

		second, err := resolver.Resolve(t.Context(), product.ID, models.LineOptions{"size": "S"})
		require.NoError(t, err)

		// Assert
		assert.True(t, first.UnitPrice.Equal(second.UnitPrice))
		assert.True(t, mr.Exists(cache.Key(cache.ProductKeyPrefix, product.ID.String())))
		assert.Equal(t, 30*time.Second, mr.TTL(cache.Key(cache.ProductKeyPrefix, product.ID.String())))
		products.AssertNumberOfCalls(t, "GetProductByID", 1)
	})

	t.Run("Cache outage falls back to the catalog", func(t *testing.T) {
		// Arrange
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
		t.Cleanup(func() { client.Close() })
		mr.Close()

		products := new(repoMocks.ProductRepository)
		product := testProduct()
		products.On("GetProductByID", mock.Anything, product.ID).Return(product, nil).Twice()

		resolver := service.NewCachedResolver(products, cache.NewRedisCache(client, config.CacheConfig{}), time.Minute)

		// Act
		for range 2 {
			snapshot, err := resolver.Resolve(t.Context(), product.ID, models.LineOptions{"size": "M"})

			// Assert
			require.NoError(t, err)
			assert.Equal(t, "Home Jersey", snapshot.ProductName)
		}

		products.AssertExpectations(t)
	})
}
