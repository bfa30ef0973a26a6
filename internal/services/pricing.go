package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jerseyshop/storefront-api/internal/api/middleware"
	"github.com/jerseyshop/storefront-api/internal/cache"
	appErrors "github.com/jerseyshop/storefront-api/internal/errors"
	"github.com/jerseyshop/storefront-api/internal/models"
	repository "github.com/jerseyshop/storefront-api/internal/repositories"
)

// PricingResolver reads the current price and stock of a product. Nothing is reserved.
type PricingResolver interface {
	Resolve(ctx context.Context, productID uuid.UUID, options models.LineOptions) (*models.PriceSnapshot, error)
}

type catalogResolver struct {
	products repository.ProductRepository
}

// NewCatalogResolver reads straight from the catalog. Checkout uses it.
func NewCatalogResolver(products repository.ProductRepository) PricingResolver {
	return &catalogResolver{products: products}
}

// NewCachedResolver serves catalog reads from the cache when it can. The cart uses it,
// so a price may be up to ttl old when a line is added.
func NewCachedResolver(products repository.ProductRepository, c cache.Cache, ttl time.Duration) PricingResolver {
	return &catalogResolver{products: &cachedProducts{next: products, cache: c, ttl: ttl}}
}

func (r *catalogResolver) Resolve(ctx context.Context, productID uuid.UUID, options models.LineOptions) (*models.PriceSnapshot, error) {
	product, err := r.products.GetProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, appErrors.NotFoundError("Product not found").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to retrieve product").WithError(err)
	}

	if !product.IsPurchasable() {
		return nil, appErrors.NotFoundError("Product not found")
	}

	if err := product.ValidateOptions(options); err != nil {
		return nil, appErrors.ValidationError("Invalid product options").WithDetail(err.Error()).WithError(err)
	}

	return &models.PriceSnapshot{
		ProductID:      product.ID,
		ProductName:    product.Name,
		UnitPrice:      product.Price,
		AvailableStock: product.StockQuantity,
	}, nil
}

// cachedProducts is a read-through cache in front of the catalog. Cache
// failures are logged and fall through to the database.
type cachedProducts struct {
	next  repository.ProductRepository
	cache cache.Cache
	ttl   time.Duration
}

func (c *cachedProducts) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	logger := middleware.LoggerFromContext(ctx)
	key := cache.Key(cache.ProductKeyPrefix, id.String())

	var product models.Product

	found, err := c.cache.Get(ctx, key, &product)
	if err != nil {
		logger.Warn("Product cache read failed", slog.String("productId", id.String()), slog.Any("error", err))
	} else if found {
		return &product, nil
	}

	fresh, err := c.next.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, fresh, c.ttl); err != nil {
		logger.Warn("Product cache write failed", slog.String("productId", id.String()), slog.Any("error", err))
	}

	return fresh, nil
}
