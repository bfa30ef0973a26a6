package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	appErrors "github.com/jerseyshop/storefront-api/internal/errors"
	"github.com/jerseyshop/storefront-api/internal/models"
	repository "github.com/jerseyshop/storefront-api/internal/repositories"
)

type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, userID uuid.UUID, req *models.AddItemRequest) (*models.Cart, error)
	UpdateItemQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, lineID uuid.UUID) (*models.Cart, error)
}

type cartService struct {
	repo    repository.CartRepository
	pricing PricingResolver
}

func NewCartService(repo repository.CartRepository, pricing PricingResolver) CartService {
	return &cartService{repo: repo, pricing: pricing}
}

// GetCart returns the user's cart, creating an empty one on first use.
func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to retrieve cart").WithError(err)
	}

	return cart, nil
}

// AddItem merges into the line with the same product and options, or adds a
// new line priced at the product's current price.
func (s *cartService) AddItem(ctx context.Context, userID uuid.UUID, req *models.AddItemRequest) (*models.Cart, error) {
	if req.Quantity < 1 {
		return nil, appErrors.ValidationError("Quantity must be at least 1")
	}

	snapshot, err := s.pricing.Resolve(ctx, req.ProductID, req.Options)
	if err != nil {
		return nil, err
	}

	cart, err := s.repo.MutateCart(ctx, userID, true, func(c *models.Cart) (*models.CartLineChange, error) {
		return c.AddOrMergeLine(req.ProductID, req.Quantity, req.Options, snapshot.UnitPrice)
	})
	if err != nil {
		return nil, s.mutationError(ctx, userID, uuid.Nil, err)
	}

	return cart, nil
}

// UpdateItemQuantity sets a line's quantity. Zero is rejected; removal goes through RemoveItem.
func (s *cartService) UpdateItemQuantity(ctx context.Context, userID, lineID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, appErrors.ValidationError("Quantity must be at least 1")
	}

	cart, err := s.repo.MutateCart(ctx, userID, false, func(c *models.Cart) (*models.CartLineChange, error) {
		return c.SetLineQuantity(lineID, quantity)
	})
	if err != nil {
		return nil, s.mutationError(ctx, userID, lineID, err)
	}

	return cart, nil
}

func (s *cartService) RemoveItem(ctx context.Context, userID, lineID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.MutateCart(ctx, userID, false, func(c *models.Cart) (*models.CartLineChange, error) {
		return c.RemoveLine(lineID)
	})
	if err != nil {
		return nil, s.mutationError(ctx, userID, lineID, err)
	}

	return cart, nil
}

// mutationError translates store errors. A line missing from the caller's cart
// is Forbidden when it belongs to someone else and NotFound when it does not exist.
func (s *cartService) mutationError(ctx context.Context, userID, lineID uuid.UUID, err error) error {
	switch {
	case errors.Is(err, models.ErrInvalidQuantity):
		return appErrors.ValidationError("Quantity must be at least 1").WithError(err)
	case errors.Is(err, models.ErrQuantityTooLarge):
		return appErrors.ValidationError(fmt.Sprintf("Quantity per item cannot exceed %d", models.MaxLineQuantity)).WithError(err)
	case errors.Is(err, models.ErrLineNotInCart), errors.Is(err, repository.ErrCartNotFound) && lineID != uuid.Nil:
		owner, ownerErr := s.repo.GetLineOwner(ctx, lineID)
		if ownerErr != nil {
			if errors.Is(ownerErr, repository.ErrLineNotFound) {
				return appErrors.NotFoundError("Cart item not found").WithError(err)
			}

			return appErrors.DatabaseError("Failed to update cart").WithError(ownerErr)
		}

		if owner != userID {
			return appErrors.ForbiddenError("Cart item belongs to another user")
		}

		return appErrors.NotFoundError("Cart item not found").WithError(err)
	case errors.Is(err, repository.ErrCartNotFound):
		return appErrors.NotFoundError("Cart not found").WithError(err)
	default:
		return appErrors.DatabaseError("Failed to update cart").WithError(err)
	}
}
