package service

import (
	"context"
	"log/slog"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/metrics"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
)

// MergeCarts folds every line of the source cart into the destination and
// deletes the source. Quantities are summed without a stock check.
func (s *cartService) MergeCarts(ctx context.Context, sourceToken, destinationToken string) (*models.Cart, error) {
	if sourceToken == destinationToken {
		return nil, errors.BadRequestError("Cannot merge a cart into itself")
	}

	var destination *models.Cart

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		source, err := s.resolveCart(ctx, tx, sourceToken)
		if err != nil {
			return err
		}

		destination, err = s.resolveCart(ctx, tx, destinationToken)
		if err != nil {
			return err
		}

		carts := tx.Carts()

		sourceItems, err := carts.GetItems(ctx, source.ID)
		if err != nil {
			return errors.DatabaseError("Failed to load cart items").WithError(err)
		}

		destItems, err := carts.GetItems(ctx, destination.ID)
		if err != nil {
			return errors.DatabaseError("Failed to load cart items").WithError(err)
		}

		byProduct := make(map[int64]models.CartItem, len(destItems))
		for _, it := range destItems {
			byProduct[it.ProductID] = it
		}

		for _, it := range sourceItems {
			if existing, ok := byProduct[it.ProductID]; ok {
				if err := carts.UpdateItemQuantity(ctx, destination.ID, existing.ID, existing.Quantity+it.Quantity); err != nil {
					return errors.DatabaseError("Failed to merge cart item").WithError(err)
				}

				continue
			}

			moved := &models.CartItem{
				CartID:    destination.ID,
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				UnitPrice: it.UnitPrice,
			}
			if err := carts.AddItem(ctx, moved); err != nil {
				return errors.DatabaseError("Failed to merge cart item").WithError(err)
			}
		}

		if err := carts.DeleteCart(ctx, source.ID); err != nil {
			return errors.DatabaseError("Failed to delete merged cart").WithError(err)
		}

		if err := carts.TouchCart(ctx, destination.ID); err != nil {
			return errors.DatabaseError("Failed to update cart").WithError(err)
		}

		middleware.LoggerFromContext(ctx).Info("Carts merged",
			slog.String("sourceToken", sourceToken),
			slog.String("destinationToken", destinationToken),
			slog.Int("movedLines", len(sourceItems)))

		return nil
	})
	if err != nil {
		return nil, asAppError(err, "Failed to merge carts")
	}

	s.invalidate(ctx, sourceToken, destinationToken)
	metrics.RecordCartOperation("merge")

	return s.hydrate(ctx, s.store, destination)
}
