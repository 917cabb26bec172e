package service

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/cache"
	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/metrics"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/pricing"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/google/uuid"
)

type CartService interface {
	CreateCart(ctx context.Context, req *models.CreateCartRequest) (*models.Cart, error)
	GetCart(ctx context.Context, token string) (*models.Cart, error)
	GetOrCreateUserCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, token string, req *models.AddItemRequest) (*models.Cart, error)
	UpdateItem(ctx context.Context, token string, itemID int64, req *models.UpdateItemRequest) (*models.Cart, error)
	RemoveItem(ctx context.Context, token string, itemID int64) (*models.Cart, error)
	ClearCart(ctx context.Context, token string) (*models.Cart, error)
	MergeCarts(ctx context.Context, sourceToken, destinationToken string) (*models.Cart, error)
}

type cartService struct {
	store    repository.Store
	cache    *cache.Loader
	calc     *pricing.Calculator
	cacheTTL time.Duration
}

func NewCartService(store repository.Store, c cache.Cache, calc *pricing.Calculator, cacheTTL time.Duration) CartService {
	return &cartService{store: store, cache: cache.NewLoader(c), calc: calc, cacheTTL: cacheTTL}
}

func (s *cartService) CreateCart(ctx context.Context, req *models.CreateCartRequest) (*models.Cart, error) {
	hasUser := req.UserID != nil && *req.UserID != uuid.Nil
	hasSession := req.SessionID != nil && *req.SessionID != ""

	if hasUser == hasSession {
		return nil, errors.ValidationError("Exactly one of user_id or session_id is required")
	}

	cart := &models.Cart{Token: uuid.NewString()}
	if hasUser {
		cart.UserID = req.UserID
	} else {
		cart.SessionID = req.SessionID
	}

	if err := s.store.Carts().CreateCart(ctx, cart); err != nil {
		return nil, errors.DatabaseError("Failed to create cart").WithError(err)
	}

	middleware.LoggerFromContext(ctx).Info("Cart created", slog.String("cartToken", cart.Token))

	cart.Items = []models.CartItem{}
	cart.Totals = s.calc.ForCartItems(cart.Items)

	return cart, nil
}

func (s *cartService) GetCart(ctx context.Context, token string) (*models.Cart, error) {
	return cache.GetOrLoad(ctx, s.cache, cache.Key(cache.CartKeyPrefix, token), s.cacheTTL,
		func(ctx context.Context) (*models.Cart, error) {
			cart, err := s.resolveCart(ctx, s.store, token)
			if err != nil {
				return nil, err
			}

			return s.hydrate(ctx, s.store, cart)
		})
}

// GetOrCreateUserCart returns the user's most recently updated cart, creating
// an empty one if the user has none.
func (s *cartService) GetOrCreateUserCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.store.Carts().GetCartByUserID(ctx, userID)

	switch {
	case err == nil:
		return s.hydrate(ctx, s.store, cart)
	case stdErrors.Is(err, sql.ErrNoRows):
		return s.CreateCart(ctx, &models.CreateCartRequest{UserID: &userID})
	default:
		return nil, errors.DatabaseError("Failed to fetch cart").WithError(err)
	}
}

func (s *cartService) AddItem(ctx context.Context, token string, req *models.AddItemRequest) (*models.Cart, error) {
	if req.ProductSlug == "" && req.ProductID == 0 {
		return nil, errors.ValidationError("Either product_slug or product_id is required")
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	if quantity < 1 {
		return nil, errors.AddValidationError("quantity", "must be at least 1")
	}

	cart, err := s.resolveCart(ctx, s.store, token)
	if err != nil {
		return nil, err
	}

	product, err := s.resolveProduct(ctx, req)
	if err != nil {
		return nil, err
	}

	carts := s.store.Carts()

	existing, err := carts.GetItemByProduct(ctx, cart.ID, product.ID)
	if err != nil && !stdErrors.Is(err, sql.ErrNoRows) {
		return nil, errors.DatabaseError("Failed to fetch cart item").WithError(err)
	}

	if existing != nil {
		if err := s.increment(ctx, cart.ID, existing, product, quantity); err != nil {
			return nil, err
		}
	} else {
		if int64(quantity) > product.StockQuantity {
			return nil, errors.InsufficientStockError(product.Name, product.StockQuantity)
		}

		item := &models.CartItem{
			CartID:    cart.ID,
			ProductID: product.ID,
			Quantity:  quantity,
			UnitPrice: product.Price,
		}

		err := carts.AddItem(ctx, item)

		switch {
		case err == nil:
		case stdErrors.Is(err, repository.ErrDuplicateEntry):
			// a concurrent add created the line first
			existing, getErr := carts.GetItemByProduct(ctx, cart.ID, product.ID)
			if getErr != nil {
				return nil, errors.DatabaseError("Failed to fetch cart item").WithError(getErr)
			}

			if err := s.increment(ctx, cart.ID, existing, product, quantity); err != nil {
				return nil, err
			}
		default:
			return nil, errors.DatabaseError("Failed to add item to cart").WithError(err)
		}
	}

	metrics.RecordCartOperation("add_item")

	return s.afterMutation(ctx, cart)
}

// increment sums quantity into an existing line; the combined amount is what
// gets checked against stock.
func (s *cartService) increment(ctx context.Context, cartID int64, existing *models.CartItem, product *models.Product, quantity int) error {
	combined := existing.Quantity + quantity
	if int64(combined) > product.StockQuantity {
		return errors.InsufficientStockError(product.Name, product.StockQuantity)
	}

	if err := s.store.Carts().UpdateItemQuantity(ctx, cartID, existing.ID, combined); err != nil {
		return errors.DatabaseError("Failed to update cart item").WithError(err)
	}

	return nil
}

func (s *cartService) UpdateItem(ctx context.Context, token string, itemID int64, req *models.UpdateItemRequest) (*models.Cart, error) {
	if req.Quantity < 1 {
		return nil, errors.AddValidationError("quantity", "must be at least 1")
	}

	cart, err := s.resolveCart(ctx, s.store, token)
	if err != nil {
		return nil, err
	}

	carts := s.store.Carts()

	item, err := carts.GetItem(ctx, cart.ID, itemID)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundError("Cart item not found").WithDetail("item_id=" + strconv.FormatInt(itemID, 10))
		}

		return nil, errors.DatabaseError("Failed to fetch cart item").WithError(err)
	}

	product, err := s.store.Products().GetProductByID(ctx, item.ProductID)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundError("Product not found").WithError(err)
		}

		return nil, errors.DatabaseError("Failed to fetch product").WithError(err)
	}

	if int64(req.Quantity) > product.StockQuantity {
		return nil, errors.InsufficientStockError(product.Name, product.StockQuantity)
	}

	if err := carts.UpdateItemQuantity(ctx, cart.ID, item.ID, req.Quantity); err != nil {
		return nil, errors.DatabaseError("Failed to update cart item").WithError(err)
	}

	metrics.RecordCartOperation("update_item")

	return s.afterMutation(ctx, cart)
}

func (s *cartService) RemoveItem(ctx context.Context, token string, itemID int64) (*models.Cart, error) {
	cart, err := s.resolveCart(ctx, s.store, token)
	if err != nil {
		return nil, err
	}

	if err := s.store.Carts().RemoveItem(ctx, cart.ID, itemID); err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundError("Cart item not found").WithDetail("item_id=" + strconv.FormatInt(itemID, 10))
		}

		return nil, errors.DatabaseError("Failed to remove cart item").WithError(err)
	}

	metrics.RecordCartOperation("remove_item")

	return s.afterMutation(ctx, cart)
}

func (s *cartService) ClearCart(ctx context.Context, token string) (*models.Cart, error) {
	cart, err := s.resolveCart(ctx, s.store, token)
	if err != nil {
		return nil, err
	}

	if err := s.store.Carts().ClearItems(ctx, cart.ID); err != nil {
		return nil, errors.DatabaseError("Failed to clear cart").WithError(err)
	}

	metrics.RecordCartOperation("clear")

	return s.afterMutation(ctx, cart)
}

func (s *cartService) afterMutation(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if err := s.store.Carts().TouchCart(ctx, cart.ID); err != nil {
		middleware.LoggerFromContext(ctx).Warn("Failed to touch cart", slog.String("cartToken", cart.Token), slog.String("error", err.Error()))
	}

	s.invalidate(ctx, cart.Token)

	return s.hydrate(ctx, s.store, cart)
}

func (s *cartService) invalidate(ctx context.Context, tokens ...string) {
	keys := make([]string, 0, len(tokens))
	for _, token := range tokens {
		keys = append(keys, cache.Key(cache.CartKeyPrefix, token))
	}

	if err := s.cache.Delete(ctx, keys...); err != nil {
		middleware.LoggerFromContext(ctx).Warn("Cart cache invalidation failed", slog.Any("keys", keys), slog.String("error", err.Error()))
	}
}

// resolveCart is the only place a public token becomes an internal cart id.
func (s *cartService) resolveCart(ctx context.Context, store repository.Store, token string) (*models.Cart, error) {
	cart, err := store.Carts().GetCartByToken(ctx, token)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundError("Cart not found").WithError(err)
		}

		return nil, errors.DatabaseError("Failed to fetch cart").WithError(err)
	}

	return cart, nil
}

func (s *cartService) resolveProduct(ctx context.Context, req *models.AddItemRequest) (*models.Product, error) {
	var (
		product *models.Product
		err     error
	)

	if req.ProductSlug != "" {
		product, err = s.store.Products().GetProductBySlug(ctx, req.ProductSlug)
	} else {
		product, err = s.store.Products().GetProductByID(ctx, req.ProductID)
	}

	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundError("Product not found").WithError(err)
		}

		return nil, errors.DatabaseError("Failed to fetch product").WithError(err)
	}

	return product, nil
}

func (s *cartService) hydrate(ctx context.Context, store repository.Store, cart *models.Cart) (*models.Cart, error) {
	items, err := store.Carts().GetItems(ctx, cart.ID)
	if err != nil {
		return nil, errors.DatabaseError("Failed to load cart items").WithError(err)
	}

	for i := range items {
		items[i].LineTotal = pricing.LineTotal(items[i].UnitPrice.Decimal, items[i].Quantity)
	}

	cart.Items = items
	cart.Totals = s.calc.ForCartItems(items)

	return cart, nil
}
