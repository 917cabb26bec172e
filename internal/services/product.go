package service

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"strings"

	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
)

type ProductService interface {
	CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error)
	GetProduct(ctx context.Context, slug string) (*models.Product, error)
}

type productService struct {
	repo repository.ProductRepository
}

func NewProductService(repo repository.ProductRepository) ProductService {
	return &productService{repo: repo}
}

func (s *productService) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	if req.Price.IsNegative() {
		return nil, errors.AddValidationError("price", "must not be negative")
	}

	if req.StockQuantity < 0 {
		return nil, errors.AddValidationError("stock_quantity", "must not be negative")
	}

	product := &models.Product{
		Slug:          strings.ToLower(strings.TrimSpace(req.Slug)),
		SKU:           strings.TrimSpace(req.SKU),
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Price:         models.NewMoney(req.Price.Round(2)),
		StockQuantity: req.StockQuantity,
		IsActive:      true,
	}

	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		if stdErrors.Is(err, repository.ErrDuplicateEntry) {
			return nil, errors.DuplicateEntryError("Product with this slug or SKU already exists").WithError(err)
		}

		return nil, errors.DatabaseError("Failed to create product").WithError(err)
	}

	return product, nil
}

// GetProduct only returns active products.
func (s *productService) GetProduct(ctx context.Context, slug string) (*models.Product, error) {
	product, err := s.repo.GetProductBySlug(ctx, slug)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundError("Product not found").WithError(err)
		}

		return nil, errors.DatabaseError("Failed to fetch product").WithError(err)
	}

	return product, nil
}
