package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukabook/dukabook_backend/internal/apperrors"
	"github.com/dukabook/dukabook_backend/internal/core/domain"
	portsrepo "github.com/dukabook/dukabook_backend/internal/core/ports/repositories"
	portssvc "github.com/dukabook/dukabook_backend/internal/core/ports/services"
	"github.com/dukabook/dukabook_backend/internal/dto"
	"github.com/dukabook/dukabook_backend/internal/middleware"
)

// productService provides product catalogue operations. Stock and cost state
// belongs to the costing service.
type productService struct {
	productRepo portsrepo.ProductRepositoryFacade
}

// NewProductService creates a new ProductService.
func NewProductService(productRepo portsrepo.ProductRepositoryFacade) portssvc.ProductSvcFacade {
	return &productService{productRepo: productRepo}
}

var _ portssvc.ProductSvcFacade = (*productService)(nil)

// CreateProduct registers a new product. SKU must be unique per company.
func (s *productService) CreateProduct(ctx context.Context, companyID string, req dto.CreateProductRequest, creatorUserID string) (*domain.Product, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	existing, err := s.productRepo.FindProductBySKU(ctx, companyID, req.SKU)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check SKU uniqueness: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: SKU %s already exists", apperrors.ErrDuplicate, req.SKU)
	}

	now := time.Now().UTC()
	product := domain.Product{
		ProductID:      uuid.NewString(),
		CompanyID:      companyID,
		SKU:            req.SKU,
		Name:           req.Name,
		UnitPrice:      req.UnitPrice,
		CostingMethod:  req.CostingMethod,
		IsService:      req.IsService,
		CurrentStock:   decimal.Zero,
		CurrentAvgCost: decimal.Zero,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.productRepo.SaveProduct(ctx, product); err != nil {
		logger.Error("Failed to save product", slog.String("error", err.Error()), slog.String("company_id", companyID))
		return nil, fmt.Errorf("failed to save product: %w", err)
	}

	logger.Info("Product created", slog.String("product_id", product.ProductID), slog.String("sku", product.SKU))
	return &product, nil
}

// GetProductByID retrieves a product scoped to the company.
func (s *productService) GetProductByID(ctx context.Context, companyID string, productID string) (*domain.Product, error) {
	return s.productRepo.FindProductByID(ctx, companyID, productID)
}

// ListProducts retrieves a paginated list of products.
func (s *productService) ListProducts(ctx context.Context, companyID string, limit int, offset int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.productRepo.ListProducts(ctx, companyID, limit, offset)
}

// UpdateProduct updates descriptive fields only.
func (s *productService) UpdateProduct(ctx context.Context, companyID string, productID string, req dto.UpdateProductRequest, userID string) (*domain.Product, error) {
	product, err := s.productRepo.FindProductByID(ctx, companyID, productID)
	if err != nil {
		return nil, err
	}

	updated := false
	if req.Name != nil {
		product.Name = *req.Name
		updated = true
	}
	if req.UnitPrice != nil {
		product.UnitPrice = *req.UnitPrice
		updated = true
	}
	if !updated {
		return product, nil
	}

	product.LastUpdatedAt = time.Now().UTC()
	product.LastUpdatedBy = userID
	if err := s.productRepo.UpdateProduct(ctx, *product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

// DeleteProduct soft-deletes a product. Historic adjustments and entries keep
// referencing it; all list/read queries filter deleted rows out.
func (s *productService) DeleteProduct(ctx context.Context, companyID string, productID string, userID string) error {
	if _, err := s.productRepo.FindProductByID(ctx, companyID, productID); err != nil {
		return err
	}
	return s.productRepo.SoftDeleteProduct(ctx, companyID, productID, userID, time.Now().UTC())
}
