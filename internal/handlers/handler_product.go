package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukabook/dukabook_backend/internal/apperrors"
	"github.com/dukabook/dukabook_backend/internal/core/domain"
	portssvc "github.com/dukabook/dukabook_backend/internal/core/ports/services"
	"github.com/dukabook/dukabook_backend/internal/core/services"
	"github.com/dukabook/dukabook_backend/internal/dto"
	"github.com/dukabook/dukabook_backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// productHandler handles HTTP requests related to products and their
// inventory costing state.
type productHandler struct {
	productService portssvc.ProductSvcFacade
	costingService portssvc.CostingSvcFacade
}

// newProductHandler creates a new productHandler.
func newProductHandler(ps portssvc.ProductSvcFacade, cs portssvc.CostingSvcFacade) *productHandler {
	return &productHandler{
		productService: ps,
		costingService: cs,
	}
}

// registerProductRoutes registers routes related to products and costing.
func registerProductRoutes(rg *gin.RouterGroup, productService portssvc.ProductSvcFacade, costingService portssvc.CostingSvcFacade) {
	h := newProductHandler(productService, costingService)

	products := rg.Group("/products")
	{
		products.POST("", h.createProduct)
		products.GET("/:id", h.getProduct)
		products.GET("", h.listProducts)
		products.PUT("/:id", h.updateProduct)
		products.DELETE("/:id", h.deleteProduct)

		products.POST("/:id/inbound", h.recordInbound)
		products.POST("/:id/outbound", h.valueOutbound)
		products.GET("/:id/valuation", h.getValuation)
	}
}

// createProduct godoc
// @Summary Create a new product
// @Description Registers a new product with its costing method
// @Tags products
// @Accept  json
// @Produce  json
// @Param   product body dto.CreateProductRequest true "Product details"
// @Success 201 {object} dto.ProductResponse
// @Failure 400 {object} map[string]string "Invalid input format or validation error"
// @Failure 409 {object} map[string]string "SKU already exists"
// @Failure 500 {object} map[string]string "Failed to create product"
// @Router /products [post]
func (h *productHandler) createProduct(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateProduct", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	companyID, userID, ok := actorFromContext(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("creator_user_id", userID))
	logger.Info("Received request to create product", slog.String("sku", req.SKU))

	product, err := h.productService.CreateProduct(c.Request.Context(), companyID, req, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Validation error creating product", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else if errors.Is(err, apperrors.ErrDuplicate) {
			logger.Warn("Duplicate SKU", slog.String("error", err.Error()))
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		} else {
			logger.Error("Failed to create product in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
		}
		return
	}

	logger.Info("Product created successfully", slog.String("product_id", product.ProductID))
	c.JSON(http.StatusCreated, dto.ToProductResponse(product))
}

// getProduct godoc
// @Summary Get a product by ID
// @Description Retrieves a product with its current stock and average cost
// @Tags products
// @Produce  json
// @Param   id path string true "Product ID"
// @Success 200 {object} dto.ProductResponse
// @Failure 404 {object} map[string]string "Product not found"
// @Failure 500 {object} map[string]string "Failed to retrieve product"
// @Router /products/{id} [get]
func (h *productHandler) getProduct(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	productID := c.Param("id")

	companyID, _, ok := actorFromContext(c, logger)
	if !ok {
		return
	}

	product, err := h.productService.GetProductByID(c.Request.Context(), companyID, productID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Product not found", slog.String("product_id", productID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		} else {
			logger.Error("Failed to get product from service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve product"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToProductResponse(product))
}

// listProducts godoc
// @Summary List products
// @Description Retrieves a paginated list of the company's products
// @Tags products
// @Produce  json
// @Param   limit query int false "Limit number of results" default(20)
// @Param   offset query int false "Offset for pagination" default(0)
// @Success 200 {array} dto.ProductResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 500 {object} map[string]string "Failed to list products"
// @Router /products [get]
func (h *productHandler) listProducts(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	companyID, _, ok := actorFromContext(c, logger)
	if !ok {
		return
	}

	var params dto.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ListProducts", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	products, err := h.productService.ListProducts(c.Request.Context(), companyID, params.Limit, params.Offset)
	if err != nil {
		logger.Error("Failed to list products from service", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list products"})
		return
	}

	c.JSON(http.StatusOK, dto.ToProductResponses(products))
}

// updateProduct godoc
// @Summary Update a product
// @Description Updates a product's descriptive fields; stock and cost state are owned by the costing engine
// @Tags products
// @Accept  json
// @Produce  json
// @Param   id path string true "Product ID to update"
// @Param   product body dto.UpdateProductRequest true "Product details to update"
// @Success 200 {object} dto.ProductResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Product not found"
// @Failure 500 {object} map[string]string "Failed to update product"
// @Router /products/{id} [put]
func (h *productHandler) updateProduct(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	productID := c.Param("id")

	var req dto.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateProduct", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	companyID, userID, ok := actorFromContext(c, logger)
	if !ok {
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), companyID, productID, req, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Product not found for update", slog.String("product_id", productID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		} else if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Validation error updating product", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			logger.Error("Failed to update product in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
		}
		return
	}

	logger.Info("Product updated successfully", slog.String("product_id", productID))
	c.JSON(http.StatusOK, dto.ToProductResponse(product))
}

// deleteProduct godoc
// @Summary Delete a product
// @Description Soft-deletes a product; its movement history remains
// @Tags products
// @Produce  json
// @Param   id path string true "Product ID to delete"
// @Success 204 "Product deleted"
// @Failure 404 {object} map[string]string "Product not found"
// @Failure 500 {object} map[string]string "Failed to delete product"
// @Router /products/{id} [delete]
func (h *productHandler) deleteProduct(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	productID := c.Param("id")

	companyID, userID, ok := actorFromContext(c, logger)
	if !ok {
		return
	}

	if err := h.productService.DeleteProduct(c.Request.Context(), companyID, productID, userID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Product not found for deletion", slog.String("product_id", productID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		} else {
			logger.Error("Failed to delete product in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
		}
		return
	}

	logger.Info("Product deleted successfully", slog.String("product_id", productID))
	c.Status(http.StatusNoContent)
}

// recordInbound godoc
// @Summary Record inbound stock
// @Description Registers purchased stock; FIFO appends a cost layer, WAC recomputes the rolling average
// @Tags products
// @Accept  json
// @Produce  json
// @Param   id path string true "Product ID"
// @Param   movement body dto.RecordInboundRequest true "Inbound movement details"
// @Success 200 {object} dto.ProductResponse
// @Failure 400 {object} map[string]string "Invalid input or service product"
// @Failure 404 {object} map[string]string "Product not found"
// @Failure 500 {object} map[string]string "Failed to record inbound movement"
// @Router /products/{id}/inbound [post]
func (h *productHandler) recordInbound(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	productID := c.Param("id")

	var req dto.RecordInboundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RecordInbound", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	companyID, userID, ok := actorFromContext(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("product_id", productID))
	logger.Info("Received request to record inbound stock", slog.String("quantity", req.Quantity.String()))

	product, err := h.costingService.RecordInbound(c.Request.Context(), companyID, productID, req, userID)
	if err != nil {
		h.writeCostingError(c, logger, err, "Failed to record inbound movement")
		return
	}

	logger.Info("Inbound stock recorded", slog.String("new_stock", product.CurrentStock.String()))
	c.JSON(http.StatusOK, dto.ToProductResponse(product))
}

// valueOutbound godoc
// @Summary Value an outbound stock movement
// @Description Values and applies an outbound movement, returning the unit cost assigned to it
// @Tags products
// @Accept  json
// @Produce  json
// @Param   id path string true "Product ID"
// @Param   movement body dto.ValueOutboundRequest true "Outbound movement details"
// @Success 200 {object} dto.ValueOutboundResponse
// @Failure 400 {object} map[string]string "Invalid input, no cost basis or insufficient stock"
// @Failure 404 {object} map[string]string "Product not found"
// @Failure 500 {object} map[string]string "Failed to value outbound movement"
// @Router /products/{id}/outbound [post]
func (h *productHandler) valueOutbound(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	productID := c.Param("id")

	var req dto.ValueOutboundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ValueOutbound", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	companyID, userID, ok := actorFromContext(c, logger)
	if !ok {
		return
	}

	logger = logger.With(slog.String("product_id", productID))

	unitCost, err := h.costingService.ValueOutbound(c.Request.Context(), companyID, productID, req.Quantity, userID)
	if err != nil {
		h.writeCostingError(c, logger, err, "Failed to value outbound movement")
		return
	}

	totalCost := domain.RoundMoney(unitCost.Mul(req.Quantity))
	logger.Info("Outbound movement valued", slog.String("unit_cost", unitCost.String()))
	c.JSON(http.StatusOK, dto.ValueOutboundResponse{UnitCost: unitCost, TotalCost: totalCost})
}

// getValuation godoc
// @Summary Get a product's inventory valuation
// @Description Returns the product's on-hand stock and total inventory value under its costing method
// @Tags products
// @Produce  json
// @Param   id path string true "Product ID"
// @Success 200 {object} dto.ValuationResponse
// @Failure 404 {object} map[string]string "Product not found"
// @Failure 500 {object} map[string]string "Failed to compute valuation"
// @Router /products/{id}/valuation [get]
func (h *productHandler) getValuation(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	productID := c.Param("id")

	companyID, _, ok := actorFromContext(c, logger)
	if !ok {
		return
	}

	valuation, err := h.costingService.CurrentValuation(c.Request.Context(), companyID, productID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Product not found for valuation", slog.String("product_id", productID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		} else {
			logger.Error("Failed to compute valuation", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute valuation"})
		}
		return
	}

	c.JSON(http.StatusOK, valuation)
}

// writeCostingError maps costing engine failures onto HTTP statuses. Stock
// and cost-basis violations are caller errors, not server faults.
func (h *productHandler) writeCostingError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		logger.Warn("Product not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, services.ErrServiceProductHasNoStock),
		errors.Is(err, services.ErrNoCostBasis),
		errors.Is(err, services.ErrInsufficientStock),
		errors.Is(err, services.ErrNegativeStock):
		logger.Warn("Costing rule rejected movement", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error(fallback, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
