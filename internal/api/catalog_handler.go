package api

import (
	"context"
	"net/http"

	"github.com/safar/go-marketplace/internal/auth"
	"github.com/safar/go-marketplace/internal/catalog"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/safar/go-marketplace/internal/store"
	"github.com/shopspring/decimal"
)

type CatalogService interface {
	CreateCategory(ctx context.Context, actor auth.Principal, name, slug string, parentID *int64) (*models.Category, error)
	DeleteCategory(ctx context.Context, actor auth.Principal, id int64) error
	Category(ctx context.Context, id int64) (*catalog.CategoryDetail, error)
	Categories(ctx context.Context, parentID *int64) ([]models.Category, error)
	Subtree(ctx context.Context, id int64) ([]models.Category, error)

	CreateProduct(ctx context.Context, actor auth.Principal, req store.CreateProductRequest) (*models.Product, error)
	Product(ctx context.Context, id int64) (*catalog.ProductDetail, error)
	ListProducts(ctx context.Context, actor auth.Principal, filter store.ProductFilter, page, perPage int) (*store.OffsetPage, error)
	UpdateProduct(ctx context.Context, actor auth.Principal, id int64, req store.UpdateProductRequest) (*models.Product, error)
	CreateVariant(ctx context.Context, actor auth.Principal, req store.CreateVariantRequest) (*models.ProductVariant, error)
	UpdateVariant(ctx context.Context, actor auth.Principal, id int64, req store.UpdateVariantRequest) (*models.ProductVariant, error)
	DeleteProduct(ctx context.Context, actor auth.Principal, id int64) error
	DeleteVariant(ctx context.Context, actor auth.Principal, id int64) error
}

type CatalogHandler struct {
	catalog CatalogService
}

func NewCatalogHandler(svc CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: svc}
}

type CreateCategoryRequestDTO struct {
	Name     string `json:"name" validate:"required,max=255"`
	Slug     string `json:"slug" validate:"omitempty,max=255"`
	ParentID *int64 `json:"parent_id" validate:"omitempty,gt=0"`
}

type CreateProductRequestDTO struct {
	VendorID    *int64           `json:"vendor_id" validate:"omitempty,gt=0"`
	CategoryID  *int64           `json:"category_id" validate:"required,gt=0"`
	Name        string           `json:"name" validate:"required,max=255"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price" validate:"required,gte=0"`
	MOQ         *int             `json:"moq" validate:"omitempty,min=1"`
	Status      string           `json:"status" validate:"omitempty,oneof=active inactive"`
}

type UpdateProductRequestDTO struct {
	Name        *string          `json:"name" validate:"omitempty,max=255"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price" validate:"omitempty,gte=0"`
	MOQ         *int             `json:"moq" validate:"omitempty,min=1"`
	Status      *string          `json:"status" validate:"omitempty,oneof=active inactive"`
	VendorID    *int64           `json:"vendor_id" validate:"omitempty,gt=0"`
	ClearVendor bool             `json:"clear_vendor"`
}

type CreateVariantRequestDTO struct {
	SKU           string            `json:"sku" validate:"required,max=100"`
	PriceOverride *decimal.Decimal  `json:"price_override" validate:"omitempty,gte=0"`
	Stock         *int              `json:"stock" validate:"required,min=0"`
	Attributes    map[string]string `json:"attributes"`
}

type UpdateVariantRequestDTO struct {
	SKU                *string           `json:"sku" validate:"omitempty,max=100"`
	PriceOverride      *decimal.Decimal  `json:"price_override" validate:"omitempty,gte=0"`
	ClearPriceOverride bool              `json:"clear_price_override"`
	Stock              *int              `json:"stock" validate:"omitempty,min=0"`
	Attributes         map[string]string `json:"attributes"`
	Version            *int              `json:"version" validate:"omitempty,min=1"`
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	parentID := q.Int64Ptr("parent_id")
	if !q.Valid(w) {
		return
	}

	categories, err := h.catalog.Categories(r.Context(), parentID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Categories retrieved successfully", categories)
}

func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "Category not found.")
	if !ok {
		return
	}

	detail, err := h.catalog.Category(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Category retrieved successfully", detail)
}

func (h *CatalogHandler) GetSubtree(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "Category not found.")
	if !ok {
		return
	}

	descendants, err := h.catalog.Subtree(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Categories retrieved successfully", descendants)
}

func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequestDTO
	if !decodeAndValidate(w, r, &req) {
		return
	}

	category, err := h.catalog.CreateCategory(r.Context(), principal(r), req.Name, req.Slug, req.ParentID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusCreated, "Category created successfully", category)
}

func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "Category not found.")
	if !ok {
		return
	}

	if err := h.catalog.DeleteCategory(r.Context(), principal(r), id); err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Category deleted successfully", nil)
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	filter := store.ProductFilter{
		VendorID:   q.Int64Ptr("vendor_id"),
		CategoryID: q.Int64Ptr("category_id"),
		Status:     q.String("status"),
	}
	page, perPage := q.Int("page", 1), q.Int("per_page", 1)
	if !q.Valid(w) {
		return
	}

	products, err := h.catalog.ListProducts(r.Context(), principal(r), filter, page, perPage)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Products retrieved successfully", products)
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "Product not found.")
	if !ok {
		return
	}

	detail, err := h.catalog.Product(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Product retrieved successfully", detail)
}

func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequestDTO
	if !decodeAndValidate(w, r, &req) {
		return
	}

	moq := 1
	if req.MOQ != nil {
		moq = *req.MOQ
	}

	product, err := h.catalog.CreateProduct(r.Context(), principal(r), store.CreateProductRequest{
		VendorID:    req.VendorID,
		CategoryID:  *req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		MOQ:         moq,
		Status:      req.Status,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusCreated, "Product created successfully", product)
}

func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "Product not found.")
	if !ok {
		return
	}

	var req UpdateProductRequestDTO
	if !decodeAndValidate(w, r, &req) {
		return
	}

	product, err := h.catalog.UpdateProduct(r.Context(), principal(r), id, store.UpdateProductRequest{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		MOQ:         req.MOQ,
		Status:      req.Status,
		VendorID:    req.VendorID,
		ClearVendor: req.ClearVendor,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Product updated successfully", product)
}

func (h *CatalogHandler) CreateVariant(w http.ResponseWriter, r *http.Request) {
	productID, ok := urlID(w, r, "id", "Product not found.")
	if !ok {
		return
	}

	var req CreateVariantRequestDTO
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var override decimal.NullDecimal
	if req.PriceOverride != nil {
		override = decimal.NewNullDecimal(*req.PriceOverride)
	}

	variant, err := h.catalog.CreateVariant(r.Context(), principal(r), store.CreateVariantRequest{
		ProductID:     productID,
		SKU:           req.SKU,
		PriceOverride: override,
		Stock:         *req.Stock,
		Attributes:    req.Attributes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusCreated, "Product variant created successfully", variant)
}

func (h *CatalogHandler) UpdateVariant(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "Product variant not found.")
	if !ok {
		return
	}

	var req UpdateVariantRequestDTO
	if !decodeAndValidate(w, r, &req) {
		return
	}

	variant, err := h.catalog.UpdateVariant(r.Context(), principal(r), id, store.UpdateVariantRequest{
		SKU:                req.SKU,
		PriceOverride:      req.PriceOverride,
		ClearPriceOverride: req.ClearPriceOverride,
		Stock:              req.Stock,
		Attributes:         req.Attributes,
		Version:            req.Version,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Product variant updated successfully", variant)
}

func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "Product not found.")
	if !ok {
		return
	}

	if err := h.catalog.DeleteProduct(r.Context(), principal(r), id); err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Product deleted successfully", nil)
}

func (h *CatalogHandler) DeleteVariant(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "id", "Product variant not found.")
	if !ok {
		return
	}

	if err := h.catalog.DeleteVariant(r.Context(), principal(r), id); err != nil {
		writeError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, "Product variant deleted successfully", nil)
}
