// Package catalog manages categories, products and variants on behalf of
// vendors and admins.
package catalog

import (
	"context"
	"database/sql"
	"regexp"
	"strings"

	"github.com/safar/go-marketplace/internal/auth"
	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/safar/go-marketplace/internal/store"
)

const PathSeparator = " > "

const CodeVendorNotApproved = "VENDOR_NOT_APPROVED"

// VendorNotApprovedError refuses to give a product to a vendor that is not
// approved. Message is safe to show to the caller.
type VendorNotApprovedError struct {
	Message string
}

func (e *VendorNotApprovedError) Error() string { return e.Message }

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases name and joins its alphanumeric runs with dashes.
func Slugify(name string) string {
	return strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

type CategoryDetail struct {
	models.Category
	Path      string            `json:"path"`
	IsLeaf    bool              `json:"is_leaf"`
	Ancestors []models.Category `json:"ancestors"`
	Children  []models.Category `json:"children"`
}

func (s *Service) CreateCategory(ctx context.Context, actor auth.Principal, name, slug string, parentID *int64) (*models.Category, error) {
	if err := auth.Authorize(actor, auth.CapManageCategories); err != nil {
		return nil, err
	}
	if slug == "" {
		slug = Slugify(name)
	}
	return store.CreateCategory(ctx, s.db, name, slug, parentID)
}

func (s *Service) DeleteCategory(ctx context.Context, actor auth.Principal, id int64) error {
	if err := auth.Authorize(actor, auth.CapManageCategories); err != nil {
		return err
	}
	return store.DeleteCategory(ctx, s.db, id)
}

func (s *Service) Category(ctx context.Context, id int64) (*CategoryDetail, error) {
	category, err := store.GetCategory(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	ancestors, err := store.CategoryAncestors(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	children, err := store.ListCategories(ctx, s.db, &id)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(ancestors)+1)
	for _, a := range ancestors {
		names = append(names, a.Name)
	}
	names = append(names, category.Name)

	if ancestors == nil {
		ancestors = []models.Category{}
	}

	return &CategoryDetail{
		Category:  *category,
		Path:      strings.Join(names, PathSeparator),
		IsLeaf:    len(children) == 0,
		Ancestors: ancestors,
		Children:  children,
	}, nil
}

// Categories lists the children of parentID, or the roots when it is nil.
func (s *Service) Categories(ctx context.Context, parentID *int64) ([]models.Category, error) {
	return store.ListCategories(ctx, s.db, parentID)
}

// Subtree returns every category below id, nearest levels first.
func (s *Service) Subtree(ctx context.Context, id int64) ([]models.Category, error) {
	if _, err := store.GetCategory(ctx, s.db, id); err != nil {
		return nil, err
	}
	return store.CategoryDescendants(ctx, s.db, id)
}

// ownsProduct reports whether actor may edit product. Admins may edit any
// product; vendors only their own.
func ownsProduct(actor auth.Principal, product *models.Product) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}
	return actor.VendorID != nil && product.VendorID != nil && *actor.VendorID == *product.VendorID
}

// productScope resolves the vendor a new product belongs to: the vendor's
// own id, or for admins the requested vendor (nil for admin-owned).
func productScope(actor auth.Principal, requested *int64) (*int64, error) {
	if actor.Role == models.RoleAdmin {
		return requested, nil
	}
	vendorID, err := actor.VendorScope()
	if err != nil {
		return nil, err
	}
	return &vendorID, nil
}

func (s *Service) CreateProduct(ctx context.Context, actor auth.Principal, req store.CreateProductRequest) (*models.Product, error) {
	if err := auth.Authorize(actor, auth.CapManageProducts); err != nil {
		return nil, err
	}

	vendorID, err := productScope(actor, req.VendorID)
	if err != nil {
		return nil, err
	}
	if vendorID != nil {
		if err := s.requireApprovedVendor(ctx, *vendorID,
			"Products can only be created for approved vendors. Please approve the vendor first."); err != nil {
			return nil, err
		}
	}
	req.VendorID = vendorID

	return store.CreateProduct(ctx, s.db, req)
}

func (s *Service) requireApprovedVendor(ctx context.Context, vendorID int64, message string) error {
	vendor, err := store.GetVendor(ctx, s.db, vendorID)
	if err != nil {
		return err
	}
	if !vendor.IsApproved() {
		return &VendorNotApprovedError{Message: message}
	}
	return nil
}

type ProductDetail struct {
	models.Product
	Variants []models.ProductVariant `json:"variants"`
}

func (s *Service) Product(ctx context.Context, id int64) (*ProductDetail, error) {
	product, err := store.GetProduct(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	variants, err := store.ListVariants(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	return &ProductDetail{Product: *product, Variants: variants}, nil
}

// ListProducts lists products; vendors only ever see their own.
func (s *Service) ListProducts(ctx context.Context, actor auth.Principal, filter store.ProductFilter, page, perPage int) (*store.OffsetPage, error) {
	if err := auth.Authorize(actor, auth.CapManageProducts); err != nil {
		return nil, err
	}
	if actor.Role == models.RoleVendor {
		vendorID, err := actor.VendorScope()
		if err != nil {
			return nil, err
		}
		filter.VendorID = &vendorID
	}
	if perPage <= 0 {
		perPage = 15
	}
	return store.ListProducts(ctx, s.db, filter, max(page, 1), min(perPage, 100))
}

func (s *Service) UpdateProduct(ctx context.Context, actor auth.Principal, id int64, req store.UpdateProductRequest) (*models.Product, error) {
	if err := auth.Authorize(actor, auth.CapManageProducts); err != nil {
		return nil, err
	}
	product, err := store.GetProduct(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if !ownsProduct(actor, product) {
		return nil, auth.ErrForbidden
	}
	if req.Reassigns() && actor.Role != models.RoleAdmin {
		return nil, auth.ErrForbidden
	}
	if req.VendorID != nil && !req.ClearVendor {
		if err := s.requireApprovedVendor(ctx, *req.VendorID,
			"Products can only be assigned to approved vendors. Please approve the vendor first."); err != nil {
			return nil, err
		}
	}
	return store.UpdateProduct(ctx, s.db, id, req)
}

// DeleteProduct removes a product and its variants. Products that were ever
// ordered are kept; deactivate them instead.
func (s *Service) DeleteProduct(ctx context.Context, actor auth.Principal, id int64) error {
	if err := auth.Authorize(actor, auth.CapManageProducts); err != nil {
		return err
	}

	return database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(uow *database.UnitOfWork) error {
		product, err := store.GetProduct(ctx, uow, id)
		if err != nil {
			return err
		}
		if !ownsProduct(actor, product) {
			return auth.ErrForbidden
		}

		ordered, err := store.ProductHasOrders(ctx, uow, id)
		if err != nil {
			return err
		}
		if ordered {
			return database.ErrProductHasOrders
		}

		return store.DeleteProduct(ctx, uow, id)
	})
}

// DeleteVariant removes a variant. Carts holding it keep the line at a zero
// subtotal until checkout rejects it or the customer removes it.
func (s *Service) DeleteVariant(ctx context.Context, actor auth.Principal, id int64) error {
	if err := auth.Authorize(actor, auth.CapManageProducts); err != nil {
		return err
	}

	return database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(uow *database.UnitOfWork) error {
		variant, err := store.GetVariantWithProduct(ctx, uow, id)
		if err != nil {
			return err
		}
		if !ownsProduct(actor, variant.Product) {
			return auth.ErrForbidden
		}

		return store.DeleteVariant(ctx, uow, id)
	})
}

// CreateVariant adds a variant and its attributes in one unit of work.
func (s *Service) CreateVariant(ctx context.Context, actor auth.Principal, req store.CreateVariantRequest) (*models.ProductVariant, error) {
	if err := auth.Authorize(actor, auth.CapManageProducts); err != nil {
		return nil, err
	}

	var variant *models.ProductVariant
	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(uow *database.UnitOfWork) error {
		product, err := store.GetProduct(ctx, uow, req.ProductID)
		if err != nil {
			return err
		}
		if !ownsProduct(actor, product) {
			return auth.ErrForbidden
		}

		variant, err = store.CreateVariant(ctx, uow, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return variant, nil
}

// UpdateVariant edits a variant. Stock changes go through the ledger.
func (s *Service) UpdateVariant(ctx context.Context, actor auth.Principal, id int64, req store.UpdateVariantRequest) (*models.ProductVariant, error) {
	if err := auth.Authorize(actor, auth.CapManageProducts); err != nil {
		return nil, err
	}

	var variant *models.ProductVariant
	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(uow *database.UnitOfWork) error {
		current, err := store.GetVariantWithProduct(ctx, uow, id)
		if err != nil {
			return err
		}
		if !ownsProduct(actor, current.Product) {
			return auth.ErrForbidden
		}

		variant, err = store.UpdateVariant(ctx, uow, id, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return variant, nil
}
