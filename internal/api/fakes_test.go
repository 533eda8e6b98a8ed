package api

import (
	"context"
	"errors"

	"github.com/safar/go-marketplace/internal/auth"
	"github.com/safar/go-marketplace/internal/catalog"
	"github.com/safar/go-marketplace/internal/checkout"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/safar/go-marketplace/internal/orders"
	"github.com/safar/go-marketplace/internal/store"
)

var errUnexpected = errors.New("connection reset by peer")

type TokensMock map[string]auth.Principal

func (m TokensMock) Parse(token string) (auth.Principal, error) {
	p, ok := m[token]
	if !ok {
		return auth.Principal{}, auth.ErrUnauthenticated
	}
	return p, nil
}

type AccountsMock struct {
	account *auth.Account
	session *auth.Session
	page    *store.OffsetPage
	err     error

	registered auth.RegisterRequest
	gotID      int64
	gotReason  string
	gotUsers   store.UserFilter
	gotVendors store.VendorFilter
}

func (m *AccountsMock) Register(_ context.Context, req auth.RegisterRequest) (*auth.Account, error) {
	m.registered = req
	return m.account, m.err
}

func (m *AccountsMock) Login(context.Context, string, string) (*auth.Session, error) {
	return m.session, m.err
}

func (m *AccountsMock) ListUsers(_ context.Context, _ auth.Principal, f store.UserFilter, _, _ int) (*store.OffsetPage, error) {
	m.gotUsers = f
	return m.page, m.err
}

func (m *AccountsMock) ListVendors(_ context.Context, _ auth.Principal, f store.VendorFilter, _, _ int) (*store.OffsetPage, error) {
	m.gotVendors = f
	return m.page, m.err
}

func (m *AccountsMock) ApproveUser(_ context.Context, _ auth.Principal, id int64) (*auth.Account, error) {
	m.gotID = id
	return m.account, m.err
}

func (m *AccountsMock) RejectUser(_ context.Context, _ auth.Principal, id int64, reason string) (*auth.Account, error) {
	m.gotID, m.gotReason = id, reason
	return m.account, m.err
}

func (m *AccountsMock) ApproveVendor(_ context.Context, _ auth.Principal, id int64) (*auth.Account, error) {
	m.gotID = id
	return m.account, m.err
}

func (m *AccountsMock) RejectVendor(_ context.Context, _ auth.Principal, id int64, reason string) (*auth.Account, error) {
	m.gotID, m.gotReason = id, reason
	return m.account, m.err
}

type CartsMock struct {
	view    *models.CartView
	item    *models.CartItem
	created bool
	err     error

	gotVariantID int64
	gotQuantity  int
}

func (m *CartsMock) View(context.Context, auth.Principal) (*models.CartView, error) {
	return m.view, m.err
}

func (m *CartsMock) Add(_ context.Context, _ auth.Principal, variantID int64, quantity int) (*models.CartItem, bool, error) {
	m.gotVariantID, m.gotQuantity = variantID, quantity
	return m.item, m.created, m.err
}

func (m *CartsMock) Update(_ context.Context, _ auth.Principal, _ int64, quantity int) (*models.CartItem, error) {
	m.gotQuantity = quantity
	return m.item, m.err
}

func (m *CartsMock) Remove(context.Context, auth.Principal, int64) error { return m.err }
func (m *CartsMock) Clear(context.Context, auth.Principal) error         { return m.err }

type CheckoutMock struct {
	result *checkout.Result
	err    error
}

func (m *CheckoutMock) Checkout(context.Context, auth.Principal) (*checkout.Result, error) {
	return m.result, m.err
}

type OrdersMock struct {
	order  *models.Order
	cursor *store.CursorPage
	page   *store.OffsetPage
	err    error

	gotStatus string
	gotFilter orders.ListFilter
}

func (m *OrdersMock) UpdateStatus(_ context.Context, _ auth.Principal, _ int64, status string) (*models.Order, error) {
	m.gotStatus = status
	return m.order, m.err
}

func (m *OrdersMock) Get(context.Context, auth.Principal, int64) (*models.Order, error) {
	return m.order, m.err
}

func (m *OrdersMock) ListForCustomer(context.Context, auth.Principal, string, string, int) (*store.CursorPage, error) {
	return m.cursor, m.err
}

func (m *OrdersMock) ListForVendor(_ context.Context, _ auth.Principal, f orders.ListFilter) (*store.OffsetPage, error) {
	m.gotFilter = f
	return m.page, m.err
}

func (m *OrdersMock) ListAll(_ context.Context, _ auth.Principal, f orders.ListFilter) (*store.OffsetPage, error) {
	m.gotFilter = f
	return m.page, m.err
}

type CatalogMock struct {
	category *models.Category
	product  *models.Product
	variant  *models.ProductVariant
	err      error

	gotProduct store.CreateProductRequest
	gotUpdate  store.UpdateProductRequest
	gotVariant store.CreateVariantRequest
	deletedID  int64
}

func (m *CatalogMock) CreateCategory(context.Context, auth.Principal, string, string, *int64) (*models.Category, error) {
	return m.category, m.err
}

func (m *CatalogMock) DeleteCategory(context.Context, auth.Principal, int64) error { return m.err }

func (m *CatalogMock) Category(context.Context, int64) (*catalog.CategoryDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &catalog.CategoryDetail{Category: *m.category}, nil
}

func (m *CatalogMock) Categories(context.Context, *int64) ([]models.Category, error) {
	return nil, m.err
}

func (m *CatalogMock) Subtree(context.Context, int64) ([]models.Category, error) {
	return nil, m.err
}

func (m *CatalogMock) CreateProduct(_ context.Context, _ auth.Principal, req store.CreateProductRequest) (*models.Product, error) {
	m.gotProduct = req
	return m.product, m.err
}

func (m *CatalogMock) Product(context.Context, int64) (*catalog.ProductDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &catalog.ProductDetail{Product: *m.product}, nil
}

func (m *CatalogMock) ListProducts(context.Context, auth.Principal, store.ProductFilter, int, int) (*store.OffsetPage, error) {
	return nil, m.err
}

func (m *CatalogMock) UpdateProduct(_ context.Context, _ auth.Principal, _ int64, req store.UpdateProductRequest) (*models.Product, error) {
	m.gotUpdate = req
	return m.product, m.err
}

func (m *CatalogMock) CreateVariant(_ context.Context, _ auth.Principal, req store.CreateVariantRequest) (*models.ProductVariant, error) {
	m.gotVariant = req
	return m.variant, m.err
}

func (m *CatalogMock) UpdateVariant(context.Context, auth.Principal, int64, store.UpdateVariantRequest) (*models.ProductVariant, error) {
	return m.variant, m.err
}

func (m *CatalogMock) DeleteProduct(_ context.Context, _ auth.Principal, id int64) error {
	m.deletedID = id
	return m.err
}

func (m *CatalogMock) DeleteVariant(_ context.Context, _ auth.Principal, id int64) error {
	m.deletedID = id
	return m.err
}
