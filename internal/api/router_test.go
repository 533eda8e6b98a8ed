package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/safar/go-marketplace/internal/auth"
	"github.com/safar/go-marketplace/internal/cart"
	"github.com/safar/go-marketplace/internal/catalog"
	"github.com/safar/go-marketplace/internal/checkout"
	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/safar/go-marketplace/internal/orders"
	"github.com/safar/go-marketplace/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var vendorID int64 = 7

var tokens = TokensMock{
	"customer": {UserID: 1, Role: models.RoleCustomer},
	"vendor":   {UserID: 2, Role: models.RoleVendor, VendorID: &vendorID},
	"admin":    {UserID: 3, Role: models.RoleAdmin},
}

type testServer struct {
	accounts *AccountsMock
	carts    *CartsMock
	checkout *CheckoutMock
	orders   *OrdersMock
	catalog  *CatalogMock
	handler  http.Handler
}

func newTestServer() *testServer {
	ts := &testServer{
		accounts: &AccountsMock{},
		carts:    &CartsMock{},
		checkout: &CheckoutMock{},
		orders:   &OrdersMock{},
		catalog:  &CatalogMock{},
	}
	ts.handler = NewRouter(RouterConfig{AllowedOrigins: []string{"*"}}, Services{
		Accounts: ts.accounts,
		Carts:    ts.carts,
		Checkout: ts.checkout,
		Orders:   ts.orders,
		Catalog:  ts.catalog,
		Tokens:   tokens,
	})
	return ts
}

type response struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Error   string              `json:"error"`
	Errors  map[string][]string `json:"errors"`
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (int, response) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()

	ts.handler.ServeHTTP(rr, req)

	var resp response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), "body: %s", rr.Body.String())
	return rr.Code, resp
}

func TestHealth(t *testing.T) {
	ts := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestAuthentication(t *testing.T) {
	ts := newTestServer()

	tests := []struct {
		name   string
		token  string
		path   string
		status int
		code   string
	}{
		{"missing token", "", "/customer/cart", http.StatusUnauthorized, CodeUnauthenticated},
		{"unknown token", "forged", "/customer/cart", http.StatusUnauthorized, CodeUnauthenticated},
		{"vendor on customer routes", "vendor", "/customer/cart", http.StatusForbidden, CodeForbidden},
		{"customer on vendor routes", "customer", "/vendor/orders", http.StatusForbidden, CodeForbidden},
		{"vendor on admin routes", "vendor", "/admin/orders", http.StatusForbidden, CodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := ts.do(t, http.MethodGet, tt.path, tt.token, nil)
			assert.Equal(t, tt.status, status)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Error)
		})
	}
}

func TestCheckout_SingleVendorReturnsOrder(t *testing.T) {
	ts := newTestServer()
	ts.checkout.result = &checkout.Result{Orders: []*models.Order{{ID: 10, OrderNumber: "ORD-1", Total: decimal.RequireFromString("60.00")}}}

	status, resp := ts.do(t, http.MethodPost, "/customer/checkout", "customer", nil)

	assert.Equal(t, http.StatusCreated, status)
	assert.True(t, resp.Success)
	assert.Equal(t, "Checkout completed successfully", resp.Message)

	var data struct {
		Order  *models.Order   `json:"order"`
		Orders []*models.Order `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.NotNil(t, data.Order)
	assert.Equal(t, int64(10), data.Order.ID)
	assert.Nil(t, data.Orders)
}

func TestCheckout_MultiVendorReturnsOrders(t *testing.T) {
	ts := newTestServer()
	ts.checkout.result = &checkout.Result{Orders: []*models.Order{{ID: 10}, {ID: 11}}}

	status, resp := ts.do(t, http.MethodPost, "/checkout", "customer", nil)

	assert.Equal(t, http.StatusCreated, status)

	var data struct {
		Orders []*models.Order `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Len(t, data.Orders, 2)
}

func TestCheckout_Failures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{
			name:    "empty cart",
			err:     fmt.Errorf("checkout: %w", checkout.ErrEmptyCart),
			status:  http.StatusBadRequest,
			code:    CodeEmptyCart,
			message: checkout.EmptyCartMessage,
		},
		{
			name:    "rejected item",
			err:     &checkout.Error{Message: "Insufficient stock for SKU-1. Only 2 items available."},
			status:  http.StatusBadRequest,
			code:    CodeCheckoutFailed,
			message: "Insufficient stock for SKU-1. Only 2 items available.",
		},
		{
			name:    "unexpected",
			err:     errUnexpected,
			status:  http.StatusInternalServerError,
			code:    CodeInternal,
			message: "An unexpected error occurred.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			ts.checkout.err = tt.err

			status, resp := ts.do(t, http.MethodPost, "/customer/checkout", "customer", nil)

			assert.Equal(t, tt.status, status)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Error)
			assert.Equal(t, tt.message, resp.Message)
			assert.NotContains(t, resp.Message, errUnexpected.Error())
		})
	}
}

func TestCart_AddItem(t *testing.T) {
	ts := newTestServer()
	ts.carts.item = &models.CartItem{ID: 5, Quantity: 2}
	ts.carts.created = true

	status, resp := ts.do(t, http.MethodPost, "/customer/cart/add", "customer",
		map[string]any{"variant_id": 9, "quantity": 2})

	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Item added to cart successfully", resp.Message)
	assert.Equal(t, int64(9), ts.carts.gotVariantID)
	assert.Equal(t, 2, ts.carts.gotQuantity)

	ts.carts.created = false
	status, resp = ts.do(t, http.MethodPost, "/customer/cart/add", "customer",
		map[string]any{"variant_id": 9, "quantity": 1})

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Cart item updated successfully", resp.Message)
}

func TestCart_AddItemValidation(t *testing.T) {
	ts := newTestServer()

	status, resp := ts.do(t, http.MethodPost, "/customer/cart/add", "customer",
		map[string]any{"quantity": 0})

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, CodeValidation, resp.Error)
	assert.Equal(t, "Validation failed. Please check your input.", resp.Message)
	assert.Equal(t, []string{"Product variant is required."}, resp.Errors["variant_id"])
	assert.Equal(t, []string{"Quantity must be at least 1."}, resp.Errors["quantity"])
}

func TestCart_AddUnknownVariant(t *testing.T) {
	ts := newTestServer()
	ts.carts.err = database.ErrVariantNotFound

	status, resp := ts.do(t, http.MethodPost, "/customer/cart/add", "customer",
		map[string]any{"variant_id": 404, "quantity": 1})

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, []string{"Selected product variant does not exist."}, resp.Errors["variant_id"])
}

func TestCart_RuleErrors(t *testing.T) {
	ts := newTestServer()
	ts.carts.err = &cart.RuleError{Code: cart.CodeInsufficientStock, Message: "Insufficient stock. Only 3 items available."}

	status, resp := ts.do(t, http.MethodPut, "/customer/cart/items/4", "customer", map[string]any{"quantity": 5})

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, cart.CodeInsufficientStock, resp.Error)
	assert.Equal(t, "Insufficient stock. Only 3 items available.", resp.Message)
	assert.Equal(t, 5, ts.carts.gotQuantity)
}

func TestCart_NotFound(t *testing.T) {
	ts := newTestServer()
	ts.carts.err = database.ErrCartItemNotFound

	status, resp := ts.do(t, http.MethodDelete, "/customer/cart/items/4", "customer", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, CodeNotFound, resp.Error)
	assert.Equal(t, "Cart item not found.", resp.Message)

	status, resp = ts.do(t, http.MethodDelete, "/customer/cart/items/abc", "customer", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, CodeNotFound, resp.Error)
}

func TestCart_InvalidJSON(t *testing.T) {
	ts := newTestServer()

	status, resp := ts.do(t, http.MethodPost, "/customer/cart/add", "customer", "{not json")

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, CodeBadRequest, resp.Error)
}

func TestUpdateStatus(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		err     error
		status  int
		code    string
		message string
	}{
		{"vendor success", "vendor", nil, http.StatusOK, "", "Order status updated successfully"},
		{"admin success", "admin", nil, http.StatusOK, "", "Order status updated successfully"},
		{"terminal order", "vendor", fmt.Errorf("update order status: %w", &orders.StatusChangeError{Current: models.OrderStatusDelivered}),
			http.StatusBadRequest, CodeInvalidStatusChange, "Cannot change status of a delivered order."},
		{"other vendor", "vendor", auth.ErrForbidden, http.StatusForbidden, CodeForbidden, "You do not have permission to perform this action."},
		{"vendor without vendor", "vendor", auth.ErrNoVendor, http.StatusForbidden, CodeNoVendor, "User is not associated with a vendor."},
		{"unknown order", "admin", database.ErrOrderNotFound, http.StatusNotFound, CodeNotFound, "Order not found."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			ts.orders.order = &models.Order{ID: 1, Status: models.OrderStatusShipped}
			ts.orders.err = tt.err

			prefix := "/vendor"
			if tt.token == "admin" {
				prefix = "/admin"
			}
			status, resp := ts.do(t, http.MethodPut, prefix+"/orders/1/status", tt.token, map[string]string{"status": "shipped"})

			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, resp.Error)
			assert.Equal(t, tt.message, resp.Message)
			assert.Equal(t, "shipped", ts.orders.gotStatus)
		})
	}
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	ts := newTestServer()
	ts.orders.err = orders.ErrInvalidStatus

	status, resp := ts.do(t, http.MethodPut, "/vendor/orders/1/status", "vendor", map[string]string{"status": "teleported"})

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, CodeValidation, resp.Error)
	assert.Equal(t, []string{"The selected status is invalid."}, resp.Errors["status"])

	status, resp = ts.do(t, http.MethodPut, "/vendor/orders/1/status", "vendor", map[string]string{})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, []string{"The status field is required."}, resp.Errors["status"])
}

func TestListVendorOrders_Filters(t *testing.T) {
	ts := newTestServer()
	ts.orders.page = &store.OffsetPage{Items: []models.Order{}, Page: 2, PageSize: 5}

	status, resp := ts.do(t, http.MethodGet,
		"/vendor/orders?status=pending&from_date=2026-01-01&to_date=2026-01-31&page=2&per_page=5", "vendor", nil)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Orders retrieved successfully", resp.Message)
	assert.Equal(t, "pending", ts.orders.gotFilter.Status)
	assert.Equal(t, 2, ts.orders.gotFilter.Page)
	assert.Equal(t, 5, ts.orders.gotFilter.PerPage)
	require.NotNil(t, ts.orders.gotFilter.FromDate)
	assert.Equal(t, "2026-01-01", ts.orders.gotFilter.FromDate.Format(dateLayout))
	require.NotNil(t, ts.orders.gotFilter.ToDate)
	assert.Equal(t, "2026-01-31", ts.orders.gotFilter.ToDate.Format(dateLayout))
}

func TestListOrders_BadQuery(t *testing.T) {
	ts := newTestServer()

	status, resp := ts.do(t, http.MethodGet, "/admin/orders?from_date=yesterday&page=0", "admin", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, []string{"The from_date is not a valid date."}, resp.Errors["from_date"])
	assert.Equal(t, []string{"The page must be at least 1."}, resp.Errors["page"])
}

func TestListOrders_DateRange(t *testing.T) {
	ts := newTestServer()
	ts.orders.err = orders.ErrInvalidDateRange

	status, resp := ts.do(t, http.MethodGet, "/admin/orders?from_date=2026-02-01&to_date=2026-01-01", "admin", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, resp.Errors, "to_date")
}

func TestCreateProduct(t *testing.T) {
	ts := newTestServer()
	ts.catalog.product = &models.Product{ID: 1, Name: "Aviator"}

	status, resp := ts.do(t, http.MethodPost, "/vendor/products", "vendor",
		`{"category_id": 3, "name": "Aviator", "price": "129.90", "moq": 2}`)

	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Product created successfully", resp.Message)
	assert.Equal(t, int64(3), ts.catalog.gotProduct.CategoryID)
	assert.True(t, decimal.RequireFromString("129.90").Equal(ts.catalog.gotProduct.Price))
	assert.Equal(t, 2, ts.catalog.gotProduct.MOQ)
}

func TestCreateProduct_Validation(t *testing.T) {
	ts := newTestServer()

	status, resp := ts.do(t, http.MethodPost, "/admin/products", "admin",
		`{"category_id": 3, "name": "Aviator", "price": -1, "status": "archived"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, []string{"The price must be at least 0."}, resp.Errors["price"])
	assert.Equal(t, []string{"The selected status is invalid."}, resp.Errors["status"])
}

func TestCreateProduct_NonLeafCategory(t *testing.T) {
	ts := newTestServer()
	ts.catalog.err = database.ErrCategoryNotLeaf

	status, resp := ts.do(t, http.MethodPost, "/vendor/products", "vendor",
		`{"category_id": 3, "name": "Aviator", "price": 10}`)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, CodeCategoryNotLeaf, resp.Error)
}

func TestCreateVariant(t *testing.T) {
	ts := newTestServer()
	ts.catalog.variant = &models.ProductVariant{ID: 4}

	status, _ := ts.do(t, http.MethodPost, "/vendor/products/12/variants", "vendor",
		`{"sku": "AV-BLK", "price_override": "99.00", "stock": 0, "attributes": {"color": "black"}}`)

	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, int64(12), ts.catalog.gotVariant.ProductID)
	assert.True(t, ts.catalog.gotVariant.PriceOverride.Valid)
	assert.Equal(t, 0, ts.catalog.gotVariant.Stock)
	assert.Equal(t, "black", ts.catalog.gotVariant.Attributes["color"])
}

func TestUpdateVariant_Conflict(t *testing.T) {
	ts := newTestServer()
	ts.catalog.err = database.ErrOptimisticLockFailed

	status, resp := ts.do(t, http.MethodPut, "/vendor/variants/4", "vendor", `{"stock": 3, "version": 1}`)

	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, CodeConflict, resp.Error)
}

func TestRegister(t *testing.T) {
	ts := newTestServer()
	ts.accounts.account = &auth.Account{User: &models.User{ID: 1, ApprovalStatus: models.ApprovalPending}}

	status, resp := ts.do(t, http.MethodPost, "/auth/register", "",
		map[string]string{"name": "Ada", "email": "ada@example.com", "password": "secret123", "role": "vendor", "vendor_name": "Ada Optics"})

	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Registration successful. Your account is pending approval.", resp.Message)
	assert.NotContains(t, string(resp.Data), "token")
	assert.Equal(t, models.RoleVendor, ts.accounts.registered.Role)
	assert.Equal(t, "Ada Optics", ts.accounts.registered.VendorName)

	status, resp = ts.do(t, http.MethodPost, "/auth/register", "",
		map[string]string{"name": "Ada", "email": "not-an-email", "password": "short", "role": "admin"})

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, []string{"The email must be a valid email address."}, resp.Errors["email"])
	assert.Equal(t, []string{"The password must be at least 8 characters."}, resp.Errors["password"])
	assert.Equal(t, []string{"The selected role is invalid."}, resp.Errors["role"])
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ts := newTestServer()
	ts.accounts.err = auth.ErrInvalidCredentials

	status, resp := ts.do(t, http.MethodPost, "/auth/login", "",
		map[string]string{"email": "ada@example.com", "password": "wrong"})

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, CodeInvalidCredentials, resp.Error)
	assert.Equal(t, "Invalid email or password. Please check your credentials and try again.", resp.Message)
}

func TestDuplicateEmail(t *testing.T) {
	ts := newTestServer()
	ts.accounts.err = fmt.Errorf("create user: %w", database.ErrDuplicateEmail)

	status, resp := ts.do(t, http.MethodPost, "/auth/register", "",
		map[string]string{"name": "Ada", "email": "ada@example.com", "password": "secret123"})

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, []string{"The email has already been taken."}, resp.Errors["email"])
}

func TestCategories(t *testing.T) {
	ts := newTestServer()
	ts.catalog.category = &models.Category{ID: 2, Name: "Men"}

	status, resp := ts.do(t, http.MethodGet, "/categories/2", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Category retrieved successfully", resp.Message)

	ts.catalog.err = database.ErrCategoryHasChildren
	status, resp = ts.do(t, http.MethodDelete, "/admin/categories/2", "admin", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, CodeCategoryHasChildren, resp.Error)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer()

	status, resp := ts.do(t, http.MethodGet, "/nowhere", "", nil)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, CodeNotFound, resp.Error)
}

func TestCart_ClearReturnsNullData(t *testing.T) {
	ts := newTestServer()

	req := httptest.NewRequest(http.MethodDelete, "/customer/cart", nil)
	req.Header.Set("Authorization", "Bearer customer")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true,"message":"Cart cleared successfully","data":null}`, rr.Body.String())
}

func TestListCustomerOrders_BadCursor(t *testing.T) {
	ts := newTestServer()
	_, ts.orders.err = store.DecodeCursor("garbage!!")

	status, resp := ts.do(t, http.MethodGet, "/customer/orders?cursor=garbage!!", "customer", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, CodeValidation, resp.Error)
	assert.Equal(t, []string{"The cursor is invalid."}, resp.Errors["cursor"])
}

func TestLogin_PendingAccount(t *testing.T) {
	ts := newTestServer()
	ts.accounts.err = &auth.LoginRefusedError{Code: auth.CodeAccountPending, Message: "Your account is pending approval."}

	status, resp := ts.do(t, http.MethodPost, "/auth/login", "",
		map[string]string{"email": "ada@example.com", "password": "secret123"})

	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, auth.CodeAccountPending, resp.Error)
	assert.Equal(t, "Your account is pending approval.", resp.Message)
}

func TestApprovalRoutes(t *testing.T) {
	ts := newTestServer()
	ts.accounts.account = &auth.Account{User: &models.User{ID: 9, ApprovalStatus: models.ApprovalApproved}}

	status, resp := ts.do(t, http.MethodPost, "/admin/users/9/approve", "admin", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "User approved successfully", resp.Message)
	assert.Equal(t, int64(9), ts.accounts.gotID)

	status, _ = ts.do(t, http.MethodPost, "/admin/vendors/4/reject", "admin", map[string]string{"reason": "Missing tax id"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(4), ts.accounts.gotID)
	assert.Equal(t, "Missing tax id", ts.accounts.gotReason)

	status, _ = ts.do(t, http.MethodPost, "/admin/users/9/reject", "admin", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "", ts.accounts.gotReason)

	status, resp = ts.do(t, http.MethodPost, "/admin/users/9/approve", "vendor", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, CodeForbidden, resp.Error)

	ts.accounts.err = &auth.DecisionError{Code: auth.CodeAlreadyApproved, Message: "Vendor is already approved."}
	status, resp = ts.do(t, http.MethodPost, "/admin/vendors/4/approve", "admin", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, auth.CodeAlreadyApproved, resp.Error)
	assert.Equal(t, "Vendor is already approved.", resp.Message)
}

func TestListUsers_ApprovalFilter(t *testing.T) {
	ts := newTestServer()
	ts.accounts.page = &store.OffsetPage{Items: []models.User{}}

	status, _ := ts.do(t, http.MethodGet, "/admin/users?approval_status=pending&role=vendor", "admin", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, models.ApprovalPending, ts.accounts.gotUsers.ApprovalStatus)
	assert.Equal(t, models.RoleVendor, ts.accounts.gotUsers.Role)

	status, resp := ts.do(t, http.MethodGet, "/admin/vendors?status=suspended", "admin", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, []string{"The selected status is invalid."}, resp.Errors["status"])
}

func TestReject_ReasonTooLong(t *testing.T) {
	ts := newTestServer()

	long := make([]byte, 501)
	for i := range long {
		long[i] = 'x'
	}
	status, resp := ts.do(t, http.MethodPost, "/admin/users/9/reject", "admin", map[string]string{"reason": string(long)})

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, []string{"The reason may not be greater than 500 characters."}, resp.Errors["reason"])
}

func TestAssignProductToUnapprovedVendor(t *testing.T) {
	ts := newTestServer()
	ts.catalog.err = &catalog.VendorNotApprovedError{Message: "Products can only be assigned to approved vendors. Please approve the vendor first."}

	status, resp := ts.do(t, http.MethodPut, "/admin/products/5", "admin", `{"vendor_id": 8}`)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, catalog.CodeVendorNotApproved, resp.Error)
	require.NotNil(t, ts.catalog.gotUpdate.VendorID)
	assert.Equal(t, int64(8), *ts.catalog.gotUpdate.VendorID)
}

func TestDeleteRoutes(t *testing.T) {
	ts := newTestServer()

	status, resp := ts.do(t, http.MethodDelete, "/vendor/variants/21", "vendor", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Product variant deleted successfully", resp.Message)
	assert.Equal(t, int64(21), ts.catalog.deletedID)

	status, _ = ts.do(t, http.MethodDelete, "/admin/products/5", "admin", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(5), ts.catalog.deletedID)

	status, _ = ts.do(t, http.MethodDelete, "/vendor/variants/21", "customer", nil)
	assert.Equal(t, http.StatusForbidden, status)

	ts.catalog.err = fmt.Errorf("delete: %w", database.ErrProductHasOrders)
	status, resp = ts.do(t, http.MethodDelete, "/vendor/products/5", "vendor", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, CodeProductHasOrders, resp.Error)
}
