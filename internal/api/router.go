// Package api exposes the marketplace over HTTP. Handlers decode and
// validate input, call the domain services with the caller's principal and
// translate results into the response envelope.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/safar/go-marketplace/internal/metrics"
	"github.com/safar/go-marketplace/internal/models"
)

type Services struct {
	Accounts AccountService
	Carts    CartService
	Checkout CheckoutService
	Orders   OrderService
	Catalog  CatalogService
	Tokens   TokenParser
}

type RouterConfig struct {
	RequestTimeout time.Duration
	AllowedOrigins []string
	Metrics        *metrics.Metrics
}

func NewRouter(cfg RouterConfig, svc Services) http.Handler {
	accounts := NewAccountHandler(svc.Accounts)
	carts := NewCartHandler(svc.Carts)
	checkout := NewCheckoutHandler(svc.Checkout)
	orders := NewOrdersHandler(svc.Orders)
	catalog := NewCatalogHandler(svc.Catalog)

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(cfg.Metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, CodeNotFound, "The requested resource was not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, CodeBadRequest, "Method not allowed.")
	})

	r.Post("/auth/register", accounts.Register)
	r.Post("/auth/login", accounts.Login)
	r.Get("/categories", catalog.ListCategories)
	r.Get("/categories/{id}", catalog.GetCategory)
	r.Get("/categories/{id}/descendants", catalog.GetSubtree)
	r.Get("/products/{id}", catalog.GetProduct)

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(svc.Tokens))

		r.Get("/auth/me", accounts.Me)

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(models.RoleCustomer))

			r.Route("/customer", func(r chi.Router) {
				r.Get("/cart", carts.GetCart)
				r.Post("/cart/add", carts.AddItem)
				r.Put("/cart/items/{id}", carts.UpdateQuantity)
				r.Delete("/cart/items/{id}", carts.RemoveItem)
				r.Delete("/cart", carts.ClearCart)

				r.Post("/checkout", checkout.Checkout)

				r.Get("/orders", orders.ListCustomerOrders)
				r.Get("/orders/{id}", orders.GetOrder)
			})
			r.Post("/checkout", checkout.Checkout)
		})

		r.Route("/vendor", func(r chi.Router) {
			r.Use(RequireRole(models.RoleVendor))

			r.Get("/products", catalog.ListProducts)
			r.Post("/products", catalog.CreateProduct)
			r.Put("/products/{id}", catalog.UpdateProduct)
			r.Post("/products/{id}/variants", catalog.CreateVariant)
			r.Delete("/products/{id}", catalog.DeleteProduct)
			r.Put("/variants/{id}", catalog.UpdateVariant)
			r.Delete("/variants/{id}", catalog.DeleteVariant)

			r.Get("/orders", orders.ListVendorOrders)
			r.Get("/orders/{id}", orders.GetOrder)
			r.Put("/orders/{id}/status", orders.UpdateStatus)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireRole(models.RoleAdmin))

			r.Get("/users", accounts.ListUsers)
			r.Post("/users/{id}/approve", accounts.ApproveUser)
			r.Post("/users/{id}/reject", accounts.RejectUser)
			r.Get("/vendors", accounts.ListVendors)
			r.Post("/vendors/{id}/approve", accounts.ApproveVendor)
			r.Post("/vendors/{id}/reject", accounts.RejectVendor)

			r.Post("/categories", catalog.CreateCategory)
			r.Delete("/categories/{id}", catalog.DeleteCategory)

			r.Get("/products", catalog.ListProducts)
			r.Post("/products", catalog.CreateProduct)
			r.Put("/products/{id}", catalog.UpdateProduct)
			r.Post("/products/{id}/variants", catalog.CreateVariant)
			r.Delete("/products/{id}", catalog.DeleteProduct)
			r.Put("/variants/{id}", catalog.UpdateVariant)
			r.Delete("/variants/{id}", catalog.DeleteVariant)

			r.Get("/orders", orders.ListAllOrders)
			r.Get("/orders/{id}", orders.GetOrder)
			r.Put("/orders/{id}/status", orders.UpdateStatus)
		})
	})

	return r
}
