package main

import (
	"net/http"

	"github.com/diewo77/go-faktur/auth"
	"github.com/diewo77/go-faktur/httpx"
	"github.com/diewo77/go-faktur/internal/cache"
	"github.com/diewo77/go-faktur/internal/config"
	"github.com/diewo77/go-faktur/internal/handlers"
	"github.com/diewo77/go-faktur/internal/metrics"
	"github.com/diewo77/go-faktur/internal/middleware"
	"github.com/diewo77/go-faktur/internal/services"
	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

// App is the main application handler that sets up all routes.
type App struct {
	router   chi.Router
	db       *gorm.DB
	tokens   *auth.Tokens
	invoices *services.InvoiceService
}

// NewApp wires services and handlers onto a chi router.
func NewApp(db *gorm.DB, cfg *config.Config, c cache.InvoiceCache) *App {
	app := &App{
		router: chi.NewRouter(),
		db:     db,
		tokens: auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		invoices: services.NewInvoiceService(db, nil, c, services.Options{
			FallbackAuthor: cfg.Invoice.FallbackAuthor,
			NumberRetries:  cfg.Invoice.NumberRetries,
		}),
	}
	app.setupRoutes()
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	r := a.router
	r.Use(metrics.Middleware())
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logger)
	r.Use(a.tokens.Middleware)

	// Public
	r.Get("/health", a.health)
	r.Get("/healthz", a.healthz)
	r.Get("/metrics", metrics.Handler())

	// Invoices: anonymous reads; creation needs an author unless the fallback is on.
	r.Route("/invoices", handlers.NewInvoiceHandler(a.invoices).Routes)

	// Catalog and parties administration
	parties := handlers.NewCompanyHandler(services.NewParties(a.db))
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Route("/products", handlers.NewProductHandler(services.NewCatalog(a.db)).Routes)
		r.Route("/companies", parties.Routes)
		r.Route("/customers", parties.CustomerRoutes)
	})
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// healthz also checks the database.
func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	if err := a.db.WithContext(r.Context()).Exec("SELECT 1").Error; err != nil {
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
