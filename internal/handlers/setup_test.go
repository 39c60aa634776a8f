package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/go-faktur/auth"
	"github.com/diewo77/go-faktur/internal/db"
	"github.com/diewo77/go-faktur/internal/models"
	"github.com/diewo77/go-faktur/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	db       *gorm.DB
	router   chi.Router
	user     models.User
	company  models.Company
	customer models.Customer
	paracet  models.Product // stock 10
	antimo   models.Product // stock 2
}

func intPtr(n int) *int { return &n }

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), db.GormConfig(false))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(conn))
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	})

	e := &testEnv{db: conn}
	e.user = models.User{Name: "Tera", Username: "admin", PasswordHash: "x"}
	require.NoError(t, conn.Create(&e.user).Error)
	e.company = models.Company{Name: "Apotek Kimia Farma"}
	require.NoError(t, conn.Create(&e.company).Error)
	e.customer = models.Customer{Name: "Dr. Ahmad Fauzi", CompanyID: &e.company.ID}
	require.NoError(t, conn.Create(&e.customer).Error)
	e.paracet = models.Product{Name: "Paracetamol 500mg", Price: decimal.NewFromInt(1000), Stock: intPtr(10)}
	require.NoError(t, conn.Create(&e.paracet).Error)
	e.antimo = models.Product{Name: "Antimo Tablet", Price: decimal.NewFromInt(500), Stock: intPtr(2)}
	require.NoError(t, conn.Create(&e.antimo).Error)

	clock := func() time.Time { return time.Date(2025, 8, 11, 9, 0, 0, 0, time.Local) }
	svc := services.NewInvoiceService(conn, services.NewNumbering(clock), nil, services.Options{NumberRetries: 3})
	parties := NewCompanyHandler(services.NewParties(conn))

	r := chi.NewRouter()
	r.Route("/invoices", NewInvoiceHandler(svc).Routes)
	r.Route("/products", NewProductHandler(services.NewCatalog(conn)).Routes)
	r.Route("/companies", parties.Routes)
	r.Route("/customers", parties.CustomerRoutes)
	e.router = r
	return e
}

type response struct {
	Message    string            `json:"message"`
	Data       json.RawMessage   `json:"data"`
	Error      string            `json:"error"`
	Errors     map[string]string `json:"errors"`
	Pagination *struct {
		Page  int   `json:"page"`
		Limit int   `json:"limit"`
		Total int64 `json:"total"`
	} `json:"pagination"`
}

// do sends body (when non-empty) as JSON; userID 0 means anonymous.
func (e *testEnv) do(t *testing.T, method, path, body string, userID uint) (int, response) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req = req.WithContext(auth.WithUserID(req.Context(), userID))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var res response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), "body=%s", w.Body.String())
	return w.Code, res
}

func (e *testEnv) stock(t *testing.T, p models.Product) int {
	t.Helper()
	var got models.Product
	require.NoError(t, e.db.First(&got, p.ID).Error)
	require.NotNil(t, got.Stock)
	return *got.Stock
}

func decodeData(t *testing.T, res response, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(res.Data, dst), "data=%s", string(res.Data))
}
