// Package mockapi serves the storefront REST API from memory.
package mockapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/juju/errors"
	"github.com/shopspring/decimal"

	"github.com/SigNoz/ecommerce-go-storefront/internal/metrics"
	"github.com/SigNoz/ecommerce-go-storefront/internal/middleware"
	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
	"github.com/SigNoz/ecommerce-go-storefront/internal/services"
)

// maxUpload bounds multipart product forms.
const maxUpload = 10 << 20

// App holds application dependencies
type App struct {
	metrics        *metrics.AppMetrics
	userService    *services.UserService
	productService *services.ProductService
	cartService    *services.CartService
	orderService   *services.OrderService
	paymentService *services.PaymentService
}

// NewApp creates a new application instance over store.
func NewApp(store *services.Store, m *metrics.AppMetrics) *App {
	return &App{
		metrics:        m,
		userService:    services.NewUserService(store),
		productService: services.NewProductService(store),
		cartService:    services.NewCartService(store),
		orderService:   services.NewOrderService(store),
		paymentService: services.NewPaymentService(store),
	}
}

// Handler returns the routed API.
func (a *App) Handler() http.Handler {
	r := mux.NewRouter()
	a.SetupRoutes(r)
	return r
}

// SetupRoutes configures the HTTP routes
func (a *App) SetupRoutes(r *mux.Router) {
	// Middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.CORSMiddleware)
	r.Use(middleware.ErrorHandlerMiddleware)
	r.Use(middleware.MetricsMiddleware(a.metrics))

	// API Routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware(a.userService))

	// Auth
	api.HandleFunc("/auth/login/", a.LoginHandler).Methods("POST")
	api.HandleFunc("/auth/register/", a.RegisterHandler).Methods("POST")
	api.HandleFunc("/auth/me/", middleware.RequireUser(a.MeHandler)).Methods("GET")
	api.HandleFunc("/auth/profile/", middleware.RequireUser(a.UpdateProfileHandler)).Methods("PUT")

	// Products
	api.HandleFunc("/products/", a.ListProductsHandler).Methods("GET")
	api.HandleFunc("/products/", middleware.RequireAdmin(a.CreateProductHandler)).Methods("POST")
	api.HandleFunc("/products/categories/", a.CategoriesHandler).Methods("GET")
	api.HandleFunc("/products/featured/", a.FeaturedHandler).Methods("GET")
	api.HandleFunc("/products/{id:[0-9]+}/", a.GetProductHandler).Methods("GET")
	api.HandleFunc("/products/{id:[0-9]+}/", middleware.RequireAdmin(a.UpdateProductHandler)).Methods("PUT")
	api.HandleFunc("/products/{id:[0-9]+}/", middleware.RequireAdmin(a.DeleteProductHandler)).Methods("DELETE")

	// Cart
	api.HandleFunc("/cart/", middleware.RequireUser(a.GetCartHandler)).Methods("GET")
	api.HandleFunc("/cart/add/", middleware.RequireUser(a.AddToCartHandler)).Methods("POST")
	api.HandleFunc("/cart/update/{id:[0-9]+}/", middleware.RequireUser(a.UpdateCartItemHandler)).Methods("PUT")
	api.HandleFunc("/cart/remove/{id:[0-9]+}/", middleware.RequireUser(a.RemoveFromCartHandler)).Methods("DELETE")
	api.HandleFunc("/cart/clear/", middleware.RequireUser(a.ClearCartHandler)).Methods("DELETE")

	// Orders
	api.HandleFunc("/orders/", middleware.RequireUser(a.ListOrdersHandler)).Methods("GET")
	api.HandleFunc("/orders/create/", middleware.RequireUser(a.CreateOrderHandler)).Methods("POST")
	api.HandleFunc("/orders/admin/all/", middleware.RequireAdmin(a.ListAllOrdersHandler)).Methods("GET")
	api.HandleFunc("/orders/admin/{id}/status/", middleware.RequireAdmin(a.UpdateOrderStatusHandler)).Methods("PUT")
	api.HandleFunc("/orders/{id}/", middleware.RequireUser(a.GetOrderHandler)).Methods("GET")
	api.HandleFunc("/orders/{id}/cancel/", middleware.RequireUser(a.CancelOrderHandler)).Methods("POST")
	api.HandleFunc("/orders/{id}/receipt-pdf/", middleware.RequireUser(a.ReceiptHandler)).Methods("GET")

	// Payments
	api.HandleFunc("/payments/create-intent/", middleware.RequireUser(a.CreatePaymentIntentHandler)).Methods("POST")

	// Health
	r.HandleFunc("/health", a.HealthHandler).Methods("GET")
}

// HealthHandler handles health check requests
func (a *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// LoginHandler handles POST /api/auth/login/
func (a *App) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginCredentials
	if !decode(w, r, &req) {
		return
	}
	resp, err := a.userService.Login(req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// RegisterHandler handles POST /api/auth/register/
func (a *App) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterData
	if !decode(w, r, &req) {
		return
	}
	resp, err := a.userService.Register(req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// MeHandler handles GET /api/auth/me/
func (a *App) MeHandler(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.User(r)
	user, err := a.userService.GetUser(u.ID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateProfileHandler handles PUT /api/auth/profile/
func (a *App) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ProfileUpdate
	if !decode(w, r, &req) {
		return
	}
	u, _ := middleware.User(r)
	user, err := a.userService.UpdateProfile(u.ID, req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ListProductsHandler handles GET /api/products/
func (a *App) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	q := models.ProductQuery{
		Search:   r.URL.Query().Get("search"),
		Category: r.URL.Query().Get("category"),
	}
	if p := r.URL.Query().Get("page"); p != "" {
		page, err := strconv.Atoi(p)
		if err != nil || page < 1 {
			middleware.WriteError(w, http.StatusNotFound, "Invalid page.")
			return
		}
		q.Page = page
	}
	u, _ := middleware.User(r)
	writeJSON(w, http.StatusOK, a.productService.ListProducts(q, u.IsAdmin()))
}

// GetProductHandler handles GET /api/products/{id}/
func (a *App) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	product, err := a.productService.GetProduct(pathID(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// CategoriesHandler handles GET /api/products/categories/
func (a *App) CategoriesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.productService.Categories())
}

// FeaturedHandler handles GET /api/products/featured/
func (a *App) FeaturedHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.productService.Featured())
}

// CreateProductHandler handles multipart POST /api/products/
func (a *App) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	form, err := parseProductForm(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	u, _ := middleware.User(r)
	product, err := a.productService.CreateProduct(form, u)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

// UpdateProductHandler handles multipart PUT /api/products/{id}/
func (a *App) UpdateProductHandler(w http.ResponseWriter, r *http.Request) {
	form, err := parseProductForm(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	product, err := a.productService.UpdateProduct(pathID(r), form)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// DeleteProductHandler handles DELETE /api/products/{id}/
func (a *App) DeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.productService.DeleteProduct(pathID(r)); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetCartHandler handles GET /api/cart/
func (a *App) GetCartHandler(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.User(r)
	writeJSON(w, http.StatusOK, a.cartService.GetCart(u.ID))
}

// AddToCartHandler handles POST /api/cart/add/
func (a *App) AddToCartHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AddToCartRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	u, _ := middleware.User(r)
	if err := a.cartService.AddToCart(r.Context(), u.ID, req.ProductID, req.Quantity); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a.cartService.GetCart(u.ID))
}

// UpdateCartItemHandler handles PUT /api/cart/update/{id}/
func (a *App) UpdateCartItemHandler(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateCartItemRequest
	if !decode(w, r, &req) {
		return
	}
	u, _ := middleware.User(r)
	if err := a.cartService.UpdateCartItem(r.Context(), u.ID, pathID(r), req.Quantity); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.cartService.GetCart(u.ID))
}

// RemoveFromCartHandler handles DELETE /api/cart/remove/{id}/
func (a *App) RemoveFromCartHandler(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.User(r)
	if err := a.cartService.RemoveFromCart(r.Context(), u.ID, pathID(r)); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearCartHandler handles DELETE /api/cart/clear/
func (a *App) ClearCartHandler(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.User(r)
	a.cartService.ClearCart(r.Context(), u.ID)
	w.WriteHeader(http.StatusNoContent)
}

// ListOrdersHandler handles GET /api/orders/
func (a *App) ListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.User(r)
	writeJSON(w, http.StatusOK, a.orderService.ListUserOrders(u.ID))
}

// ListAllOrdersHandler handles GET /api/orders/admin/all/
func (a *App) ListAllOrdersHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.orderService.ListAllOrders())
}

// CreateOrderHandler handles POST /api/orders/create/
func (a *App) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req models.OrderCreate
	if !decode(w, r, &req) {
		return
	}
	u, _ := middleware.User(r)
	order, err := a.orderService.CreateOrder(r.Context(), u, req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// GetOrderHandler handles GET /api/orders/{id}/
func (a *App) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.User(r)
	order, err := a.orderService.GetOrder(u, mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// CancelOrderHandler handles POST /api/orders/{id}/cancel/
func (a *App) CancelOrderHandler(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.User(r)
	order, err := a.orderService.CancelOrder(u, mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// ReceiptHandler handles GET /api/orders/{id}/receipt-pdf/
func (a *App) ReceiptHandler(w http.ResponseWriter, r *http.Request) {
	u, _ := middleware.User(r)
	id := mux.Vars(r)["id"]
	pdf, err := a.orderService.Receipt(u, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="order_%s_receipt.pdf"`, id))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	_, _ = w.Write(pdf)
}

// UpdateOrderStatusHandler handles PUT /api/orders/admin/{id}/status/
func (a *App) UpdateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	var req models.OrderStatusUpdate
	if !decode(w, r, &req) {
		return
	}
	order, err := a.orderService.UpdateOrderStatus(mux.Vars(r)["id"], req.Status)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// CreatePaymentIntentHandler handles POST /api/payments/create-intent/
func (a *App) CreatePaymentIntentHandler(w http.ResponseWriter, r *http.Request) {
	var req models.PaymentIntentRequest
	if !decode(w, r, &req) {
		return
	}
	intent, err := a.paymentService.CreateIntent(req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

// parseProductForm reads the multipart admin product form. The uploaded
// image is discarded; only its file name is kept.
func parseProductForm(r *http.Request) (models.ProductForm, error) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		return models.ProductForm{}, errors.NewBadRequest(err, "invalid multipart form")
	}
	form := models.ProductForm{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		IsActive:    true,
	}
	var err error
	if form.Price, err = decimal.NewFromString(r.FormValue("price")); err != nil {
		return form, errors.NotValidf("price %q", r.FormValue("price"))
	}
	if form.Category, err = strconv.ParseInt(r.FormValue("category"), 10, 64); err != nil {
		return form, errors.NotValidf("category %q", r.FormValue("category"))
	}
	if form.Stock, err = strconv.Atoi(r.FormValue("stock")); err != nil {
		return form, errors.NotValidf("stock %q", r.FormValue("stock"))
	}
	if v := r.FormValue("is_active"); v != "" {
		if form.IsActive, err = strconv.ParseBool(v); err != nil {
			return form, errors.NotValidf("is_active %q", v)
		}
	}
	file, header, err := r.FormFile("image")
	switch {
	case err == http.ErrMissingFile:
	case err != nil:
		return form, errors.NewBadRequest(err, "invalid image")
	default:
		defer file.Close()
		if _, err := io.Copy(io.Discard, file); err != nil {
			return form, errors.NewBadRequest(err, "reading image")
		}
		form.ImagePath = header.Filename
	}
	return form, nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err != io.EOF {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps service errors onto HTTP statuses.
func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errors.NotValid), errors.Is(err, errors.BadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, errors.Unauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, errors.Forbidden):
		status = http.StatusForbidden
	case errors.Is(err, errors.NotFound):
		status = http.StatusNotFound
	case errors.Is(err, errors.AlreadyExists):
		status = http.StatusConflict
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Errorf("%v", err)
		msg = "Internal Server Error"
	}
	middleware.WriteError(w, status, capitalize(msg))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
