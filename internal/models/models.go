package models

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Role gates the admin views.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// User represents a user account
type User struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Role       Role      `json:"role"`
	Phone      string    `json:"phone,omitempty"`
	Address    string    `json:"address,omitempty"`
	DateJoined time.Time `json:"date_joined"`
}

// Name returns the display name of the user.
func (u User) Name() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsAdmin reports whether the user may use the admin views.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Product represents a product in the catalog
type Product struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Category      int64           `json:"category"`
	CategoryName  string          `json:"category_name"`
	Image         string          `json:"image,omitempty"`
	Stock         int             `json:"stock"`
	IsActive      bool            `json:"is_active"`
	IsInStock     bool            `json:"is_in_stock"`
	CreatedBy     int64           `json:"created_by"`
	CreatedByName string          `json:"created_by_name"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Category is read-only reference data.
type Category struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	ProductsCount int       `json:"products_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// Cart represents the shopping cart of the logged-in user. It is always a
// verbatim server snapshot.
type Cart struct {
	ID         int64           `json:"id"`
	Items      []CartItem      `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	TotalItems int             `json:"total_items"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// IsEmpty reports whether the cart is missing or has no items.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// Item returns the cart item with the given id.
func (c *Cart) Item(id int64) (CartItem, bool) {
	if c == nil {
		return CartItem{}, false
	}
	for _, item := range c.Items {
		if item.ID == id {
			return item, true
		}
	}
	return CartItem{}, false
}

// Clone returns a deep copy of the cart.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := *c
	out.Items = slices.Clone(c.Items)
	return &out
}

// CartItem represents an item in a cart
type CartItem struct {
	ID         int64           `json:"id"`
	Product    Product         `json:"product"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// OrderStatuses lists every order status in display order.
var OrderStatuses = []OrderStatus{
	OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled,
}

// Valid reports whether s is one of the five order statuses.
func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// PaymentStatus is the settlement state of an order.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Order represents an order
type Order struct {
	ID              string          `json:"id"`
	UserEmail       string          `json:"user_email"`
	Status          OrderStatus     `json:"status"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ShippingAddress string          `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItem is an immutable snapshot taken when the order was created.
type OrderItem struct {
	ID         int64           `json:"id"`
	Product    Product         `json:"product"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// Page is the paginated list envelope returned by the API.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// ProductQuery selects a page of the product catalog.
type ProductQuery struct {
	Page     int
	Search   string
	Category string
}

// LoginCredentials represents a login request
type LoginCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterData represents a registration request
type RegisterData struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	Phone           string `json:"phone,omitempty"`
	Address         string `json:"address,omitempty"`
}

// ProfileUpdate represents a profile update request
type ProfileUpdate struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

// Tokens holds the credentials issued on login.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// AuthResponse is returned by the login endpoint.
type AuthResponse struct {
	User   User   `json:"user"`
	Tokens Tokens `json:"tokens"`
}

// AddToCartRequest represents a request to add item to cart
type AddToCartRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// UpdateCartItemRequest sets the absolute quantity of a cart item.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// Payment methods offered at checkout.
const (
	PaymentMethodCard   = "stripe"
	PaymentMethodManual = "mock"
)

// OrderCreate represents a request to create an order
type OrderCreate struct {
	ShippingAddress string `json:"shipping_address"`
	PostalCode      string `json:"postal_code"`
	PaymentMethod   string `json:"payment_method"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
}

// OrderStatusUpdate represents an admin status change
type OrderStatusUpdate struct {
	Status OrderStatus `json:"status"`
}

// PaymentIntentRequest asks the backend for a short-lived card authorization secret.
type PaymentIntentRequest struct {
	Amount      int64  `json:"amount"` // smallest currency unit
	Currency    string `json:"currency"`
	Description string `json:"description"`
}

// PaymentIntent is the backend's answer to a PaymentIntentRequest.
type PaymentIntent struct {
	ClientSecret string `json:"client_secret"`
	ID           string `json:"payment_intent_id,omitempty"`
}

// ProductForm is the admin create/update payload, sent as multipart form data.
type ProductForm struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Category    int64
	Stock       int
	IsActive    bool
	// ImagePath, when set, replaces the product image with the file's contents.
	ImagePath string
}
