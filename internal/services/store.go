// Package services holds the in-memory backend behind the mock API.
package services

import (
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/loggo"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/SigNoz/ecommerce-go-storefront/internal/metrics"
	"github.com/SigNoz/ecommerce-go-storefront/internal/models"
)

var logger = loggo.GetLogger("storefront.mockapi.services")

// Store is the state shared by all services. One mutex guards everything;
// the mock API never holds it across I/O.
type Store struct {
	mu      sync.Mutex
	clock   clock.Clock
	metrics *metrics.AppMetrics
	nextID  int64

	users      map[int64]*userRecord
	tokens     map[string]int64
	categories map[int64]*models.Category
	products   map[int64]*models.Product
	carts      map[int64]*cartRecord
	orders     []*orderRecord
	intents    map[string]*intentRecord
}

type userRecord struct {
	user         models.User
	passwordHash []byte
}

// cartRecord references products by id so a fetched cart always embeds the
// current product.
type cartRecord struct {
	id        int64
	lines     []cartLine
	createdAt time.Time
	updatedAt time.Time
}

type cartLine struct {
	id        int64
	productID int64
	quantity  int
	createdAt time.Time
}

type orderRecord struct {
	order  models.Order
	userID int64
}

type intentRecord struct {
	id       string
	secret   string
	amount   int64
	currency string
}

// NewStore returns an empty store. A nil clock means the wall clock.
func NewStore(clk clock.Clock, m *metrics.AppMetrics) *Store {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Store{
		clock:      clk,
		metrics:    m,
		users:      make(map[int64]*userRecord),
		tokens:     make(map[string]int64),
		categories: make(map[int64]*models.Category),
		products:   make(map[int64]*models.Product),
		carts:      make(map[int64]*cartRecord),
		intents:    make(map[string]*intentRecord),
	}
}

// id returns the next identifier. Callers hold s.mu.
func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) now() time.Time {
	return s.clock.Now().UTC()
}

// Demo accounts created by Seed.
const (
	AdminEmail       = "admin@example.com"
	AdminPassword    = "admin12345"
	CustomerEmail    = "customer@example.com"
	CustomerPassword = "customer123"
)

type seedProduct struct {
	name, description, price string
	category                 string
	stock                    int
}

var seedCatalog = []seedProduct{
	{"Wireless Headphones", "Over-ear, noise cancelling, 30h battery", "129.99", "Electronics", 12},
	{"USB-C Charger", "65W GaN wall charger", "39.50", "Electronics", 5},
	{"Mechanical Keyboard", "Hot-swappable switches, aluminium case", "89.00", "Electronics", 0},
	{"The Go Programming Language", "Donovan and Kernighan", "34.99", "Books", 25},
	{"Distributed Systems", "Principles and paradigms", "54.00", "Books", 3},
	{"Ceramic Mug", "350ml, dishwasher safe", "12.00", "Home", 40},
	{"Desk Lamp", "Dimmable LED with USB port", "27.45", "Home", 8},
}

// Seed fills the store with a demo admin, a demo customer and a small
// catalog.
func (s *Store) Seed() error {
	admin, err := s.addUser(models.User{
		Username: "admin", Email: AdminEmail, FirstName: "Store", LastName: "Admin", Role: models.RoleAdmin,
	}, AdminPassword)
	if err != nil {
		return err
	}
	if _, err := s.addUser(models.User{
		Username: "customer", Email: CustomerEmail, FirstName: "Casey", LastName: "Customer",
		Role: models.RoleCustomer, Address: "221B Baker Street, London",
	}, CustomerPassword); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	byName := make(map[string]int64)
	for _, name := range []string{"Electronics", "Books", "Home"} {
		cat := &models.Category{ID: s.id(), Name: name, Description: name + " products", CreatedAt: s.now()}
		s.categories[cat.ID] = cat
		byName[name] = cat.ID
	}
	for _, p := range seedCatalog {
		product := &models.Product{
			ID:            s.id(),
			Name:          p.name,
			Description:   p.description,
			Price:         decimal.RequireFromString(p.price),
			Category:      byName[p.category],
			CategoryName:  p.category,
			Stock:         p.stock,
			IsActive:      true,
			IsInStock:     p.stock > 0,
			CreatedBy:     admin.ID,
			CreatedByName: admin.Username,
			CreatedAt:     s.now(),
			UpdatedAt:     s.now(),
		}
		s.products[product.ID] = product
		s.categories[product.Category].ProductsCount++
	}
	logger.Infof("seeded %d categories and %d products", len(s.categories), len(s.products))
	return nil
}

func (s *Store) addUser(u models.User, password string) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return models.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.id()
	u.DateJoined = s.now()
	s.users[u.ID] = &userRecord{user: u, passwordHash: hash}
	return u, nil
}
