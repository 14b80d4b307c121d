package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/store"
)

var (
	// ErrInvalidQuantity is returned for negative quantities.
	ErrInvalidQuantity = errors.New("quantity must not be negative")
	// ErrEmptyCart is returned when checking out an empty cart.
	ErrEmptyCart = store.ErrEmptyCart
)

// CartView is the cart as shown on the cart page.
type CartView struct {
	*entity.CartState
	Subtotal float64 `json:"subtotal"`
}

// CartService orchestrates the catalog and the Cart Store.
type CartService struct {
	store   *store.Store
	catalog repository.ProductCatalog
}

func NewCartService(st *store.Store, catalog repository.ProductCatalog) *CartService {
	return &CartService{
		store:   st,
		catalog: catalog,
	}
}

// ListProducts returns the catalog.
func (s *CartService) ListProducts(ctx context.Context) ([]entity.Product, error) {
	return s.catalog.ListProducts(ctx)
}

// GetProduct returns one catalog product.
func (s *CartService) GetProduct(ctx context.Context, id int) (entity.Product, error) {
	return s.catalog.GetProduct(ctx, id)
}

// GetCart returns the current cart with its subtotal.
func (s *CartService) GetCart(_ context.Context) CartView {
	return newCartView(s.store.Cart())
}

// AddProduct fetches the product from the catalog and adds one unit of it.
// Nothing is added when the catalog lookup fails.
func (s *CartService) AddProduct(ctx context.Context, productID int) (CartView, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return CartView{}, fmt.Errorf("failed to fetch product %d: %w", productID, err)
	}

	cart, err := s.store.AddToCart(ctx, product)
	if err != nil {
		return CartView{}, fmt.Errorf("failed to add product %d: %w", productID, err)
	}
	slog.Info("Service: Added product to cart", "product_id", productID, "items", cart.NumberOfItems)
	return newCartView(cart), nil
}

// RemoveItem drops an item from the cart. Unknown ids are ignored.
func (s *CartService) RemoveItem(ctx context.Context, productID int) (CartView, error) {
	cart, err := s.store.RemoveFromCart(ctx, productID)
	if err != nil {
		return CartView{}, fmt.Errorf("failed to remove product %d: %w", productID, err)
	}
	return newCartView(cart), nil
}

// UpdateQuantity sets the quantity of an item; zero removes it.
func (s *CartService) UpdateQuantity(ctx context.Context, productID, quantity int) (CartView, error) {
	if quantity < 0 {
		return CartView{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}

	cart, err := s.store.UpdateCartItemQuantity(ctx, productID, quantity)
	if err != nil {
		return CartView{}, fmt.Errorf("failed to update product %d: %w", productID, err)
	}
	return newCartView(cart), nil
}

// ClearCart empties the cart.
func (s *CartService) ClearCart(ctx context.Context) (CartView, error) {
	cart, err := s.store.ClearCart(ctx)
	if err != nil {
		return CartView{}, fmt.Errorf("failed to clear cart: %w", err)
	}
	return newCartView(cart), nil
}

func newCartView(cart *entity.CartState) CartView {
	return CartView{
		CartState: cart,
		Subtotal:  entity.CartSubtotal(cart).Round(2).InexactFloat64(),
	}
}
