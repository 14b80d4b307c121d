package entity

import (
	"time"
)

// Category is the catalog category a product belongs to.
type Category struct {
	ID        int       `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Slug      string    `json:"slug" yaml:"slug"`
	Image     string    `json:"image" yaml:"image"`
	CreatedAt time.Time `json:"creationAt" yaml:"creationAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Product represents a product in the catalog. It is read-only to the stores.
type Product struct {
	ID          int       `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Slug        string    `json:"slug,omitempty" yaml:"slug"`
	Price       float64   `json:"price" yaml:"price"`
	Description string    `json:"description" yaml:"description"`
	Category    Category  `json:"category" yaml:"category"`
	Images      []string  `json:"images" yaml:"images"`
	CreatedAt   time.Time `json:"creationAt" yaml:"creationAt"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// CartItem is a product in the cart together with its quantity.
type CartItem struct {
	Product
	CartQuantity int `json:"cartQuantity"`
	// OriginalPrice above Price marks a discount. Display only.
	OriginalPrice float64 `json:"originalPrice,omitempty"`
}

// HasDiscount reports whether the item is sold below its original price.
func (i CartItem) HasDiscount() bool {
	return i.OriginalPrice > i.Price
}

// CartState is the state of the Cart Store.
// NumberOfItems always equals the sum of CartQuantity over Items.
type CartState struct {
	Items         []CartItem `json:"items"`
	NumberOfItems int        `json:"numberOfItems"`
}

// NewCartState returns the empty initial cart.
func NewCartState() *CartState {
	return &CartState{Items: []CartItem{}}
}

func (s *CartState) indexOf(id int) int {
	for i := range s.Items {
		if s.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// Item returns the item with the given product id.
func (s *CartState) Item(id int) (CartItem, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s.Items[i], true
	}
	return CartItem{}, false
}

// TotalQuantity sums the item quantities.
func (s *CartState) TotalQuantity() int {
	total := 0
	for _, item := range s.Items {
		total += item.CartQuantity
	}
	return total
}

// IsEmpty reports whether the cart holds no items.
func (s *CartState) IsEmpty() bool {
	return len(s.Items) == 0
}

// OrderStatus is the tracking status of an order.
type OrderStatus string

const (
	OrderStatusOrdered        OrderStatus = "Ordered"
	OrderStatusPacked         OrderStatus = "Packed"
	OrderStatusShipped        OrderStatus = "Shipped"
	OrderStatusOutForDelivery OrderStatus = "Out for Delivery"
	OrderStatusDelivered      OrderStatus = "Delivered"
)

// OrderSteps lists the tracking steps in display order.
// Only OrderStatusOrdered is ever assigned by the Order Store.
func OrderSteps() []OrderStatus {
	return []OrderStatus{
		OrderStatusOrdered,
		OrderStatusPacked,
		OrderStatusShipped,
		OrderStatusOutForDelivery,
		OrderStatusDelivered,
	}
}

// Step returns the position of the status in OrderSteps, or -1.
func (s OrderStatus) Step() int {
	for i, step := range OrderSteps() {
		if step == s {
			return i
		}
	}
	return -1
}

// OrderPayload is the cart summary an order is created from.
type OrderPayload struct {
	NumberOfItems int     `json:"numberOfItems"`
	TotalQuantity int     `json:"totalQuantity"`
	TotalAmount   float64 `json:"totalAmount"`
}

// OrderSummary is one placed order.
type OrderSummary struct {
	ID            string      `json:"id"`
	NumberOfItems int         `json:"numberOfItems"`
	TotalQuantity int         `json:"totalQuantity"`
	TotalAmount   float64     `json:"totalAmount"`
	Status        OrderStatus `json:"status"`
	PlacedAt      string      `json:"placedAt"`
}

// PlacedTime parses PlacedAt.
func (o OrderSummary) PlacedTime() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, o.PlacedAt)
}

// OrdersState is the state of the Order Store, oldest order first.
type OrdersState struct {
	Orders []OrderSummary `json:"orders"`
}

// NewOrdersState returns the empty initial order log.
func NewOrdersState() *OrdersState {
	return &OrdersState{Orders: []OrderSummary{}}
}

// Order returns the order with the given id.
func (s *OrdersState) Order(id string) (OrderSummary, bool) {
	for _, o := range s.Orders {
		if o.ID == id {
			return o, true
		}
	}
	return OrderSummary{}, false
}

// --- Cart actions ---

// AddToCart adds one unit of a product.
type AddToCart struct {
	Product Product `json:"product"`
}

func (AddToCart) ActionType() string { return "cart/addToCart" }
func (AddToCart) Stream() string     { return CartStream }
func (AddToCart) cartAction()        {}

// RemoveFromCart drops an item whatever its quantity.
type RemoveFromCart struct {
	ID int `json:"id"`
}

func (RemoveFromCart) ActionType() string { return "cart/removeFromCart" }
func (RemoveFromCart) Stream() string     { return CartStream }
func (RemoveFromCart) cartAction()        {}

// UpdateCartItemQuantity sets the quantity of an item.
type UpdateCartItemQuantity struct {
	ID       int `json:"id"`
	Quantity int `json:"quantity"`
}

func (UpdateCartItemQuantity) ActionType() string { return "cart/updateCartItemQuantity" }
func (UpdateCartItemQuantity) Stream() string     { return CartStream }
func (UpdateCartItemQuantity) cartAction()        {}

// ClearCart empties the cart.
type ClearCart struct{}

func (ClearCart) ActionType() string { return "cart/clearCart" }
func (ClearCart) Stream() string     { return CartStream }
func (ClearCart) cartAction()        {}

// --- Order actions ---

// AddOrder appends an order. ID and PlacedAt are stamped at dispatch time.
type AddOrder struct {
	OrderPayload
	ID       string    `json:"id"`
	PlacedAt time.Time `json:"placedAt"`
}

func (AddOrder) ActionType() string { return "orders/addOrder" }
func (AddOrder) Stream() string     { return OrdersStream }
func (AddOrder) orderAction()       {}

// ClearOrders empties the order log.
type ClearOrders struct{}

func (ClearOrders) ActionType() string { return "orders/clearOrders" }
func (ClearOrders) Stream() string     { return OrdersStream }
func (ClearOrders) orderAction()       {}
