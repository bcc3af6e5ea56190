package sample

import "context"

// OrderAggregate represents an order aggregate root
type OrderAggregate struct {
	ID     int64
	Items  []OrderItem
	Status string
}

// OrderItem is a value object representing an order line item
type OrderItemVO struct {
	ProductID int64
	Quantity  int
	Price     float64
}

// OrderRepository manages order persistence
type OrderRepository interface {
	Save(ctx context.Context, order *OrderAggregate) error
	FindByID(ctx context.Context, id int64) (*OrderAggregate, error)
}

// OrderService provides order-related business logic
type OrderService struct {
	repo OrderRepository
}

// PlaceOrderCommand represents a command to place an order
type PlaceOrderCommand struct {
	CustomerID int64
	Items      []OrderItemVO
}

// OrderPlacedHandler handles order placed events
type OrderPlacedHandler struct {
	notifier Notifier
}

// ProcessOrderQuery represents a query for order processing
type ProcessOrderQuery struct {
	OrderID int64
}

// Notifier sends notifications
type Notifier interface {
	Send(message string) error
}

// NewOrderService creates a new order service
func NewOrderService(repo OrderRepository) *OrderService {
	return &OrderService{repo: repo}
}

// PlaceOrder places a new order
func (s *OrderService) PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) error {
	// Business logic here
	return nil
}
