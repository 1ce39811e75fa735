package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MikeMC777/ecom-checkout/internal/pricing"
)

// Notifier receives committed order events. Implementations must not block
// the caller on delivery; failures stay inside the implementation.
type Notifier interface {
	OrderPlaced(ctx context.Context, o Order, items []Item)
	StatusChanged(ctx context.Context, o Order, from Status)
}

type nopNotifier struct{}

func (nopNotifier) OrderPlaced(context.Context, Order, []Item) {}
func (nopNotifier) StatusChanged(context.Context, Order, Status) {}

type PlaceOrderInput struct {
	UserID          string
	ShippingAddress Address
	PaymentMethod   PaymentMethod
	Notes           string
}

func (in PlaceOrderInput) validate() error {
	if strings.TrimSpace(in.UserID) == "" {
		return &InvalidInputError{Field: "user_id", Reason: "required"}
	}
	a := in.ShippingAddress
	for _, f := range []struct{ name, value string }{
		{"shipping_address.first_name", a.FirstName},
		{"shipping_address.last_name", a.LastName},
		{"shipping_address.phone", a.Phone},
		{"shipping_address.address", a.Address},
		{"shipping_address.city", a.City},
		{"shipping_address.postal_code", a.PostalCode},
	} {
		if strings.TrimSpace(f.value) == "" {
			return &InvalidInputError{Field: f.name, Reason: "required"}
		}
	}
	switch {
	case in.PaymentMethod.Accepted():
		return nil
	case in.PaymentMethod == PaymentCard:
		return fmt.Errorf("%w: %s", ErrUnsupportedPaymentMethod, in.PaymentMethod)
	default:
		return &InvalidInputError{Field: "payment_method", Reason: fmt.Sprintf("unknown value %q", in.PaymentMethod)}
	}
}

type Service struct {
	store  Store
	notify Notifier
	log    *zap.Logger
	now    func() time.Time
	// last millisecond stamp handed out by nextNumber
	lastMillis atomic.Int64
}

func NewService(store Store, notify Notifier, log *zap.Logger) *Service {
	if notify == nil {
		notify = nopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, notify: notify, log: log, now: time.Now}
}

// OrderNumber formats ORD-<unixMillis>-<userID>.
func OrderNumber(at time.Time, userID string) string {
	return fmt.Sprintf("ORD-%d-%s", at.UnixMilli(), userID)
}

// nextNumber issues order numbers whose time component strictly increases
// within this process.
func (s *Service) nextNumber(userID string) string {
	ms := s.now().UnixMilli()
	for {
		last := s.lastMillis.Load()
		next := max(ms, last+1)
		if s.lastMillis.CompareAndSwap(last, next) {
			return OrderNumber(time.UnixMilli(next), userID)
		}
	}
}

// PlaceOrder turns the user's cart into a pending order. Stock checks, the
// order, its lines, the stock decrements and the cart deletion commit
// together or not at all. The confirmation is handed to the Notifier only
// after commit.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*Order, []Item, error) {
	if err := in.validate(); err != nil {
		return nil, nil, err
	}

	var (
		placed *Order
		lines  []Item
	)
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		cartLines, err := tx.CartLines(ctx, in.UserID)
		if err != nil {
			return fmt.Errorf("read cart: %w", err)
		}
		if len(cartLines) == 0 {
			return ErrEmptyCart
		}

		ids := make([]string, 0, len(cartLines))
		for _, l := range cartLines {
			ids = append(ids, l.ProductID)
		}
		products, err := tx.LockProducts(ctx, ids)
		if err != nil {
			return fmt.Errorf("lock products: %w", err)
		}

		priced := make([]pricing.Line, 0, len(cartLines))
		for _, l := range cartLines {
			p, ok := products[l.ProductID]
			if !ok {
				return &ProductNotFoundError{ProductID: l.ProductID}
			}
			if p.Stock < l.Quantity {
				return &InsufficientStockError{ProductID: p.ID, Available: p.Stock, Requested: l.Quantity}
			}
			priced = append(priced, pricing.Line{UnitPrice: p.Price, Quantity: l.Quantity})
		}
		sum := pricing.Calculate(priced)

		o := &Order{
			ID:              uuid.NewString(),
			OrderNumber:     s.nextNumber(in.UserID),
			UserID:          in.UserID,
			Status:          StatusPending,
			PaymentStatus:   PaymentPending,
			PaymentMethod:   in.PaymentMethod,
			Subtotal:        sum.Subtotal,
			Shipping:        sum.Shipping,
			Tax:             sum.Tax,
			Total:           sum.Total,
			ShippingAddress: in.ShippingAddress,
			BillingAddress:  in.ShippingAddress,
			Notes:           strings.TrimSpace(in.Notes),
		}
		if err := tx.InsertOrder(ctx, o); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		items := make([]Item, 0, len(cartLines))
		for i, l := range cartLines {
			p := products[l.ProductID]
			pid := p.ID
			it := Item{
				ID:           uuid.NewString(),
				OrderID:      o.ID,
				ProductID:    &pid,
				ProductName:  p.Name,
				ProductImage: p.ImageURL,
				Quantity:     l.Quantity,
				Price:        p.Price,
				Total:        priced[i].Total(),
			}
			if err := tx.InsertItem(ctx, &it); err != nil {
				return fmt.Errorf("insert item: %w", err)
			}
			ok, err := tx.DecrementStock(ctx, p.ID, l.Quantity)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			if !ok {
				return &InsufficientStockError{ProductID: p.ID, Available: p.Stock, Requested: l.Quantity}
			}
			items = append(items, it)
		}

		if err := tx.ClearCart(ctx, in.UserID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		placed, lines = o, items
		return nil
	})
	if err != nil {
		if !IsValidation(err) {
			s.log.Error("place order failed", zap.String("user_id", in.UserID), zap.Error(err))
		}
		return nil, nil, err
	}

	s.log.Info("order placed",
		zap.String("order_id", placed.ID),
		zap.String("order_number", placed.OrderNumber),
		zap.String("user_id", placed.UserID),
		zap.String("total", placed.Total.StringFixed(2)),
	)
	s.notify.OrderPlaced(ctx, *placed, lines)
	return placed, lines, nil
}

// CancelByCustomer cancels the caller's own pending order and restores stock.
// Orders owned by someone else are reported as not found.
func (s *Service) CancelByCustomer(ctx context.Context, userID, orderID string) (*Order, error) {
	return s.transition(ctx, orderID, StatusCancelled, ActorCustomer, func(o *Order) error {
		if o.UserID != userID {
			return ErrNotFound
		}
		return nil
	})
}

// UpdateStatusByAdmin sets any status on a non-terminal order. Delivered
// completes the payment; cancelled restores stock. Setting the current
// status again succeeds without changes.
func (s *Service) UpdateStatusByAdmin(ctx context.Context, orderID string, to Status) (*Order, error) {
	return s.transition(ctx, orderID, to, ActorAdmin, nil)
}

func (s *Service) transition(ctx context.Context, orderID string, to Status, actor Actor, guard func(*Order) error) (*Order, error) {
	var (
		updated *Order
		from    Status
		changed bool
	)
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(o); err != nil {
				return err
			}
		}
		from = o.Status
		if actor == ActorAdmin && from == to {
			updated = o
			return nil
		}
		if err := CheckTransition(from, to, actor); err != nil {
			return err
		}

		if to == StatusCancelled {
			items, err := tx.Items(ctx, o.ID)
			if err != nil {
				return fmt.Errorf("load items: %w", err)
			}
			for _, it := range items {
				if it.ProductID == nil {
					continue
				}
				if err := tx.IncrementStock(ctx, *it.ProductID, it.Quantity); err != nil {
					return fmt.Errorf("restore stock: %w", err)
				}
			}
		}

		ps := o.PaymentStatus
		if to == StatusDelivered {
			ps = PaymentCompleted
		}
		if err := tx.SetStatus(ctx, o.ID, to, ps); err != nil {
			return err
		}
		o.Status, o.PaymentStatus, o.UpdatedAt = to, ps, s.now()
		updated, changed = o, true
		return nil
	})
	if err != nil {
		if !IsValidation(err) && !errors.Is(err, ErrNotFound) {
			s.log.Error("order status update failed", zap.String("order_id", orderID), zap.String("to", string(to)), zap.Error(err))
		}
		return nil, err
	}

	if changed {
		s.log.Info("order status changed",
			zap.String("order_id", updated.ID),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		s.notify.StatusChanged(ctx, *updated, from)
	}
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Order, []Item, error) {
	return s.store.Get(ctx, id)
}

// GetForUser hides orders that belong to another user.
func (s *Service) GetForUser(ctx context.Context, userID, id string) (*Order, []Item, error) {
	o, items, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if o.UserID != userID {
		return nil, nil, ErrNotFound
	}
	return o, items, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, error) {
	return s.store.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]Order, error) {
	return s.store.List(ctx, q)
}
