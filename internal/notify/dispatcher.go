package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MikeMC777/ecom-checkout/internal/order"
)

// Dispatcher implements order.Notifier by enqueueing jobs. Enqueue errors are
// logged and dropped; they never reach the caller.
type Dispatcher struct {
	q       Queue
	log     *zap.Logger
	timeout time.Duration
}

var _ order.Notifier = (*Dispatcher)(nil)

func NewDispatcher(q Queue, log *zap.Logger) *Dispatcher {
	return &Dispatcher{q: q, log: log, timeout: 2 * time.Second}
}

func (d *Dispatcher) OrderPlaced(ctx context.Context, o order.Order, items []order.Item) {
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, Line{Name: it.ProductName, Quantity: it.Quantity, Total: it.Total.StringFixed(2)})
	}
	j := baseJob(KindOrderPlaced, o)
	j.Subtotal = o.Subtotal.StringFixed(2)
	j.Shipping = o.Shipping.StringFixed(2)
	j.Tax = o.Tax.StringFixed(2)
	j.Lines = lines
	d.enqueue(ctx, j)
}

func (d *Dispatcher) StatusChanged(ctx context.Context, o order.Order, from order.Status) {
	j := baseJob(KindStatusChanged, o)
	j.PreviousStatus = string(from)
	d.enqueue(ctx, j)
}

func baseJob(kind Kind, o order.Order) Job {
	return Job{
		ID:          uuid.NewString(),
		Kind:        kind,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Status:      string(o.Status),
		Total:       o.Total.StringFixed(2),
		EnqueuedAt:  time.Now().UTC(),
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, j Job) {
	// the request may already be finishing; the enqueue gets its own deadline
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	if err := d.q.Push(ctx, j); err != nil {
		d.log.Warn("notification enqueue failed",
			zap.String("kind", string(j.Kind)),
			zap.String("order_id", j.OrderID),
			zap.Error(err),
		)
		return
	}
	d.log.Debug("notification enqueued", zap.String("kind", string(j.Kind)), zap.String("order_id", j.OrderID))
}
