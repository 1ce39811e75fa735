package order_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MikeMC777/ecom-checkout/internal/order"
	"github.com/MikeMC777/ecom-checkout/internal/order/ordertest"
	"github.com/MikeMC777/ecom-checkout/internal/product"
)

type recordingNotifier struct {
	mu      sync.Mutex
	placed  []order.Order
	changed []order.Order
	froms   []order.Status
}

func (r *recordingNotifier) OrderPlaced(_ context.Context, o order.Order, _ []order.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placed = append(r.placed, o)
}

func (r *recordingNotifier) StatusChanged(_ context.Context, o order.Order, from order.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = append(r.changed, o)
	r.froms = append(r.froms, from)
}

func address() order.Address {
	return order.Address{
		FirstName: "Ana", LastName: "Gómez", Phone: "3000000000",
		Address: "Calle 1", City: "Bogotá", PostalCode: "110111",
	}
}

func input(userID string) order.PlaceOrderInput {
	return order.PlaceOrderInput{
		UserID:          userID,
		ShippingAddress: address(),
		PaymentMethod:   order.PaymentCashOnDelivery,
	}
}

func newService(t *testing.T) (*order.Service, *ordertest.Store, *recordingNotifier) {
	t.Helper()
	store := ordertest.New()
	n := &recordingNotifier{}
	return order.NewService(store, n, zap.NewNop()), store, n
}

func stock(t *testing.T, s *ordertest.Store, id string) int {
	t.Helper()
	p, ok := s.Product(id)
	require.True(t, ok, "product %s missing", id)
	return p.Stock
}

func TestPlaceOrder_ChargesFlatShippingUnderThreshold(t *testing.T) {
	svc, store, n := newService(t)
	store.AddProduct("p1", "Lamp", "60.00", 5)
	store.AddToCart("u1", "p1", 1)

	o, items, err := svc.PlaceOrder(context.Background(), input("u1"))
	require.NoError(t, err)

	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, order.PaymentPending, o.PaymentStatus)
	assert.Equal(t, "60.00", o.Subtotal.StringFixed(2))
	assert.Equal(t, "10.00", o.Shipping.StringFixed(2))
	assert.Equal(t, "10.80", o.Tax.StringFixed(2))
	assert.Equal(t, "80.80", o.Total.StringFixed(2))
	assert.Regexp(t, `^ORD-\d+-u1$`, o.OrderNumber)
	assert.Equal(t, address(), o.ShippingAddress)

	require.Len(t, items, 1)
	assert.Equal(t, "Lamp", items[0].ProductName)
	assert.Equal(t, "60.00", items[0].Total.StringFixed(2))

	assert.Equal(t, 4, stock(t, store, "p1"))
	assert.Empty(t, store.Cart("u1"))
	assert.Len(t, n.placed, 1)
}

func TestPlaceOrder_ShipsFreeAboveThreshold(t *testing.T) {
	svc, store, _ := newService(t)
	store.AddProduct("p2", "Chair", "120.00", 3)
	store.AddToCart("u1", "p2", 1)

	o, _, err := svc.PlaceOrder(context.Background(), input("u1"))
	require.NoError(t, err)

	assert.Equal(t, "120.00", o.Subtotal.StringFixed(2))
	assert.Equal(t, "0.00", o.Shipping.StringFixed(2))
	assert.Equal(t, "21.60", o.Tax.StringFixed(2))
	assert.Equal(t, "141.60", o.Total.StringFixed(2))
	assert.Equal(t, 2, stock(t, store, "p2"))
}

func TestPlaceOrder_InsufficientStockChangesNothing(t *testing.T) {
	svc, store, n := newService(t)
	store.AddProduct("p3", "Desk", "10.00", 2)
	store.AddToCart("u1", "p3", 10)

	_, _, err := svc.PlaceOrder(context.Background(), input("u1"))

	var ins *order.InsufficientStockError
	require.ErrorAs(t, err, &ins)
	assert.Equal(t, "p3", ins.ProductID)
	assert.Equal(t, 2, ins.Available)
	assert.Equal(t, 10, ins.Requested)

	assert.Equal(t, 2, stock(t, store, "p3"))
	assert.Equal(t, 0, store.OrderCount())
	assert.Len(t, store.Cart("u1"), 1)
	assert.Empty(t, n.placed)
}

func TestPlaceOrder_RejectsEmptyCart(t *testing.T) {
	svc, store, n := newService(t)

	_, _, err := svc.PlaceOrder(context.Background(), input("u1"))

	assert.ErrorIs(t, err, order.ErrEmptyCart)
	assert.Equal(t, 0, store.OrderCount())
	assert.Empty(t, n.placed)
}

func TestPlaceOrder_ProductDeletedAfterAddToCart(t *testing.T) {
	svc, store, _ := newService(t)
	store.AddProduct("a", "A", "5.00", 10)
	store.AddToCart("u1", "a", 1)
	store.AddToCart("u1", "ghost", 1)

	_, _, err := svc.PlaceOrder(context.Background(), input("u1"))

	var pnf *order.ProductNotFoundError
	require.ErrorAs(t, err, &pnf)
	assert.Equal(t, "ghost", pnf.ProductID)
	assert.Equal(t, 10, stock(t, store, "a"))
}

func TestPlaceOrder_InputValidation(t *testing.T) {
	svc, store, _ := newService(t)
	store.AddProduct("a", "A", "5.00", 10)
	store.AddToCart("u1", "a", 1)

	card := input("u1")
	card.PaymentMethod = order.PaymentCard
	_, _, err := svc.PlaceOrder(context.Background(), card)
	assert.ErrorIs(t, err, order.ErrUnsupportedPaymentMethod)

	noCity := input("u1")
	noCity.ShippingAddress.City = " "
	_, _, err = svc.PlaceOrder(context.Background(), noCity)
	var inv *order.InvalidInputError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, "shipping_address.city", inv.Field)

	bogus := input("u1")
	bogus.PaymentMethod = "barter"
	_, _, err = svc.PlaceOrder(context.Background(), bogus)
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, "payment_method", inv.Field)

	assert.Equal(t, 0, store.OrderCount())
	assert.Equal(t, 10, stock(t, store, "a"))
}

func TestPlaceOrder_RollsBackOnLateFailure(t *testing.T) {
	for _, op := range []string{"InsertOrder", "InsertItem", "DecrementStock", "ClearCart"} {
		t.Run(op, func(t *testing.T) {
			svc, store, n := newService(t)
			store.AddProduct("a", "A", "30.00", 5)
			store.AddProduct("b", "B", "15.00", 5)
			store.AddToCart("u1", "a", 2)
			store.AddToCart("u1", "b", 1)
			store.FailOn = map[string]error{op: errors.New("connection reset")}

			_, _, err := svc.PlaceOrder(context.Background(), input("u1"))

			require.Error(t, err)
			assert.False(t, order.IsValidation(err))
			assert.Equal(t, 0, store.OrderCount())
			assert.Equal(t, 0, store.ItemCount())
			assert.Equal(t, 5, stock(t, store, "a"))
			assert.Equal(t, 5, stock(t, store, "b"))
			assert.Len(t, store.Cart("u1"), 2)
			assert.Empty(t, n.placed)
		})
	}
}

func TestPlaceOrder_ConcurrentCheckoutsNeverOversell(t *testing.T) {
	svc, store, _ := newService(t)
	const initial = 7
	store.AddProduct("hot", "Hot item", "9.99", initial)

	const buyers = 20
	for i := 0; i < buyers; i++ {
		store.AddToCart(fmt.Sprintf("u%d", i), "hot", 1+i%3)
	}

	var (
		wg   sync.WaitGroup
		sold atomic.Int64
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, items, err := svc.PlaceOrder(context.Background(), input(fmt.Sprintf("u%d", i)))
			if err != nil {
				var ins *order.InsufficientStockError
				assert.ErrorAs(t, err, &ins)
				return
			}
			sold.Add(int64(items[0].Quantity))
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, sold.Load(), int64(initial))
	assert.Equal(t, initial-int(sold.Load()), stock(t, store, "hot"))
}

func TestPlaceOrder_LinesAreSnapshots(t *testing.T) {
	svc, store, _ := newService(t)
	store.AddProduct("a", "Original", "12.50", 5)
	store.AddToCart("u1", "a", 2)

	o, _, err := svc.PlaceOrder(context.Background(), input("u1"))
	require.NoError(t, err)

	store.UpdateProduct("a", func(p *product.Product) {
		p.Name = "Renamed"
		p.Price = p.Price.Mul(p.Price)
	})
	store.DeleteProduct("a")

	_, items, err := svc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Original", items[0].ProductName)
	assert.Equal(t, "12.50", items[0].Price.StringFixed(2))
	assert.Equal(t, "25.00", items[0].Total.StringFixed(2))
	assert.Nil(t, items[0].ProductID)
}

func placed(t *testing.T, svc *order.Service, store *ordertest.Store, user string, qty int) *order.Order {
	t.Helper()
	store.AddToCart(user, "a", qty)
	o, _, err := svc.PlaceOrder(context.Background(), input(user))
	require.NoError(t, err)
	return o
}

func TestUpdateStatusByAdmin_CancelRestoresStock(t *testing.T) {
	svc, store, n := newService(t)
	store.AddProduct("a", "A", "10.00", 5)
	o := placed(t, svc, store, "u1", 3)
	require.Equal(t, 2, stock(t, store, "a"))

	got, err := svc.UpdateStatusByAdmin(context.Background(), o.ID, order.StatusCancelled)
	require.NoError(t, err)

	assert.Equal(t, order.StatusCancelled, got.Status)
	assert.Equal(t, 5, stock(t, store, "a"))
	require.Len(t, n.changed, 1)
	assert.Equal(t, order.StatusPending, n.froms[0])
}

func TestUpdateStatusByAdmin_DeliveredCompletesPayment(t *testing.T) {
	svc, store, _ := newService(t)
	store.AddProduct("a", "A", "10.00", 5)
	o := placed(t, svc, store, "u1", 1)

	for _, st := range []order.Status{order.StatusProcessing, order.StatusShipped, order.StatusDelivered} {
		_, err := svc.UpdateStatusByAdmin(context.Background(), o.ID, st)
		require.NoError(t, err, st)
	}

	got, _, err := svc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusDelivered, got.Status)
	assert.Equal(t, order.PaymentCompleted, got.PaymentStatus)
	assert.Equal(t, 4, stock(t, store, "a"))
}

func TestUpdateStatusByAdmin_TerminalStatesAreFinal(t *testing.T) {
	svc, store, _ := newService(t)
	store.AddProduct("a", "A", "10.00", 5)
	o := placed(t, svc, store, "u1", 1)

	_, err := svc.UpdateStatusByAdmin(context.Background(), o.ID, order.StatusCancelled)
	require.NoError(t, err)

	_, err = svc.UpdateStatusByAdmin(context.Background(), o.ID, order.StatusPending)
	assert.ErrorIs(t, err, order.ErrInvalidTransition)

	// repeated cancel is a no-op and must not restock twice
	_, err = svc.UpdateStatusByAdmin(context.Background(), o.ID, order.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, 5, stock(t, store, "a"))
}

func TestUpdateStatusByAdmin_UnknownOrder(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.UpdateStatusByAdmin(context.Background(), "missing", order.StatusShipped)
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestCancelByCustomer(t *testing.T) {
	svc, store, n := newService(t)
	store.AddProduct("a", "A", "10.00", 10)

	t.Run("pending order is cancelled and restocked", func(t *testing.T) {
		o := placed(t, svc, store, "u1", 4)
		require.Equal(t, 6, stock(t, store, "a"))

		got, err := svc.CancelByCustomer(context.Background(), "u1", o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusCancelled, got.Status)
		assert.Equal(t, 10, stock(t, store, "a"))
	})

	t.Run("processing order cannot be cancelled by customer", func(t *testing.T) {
		o := placed(t, svc, store, "u2", 1)
		_, err := svc.UpdateStatusByAdmin(context.Background(), o.ID, order.StatusProcessing)
		require.NoError(t, err)

		_, err = svc.CancelByCustomer(context.Background(), "u2", o.ID)
		assert.ErrorIs(t, err, order.ErrInvalidTransition)
		assert.Equal(t, 9, stock(t, store, "a"))
	})

	t.Run("other user's order is not found", func(t *testing.T) {
		o := placed(t, svc, store, "u3", 1)
		before := len(n.changed)

		_, err := svc.CancelByCustomer(context.Background(), "intruder", o.ID)
		assert.ErrorIs(t, err, order.ErrNotFound)
		assert.Len(t, n.changed, before)
	})
}

func TestGetForUser_HidesForeignOrders(t *testing.T) {
	svc, store, _ := newService(t)
	store.AddProduct("a", "A", "10.00", 10)
	o := placed(t, svc, store, "u1", 1)

	_, _, err := svc.GetForUser(context.Background(), "u2", o.ID)
	assert.ErrorIs(t, err, order.ErrNotFound)

	got, items, err := svc.GetForUser(context.Background(), "u1", o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.Len(t, items, 1)
}

func TestListing(t *testing.T) {
	svc, store, _ := newService(t)
	store.AddProduct("a", "A", "10.00", 10)
	o1 := placed(t, svc, store, "u1", 1)
	placed(t, svc, store, "u2", 1)
	_, err := svc.UpdateStatusByAdmin(context.Background(), o1.ID, order.StatusShipped)
	require.NoError(t, err)

	mine, err := svc.ListByUser(context.Background(), "u1", 10, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, o1.ID, mine[0].ID)

	shipped, err := svc.List(context.Background(), order.ListQuery{Status: order.StatusShipped})
	require.NoError(t, err)
	assert.Len(t, shipped, 1)

	all, err := svc.List(context.Background(), order.ListQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestPlaceOrder_OrderNumbersStayUnique(t *testing.T) {
	svc, store, _ := newService(t)
	store.AddProduct("a", "A", "1.00", 50)

	seen := map[string]bool{}
	for range 10 {
		o := placed(t, svc, store, "u1", 1)
		assert.Regexp(t, `^ORD-\d+-u1$`, o.OrderNumber)
		assert.False(t, seen[o.OrderNumber], "duplicate %s", o.OrderNumber)
		seen[o.OrderNumber] = true
	}
}
