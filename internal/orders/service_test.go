package orders

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/superkart/kart-backend/internal/cart"
	product "github.com/superkart/kart-backend/internal/products"
	"github.com/superkart/kart-backend/pkg/db/models"
	"github.com/superkart/kart-backend/pkg/enums"
	pkgerrors "github.com/superkart/kart-backend/pkg/errors"
	"github.com/superkart/kart-backend/pkg/pagination"
	pkgstripe "github.com/superkart/kart-backend/pkg/stripe"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type fakeGateway struct {
	lastAmount   decimal.Decimal
	lastCurrency string
	lastRef      string
	err          error
}

func (f *fakeGateway) CreatePaymentIntent(ctx context.Context, amount decimal.Decimal, currency, orderNumber string) (*pkgstripe.PaymentIntent, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastAmount = amount
	f.lastCurrency = currency
	f.lastRef = orderNumber
	return &pkgstripe.PaymentIntent{
		ID:           "pi_" + uuid.NewString(),
		ClientSecret: "secret",
		Status:       "requires_payment_method",
	}, nil
}

type fixture struct {
	svc      Service
	carts    cart.Service
	conn     *gorm.DB
	gateway  *fakeGateway
	products *product.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	))

	runner := gormTxRunner{db: conn}
	productRepo := product.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	cartSvc, err := cart.NewService(cartRepo, runner, productRepo)
	require.NoError(t, err)

	gateway := &fakeGateway{}
	svc, err := NewService(NewRepository(conn), cartRepo, productRepo, runner, gateway, nil)
	require.NoError(t, err)

	return &fixture{svc: svc, carts: cartSvc, conn: conn, gateway: gateway, products: productRepo}
}

func (f *fixture) mustCreateProduct(t *testing.T, name, price string, inventory int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:      name,
		Brand:     "Acme",
		Price:     decimal.RequireFromString(price),
		Inventory: inventory,
	}
	require.NoError(t, f.conn.Create(p).Error)
	return p
}

func (f *fixture) inventoryOf(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := f.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Inventory
}

func TestPlaceConvertsCartAtomically(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	widget := f.mustCreateProduct(t, "Widget", "10.00", 5)
	gadget := f.mustCreateProduct(t, "Gadget", "5.50", 5)

	_, err := f.carts.AddItem(ctx, userID, widget.ID, 2)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, userID, gadget.ID, 1)
	require.NoError(t, err)

	placed, err := f.svc.Place(ctx, userID)
	require.NoError(t, err)

	assert.True(t, placed.TotalAmount.Equal(decimal.RequireFromString("25.50")),
		"expected 25.50, got %s", placed.TotalAmount)
	assert.Equal(t, enums.OrderStatusPending, placed.Status)
	assert.Regexp(t, regexp.MustCompile(`^ORD-[0-9A-F]{8}$`), placed.OrderNumber)
	require.Len(t, placed.Items, 2)

	sum := decimal.Zero
	for _, item := range placed.Items {
		sum = sum.Add(item.Subtotal)
	}
	assert.True(t, placed.TotalAmount.Equal(sum), "order total must equal the sum of line subtotals")

	assert.Equal(t, 3, f.inventoryOf(t, widget.ID))
	assert.Equal(t, 4, f.inventoryOf(t, gadget.ID))

	view, err := f.carts.View(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, view.Items, "placement must clear the cart")
}

func TestPlaceEmptyCartReturnsStateConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := f.carts.GetOrCreate(ctx, userID)
	require.NoError(t, err)

	_, err = f.svc.Place(ctx, userID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	_, err = f.svc.Place(ctx, uuid.New())
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code(), "a never-touched cart is also empty")
}

func TestPlaceInsufficientInventoryRollsEverythingBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	plenty := f.mustCreateProduct(t, "Widget", "10.00", 5)
	scarce := f.mustCreateProduct(t, "Gadget", "5.50", 1)

	_, err := f.carts.AddItem(ctx, userID, plenty.ID, 2)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, userID, scarce.ID, 3)
	require.NoError(t, err)

	_, err = f.svc.Place(ctx, userID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())

	assert.Equal(t, 5, f.inventoryOf(t, plenty.ID), "rollback must restore the first line's decrement")
	assert.Equal(t, 1, f.inventoryOf(t, scarce.ID))

	view, err := f.carts.View(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, view.Items, 2, "failed placement must leave the cart intact")

	var orderCount int64
	require.NoError(t, f.conn.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)
}

func TestPlaceUsesPriceSnapshotNotCurrentPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	widget := f.mustCreateProduct(t, "Widget", "10.00", 5)

	_, err := f.carts.AddItem(ctx, userID, widget.ID, 2)
	require.NoError(t, err)

	require.NoError(t, f.conn.Model(&models.Product{}).
		Where("id = ?", widget.ID).
		Update("price", decimal.RequireFromString("99.99")).Error)

	placed, err := f.svc.Place(ctx, userID)
	require.NoError(t, err)
	require.Len(t, placed.Items, 1)
	assert.True(t, placed.Items[0].Price.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, placed.TotalAmount.Equal(decimal.RequireFromString("20.00")))
}

func TestPlaceKeepsLinesAddedAfterSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	widget := f.mustCreateProduct(t, "Widget", "10.00", 5)
	gadget := f.mustCreateProduct(t, "Gadget", "5.50", 5)

	_, err := f.carts.AddItem(ctx, userID, widget.ID, 1)
	require.NoError(t, err)
	cartRecord, err := f.carts.GetOrCreate(ctx, userID)
	require.NoError(t, err)

	// Slip a new line into the cart after placement has read it, the way a
	// concurrent add committing mid-placement would.
	require.NoError(t, f.conn.Callback().Create().After("gorm:create").Register("test:late_add", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*models.Order); !ok {
			return
		}
		late := &models.CartItem{
			CartID:    cartRecord.ID,
			ProductID: gadget.ID,
			Quantity:  2,
			UnitPrice: gadget.Price,
		}
		require.NoError(t, tx.Session(&gorm.Session{NewDB: true}).Create(late).Error)
	}))

	placed, err := f.svc.Place(ctx, userID)
	require.NoError(t, err)
	require.Len(t, placed.Items, 1, "the order holds only the snapshotted line")

	view, err := f.carts.View(ctx, userID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1, "the late line must survive the cart clear")
	assert.Equal(t, gadget.ID, view.Items[0].ProductID)
	assert.Equal(t, 2, view.Items[0].Quantity)
}

func TestPlaceLastUnitConcurrentBuyers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := uuid.New()
	second := uuid.New()
	lastUnit := f.mustCreateProduct(t, "Widget", "10.00", 1)

	_, err := f.carts.AddItem(ctx, first, lastUnit.ID, 1)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, second, lastUnit.ID, 1)
	require.NoError(t, err)

	start := make(chan struct{})
	results := make(chan error, 2)
	for _, userID := range []uuid.UUID{first, second} {
		go func(id uuid.UUID) {
			<-start
			_, err := f.svc.Place(ctx, id)
			results <- err
		}(userID)
	}
	close(start)

	var succeeded, outOfStock int
	for i := 0; i < 2; i++ {
		switch err := <-results; {
		case err == nil:
			succeeded++
		default:
			typed := pkgerrors.As(err)
			require.NotNil(t, typed, "unexpected error: %v", err)
			require.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
			outOfStock++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one buyer gets the last unit")
	assert.Equal(t, 1, outOfStock)
	assert.Equal(t, 0, f.inventoryOf(t, lastUnit.ID))
}

func TestPlaceLastUnitAdmitsExactlyOneBuyer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	winner := uuid.New()
	loser := uuid.New()
	lastUnit := f.mustCreateProduct(t, "Widget", "10.00", 1)

	_, err := f.carts.AddItem(ctx, winner, lastUnit.ID, 1)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, loser, lastUnit.ID, 1)
	require.NoError(t, err)

	_, err = f.svc.Place(ctx, winner)
	require.NoError(t, err)

	_, err = f.svc.Place(ctx, loser)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())

	assert.Equal(t, 0, f.inventoryOf(t, lastUnit.ID))

	view, err := f.carts.View(ctx, loser)
	require.NoError(t, err)
	assert.Len(t, view.Items, 1, "the losing cart keeps its line")
}

func TestStatusTransitionsFollowTheLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	widget := f.mustCreateProduct(t, "Widget", "10.00", 5)
	_, err := f.carts.AddItem(ctx, userID, widget.ID, 1)
	require.NoError(t, err)
	placed, err := f.svc.Place(ctx, userID)
	require.NoError(t, err)

	for _, next := range []string{"paid", "shipped", "delivered"} {
		updated, err := f.svc.UpdateStatus(ctx, placed.ID, next)
		require.NoError(t, err)
		require.Equal(t, enums.OrderStatus(next), updated.Status)
	}

	_, err = f.svc.UpdateStatus(ctx, placed.ID, "cancelled")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code(), "delivered is terminal")
}

func TestStatusTransitionRejectsSkipsAndUnknownValues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	widget := f.mustCreateProduct(t, "Widget", "10.00", 5)
	_, err := f.carts.AddItem(ctx, userID, widget.ID, 1)
	require.NoError(t, err)
	placed, err := f.svc.Place(ctx, userID)
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, placed.ID, "shipped")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code(), "pending cannot jump to shipped")

	_, err = f.svc.UpdateStatus(ctx, placed.ID, "refunded")
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = f.svc.UpdateStatus(ctx, uuid.New(), "paid")
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestGetForUserHidesOtherUsersOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	widget := f.mustCreateProduct(t, "Widget", "10.00", 5)
	_, err := f.carts.AddItem(ctx, owner, widget.ID, 1)
	require.NoError(t, err)
	placed, err := f.svc.Place(ctx, owner)
	require.NoError(t, err)

	fetched, err := f.svc.GetForUser(ctx, owner, placed.ID)
	require.NoError(t, err)
	require.Equal(t, placed.OrderNumber, fetched.OrderNumber)

	_, err = f.svc.GetForUser(ctx, uuid.New(), placed.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestListForUserIsMostRecentFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	widget := f.mustCreateProduct(t, "Widget", "10.00", 10)

	var placedNumbers []string
	for i := 0; i < 3; i++ {
		_, err := f.carts.AddItem(ctx, userID, widget.ID, 1)
		require.NoError(t, err)
		placed, err := f.svc.Place(ctx, userID)
		require.NoError(t, err)
		placedNumbers = append(placedNumbers, placed.OrderNumber)

		// Distinct order dates keep the expected ordering unambiguous.
		require.NoError(t, f.conn.Model(&models.Order{}).
			Where("order_number = ?", placed.OrderNumber).
			Update("order_date", time.Now().UTC().Add(time.Duration(i)*time.Minute)).Error)
	}

	views, err := f.svc.ListForUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, placedNumbers[2], views[0].OrderNumber)
	assert.Equal(t, placedNumbers[0], views[2].OrderNumber)
}

func TestListAllPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := f.mustCreateProduct(t, "Widget", "10.00", 10)

	for i := 0; i < 3; i++ {
		userID := uuid.New()
		_, err := f.carts.AddItem(ctx, userID, widget.ID, 1)
		require.NoError(t, err)
		_, err = f.svc.Place(ctx, userID)
		require.NoError(t, err)
	}

	page, err := f.svc.ListAll(ctx, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := f.svc.ListAll(ctx, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Orders, 1)
	require.Empty(t, rest.NextCursor)
}

func TestCreatePaymentIntentForPendingOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	widget := f.mustCreateProduct(t, "Widget", "10.00", 5)
	_, err := f.carts.AddItem(ctx, userID, widget.ID, 2)
	require.NoError(t, err)
	placed, err := f.svc.Place(ctx, userID)
	require.NoError(t, err)

	intent, err := f.svc.CreatePaymentIntent(ctx, userID, placed.ID)
	require.NoError(t, err)
	require.NotEmpty(t, intent.ID)
	assert.True(t, f.gateway.lastAmount.Equal(decimal.RequireFromString("20.00")))
	assert.Equal(t, "usd", f.gateway.lastCurrency)
	assert.Equal(t, placed.OrderNumber, f.gateway.lastRef)

	_, err = f.svc.UpdateStatus(ctx, placed.ID, "cancelled")
	require.NoError(t, err)

	_, err = f.svc.CreatePaymentIntent(ctx, userID, placed.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestOrderNumberFormat(t *testing.T) {
	seen := map[string]struct{}{}
	pattern := regexp.MustCompile(`^ORD-[0-9A-F]{8}$`)
	for i := 0; i < 100; i++ {
		number := NewOrderNumber()
		require.Regexp(t, pattern, number)
		seen[number] = struct{}{}
	}
	assert.Greater(t, len(seen), 95, "collisions should be rare")
}
