package invoicing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicing/internal/apperr"
	"invoicing/internal/invoicing"
	"invoicing/internal/platform/sqlite"
	"invoicing/internal/store"
	"invoicing/internal/store/sqlitestore"
)

var today = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

type fakeRates struct {
	rate  float64
	err   error
	calls []string
}

func (f *fakeRates) Rate(_ context.Context, currency string) (float64, error) {
	f.calls = append(f.calls, currency)
	return f.rate, f.err
}

type fixture struct {
	svc   *invoicing.Service
	store *sqlitestore.Store
	rates *fakeRates
	mouse store.Product
	cable store.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tdb := sqlite.NewTestDBInMemory(t, store.Migrations, store.SQLiteMigrations)
	st := sqlitestore.New(tdb.DB)
	ctx := context.Background()

	mouse, err := st.CreateProduct(ctx, store.Product{Name: "Mouse", Price: 10, Stock: 5})
	require.NoError(t, err)
	cable, err := st.CreateProduct(ctx, store.Product{Name: "Cable", Price: 2.5, Stock: 100})
	require.NoError(t, err)

	rates := &fakeRates{rate: 3.7}
	svc := invoicing.New(st, invoicing.Config{
		BaseCurrency: "usd",
		Rates:        rates,
		Now:          func() time.Time { return today },
	})
	return &fixture{svc: svc, store: st, rates: rates, mouse: mouse, cable: cable}
}

func (f *fixture) request() invoicing.NewInvoice {
	return invoicing.NewInvoice{
		Number:        "F-0001",
		CustomerName:  "Ana Pérez",
		CustomerEmail: "ana@example.com",
		IssueDate:     today,
		Lines: []invoicing.NewLine{
			{ProductID: f.mouse.ID, Quantity: 2},
			{ProductID: f.cable.ID, Quantity: 3},
		},
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.Create(ctx, f.request())
	require.NoError(t, err)

	assert.Positive(t, inv.ID)
	assert.Equal(t, "USD", inv.Currency)
	assert.Equal(t, 1.0, inv.ExchangeRate)
	assert.Equal(t, 27.5, inv.Total)
	assert.Equal(t, store.StatusIssued, inv.Status)
	assert.Empty(t, f.rates.calls)

	p, err := f.store.GetProduct(ctx, f.mouse.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)
}

func TestCreateConvertsCurrency(t *testing.T) {
	f := newFixture(t)
	req := f.request()
	req.Currency = "pen"

	inv, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []string{"PEN"}, f.rates.calls)
	assert.Equal(t, "PEN", inv.Currency)
	assert.Equal(t, 3.7, inv.ExchangeRate)
	require.Len(t, inv.Lines, 2)
	assert.Equal(t, 37.0, inv.Lines[0].UnitPrice)
	assert.Equal(t, 9.25, inv.Lines[1].UnitPrice)
	assert.Equal(t, 101.75, inv.Total)
}

func TestCreateRatesFailure(t *testing.T) {
	f := newFixture(t)
	f.rates.err = apperr.NewExternalService("exchange-rates", "http://rates/rates/EUR")
	req := f.request()
	req.Currency = "EUR"

	_, err := f.svc.Create(context.Background(), req)

	assert.True(t, apperr.IsExternalService(err))
	exists, err := f.store.InvoiceNumberExists(context.Background(), "F-0001")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateWithoutRatesService(t *testing.T) {
	f := newFixture(t)
	svc := invoicing.New(f.store, invoicing.Config{Now: func() time.Time { return today }})
	req := f.request()
	req.Currency = "EUR"

	_, err := svc.Create(context.Background(), req)

	var ce *apperr.ConfigurationError
	if assert.True(t, errors.As(err, &ce), "got %v", err) {
		assert.Equal(t, "EXCHANGE_URL", ce.ConfigKey())
	}
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*invoicing.NewInvoice)
		wantField string
		wantCode  string
	}{
		{"blank number", func(r *invoicing.NewInvoice) { r.Number = " " }, "Number", "REQUIRED"},
		{"short number", func(r *invoicing.NewInvoice) { r.Number = "F1" }, "Number", "LENGTH"},
		{"blank customer", func(r *invoicing.NewInvoice) { r.CustomerName = "" }, "CustomerName", "REQUIRED"},
		{"bad email", func(r *invoicing.NewInvoice) { r.CustomerEmail = "Ana <ana@example.com>" }, "CustomerEmail", "INVALID_EMAIL"},
		{"future date", func(r *invoicing.NewInvoice) { r.IssueDate = today.AddDate(0, 0, 1) }, "IssueDate", "FUTURE_DATE"},
		{"old date", func(r *invoicing.NewInvoice) { r.IssueDate = today.AddDate(-11, 0, 0) }, "IssueDate", "DATE_TOO_OLD"},
		{"bad currency", func(r *invoicing.NewInvoice) { r.Currency = "EURO" }, "Currency", "LENGTH"},
		{"bad product id", func(r *invoicing.NewInvoice) { r.Lines[1].ProductID = 0 }, "Lines[1].ProductId", "INVALID_ID"},
		{"zero quantity", func(r *invoicing.NewInvoice) { r.Lines[0].Quantity = 0 }, "Lines[0].Quantity", "RANGE"},
		{"huge quantity", func(r *invoicing.NewInvoice) { r.Lines[0].Quantity = 1001 }, "Lines[0].Quantity", "RANGE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := f.request()
			tt.mutate(&req)

			_, err := f.svc.Create(context.Background(), req)

			var ve *apperr.ValidationError
			require.ErrorAs(t, err, &ve)
			require.Len(t, ve.Fields(), 1)
			assert.Equal(t, tt.wantField, ve.Fields()[0].Field)
			assert.Equal(t, tt.wantCode, ve.Fields()[0].Code)
		})
	}
}

func TestCreateWithoutLines(t *testing.T) {
	f := newFixture(t)
	req := f.request()
	req.Lines = nil

	_, err := f.svc.Create(context.Background(), req)

	var be *apperr.BusinessRuleError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, invoicing.RuleInvoiceWithoutLines, be.Rule())
	assert.Equal(t, 422, be.HTTPStatus())
}

func TestCreateDuplicateNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, f.request())
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.request())

	var ce *apperr.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "DUPLICATE_NUMBER", ce.ConflictType())
}

func TestCreateUnknownProduct(t *testing.T) {
	f := newFixture(t)
	req := f.request()
	req.Lines = append(req.Lines, invoicing.NewLine{ProductID: 404, Quantity: 1})

	_, err := f.svc.Create(context.Background(), req)

	var nf *apperr.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Product", nf.ResourceType())
	assert.Equal(t, int64(404), nf.ResourceID())
}

func TestCreateInsufficientStockAcrossLines(t *testing.T) {
	f := newFixture(t)
	req := f.request()
	req.Lines = []invoicing.NewLine{
		{ProductID: f.mouse.ID, Quantity: 3},
		{ProductID: f.mouse.ID, Quantity: 3},
	}

	_, err := f.svc.Create(context.Background(), req)

	var be *apperr.BusinessRuleError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, store.RuleInsufficientStock, be.Rule())
	assert.Equal(t, 6, be.AdditionalData()["requested"])
}

func TestGetAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, n := range []string{"F-0001", "F-0002"} {
		req := f.request()
		req.Number = n
		req.Lines = []invoicing.NewLine{{ProductID: f.cable.ID, Quantity: 1}}
		_, err := f.svc.Create(ctx, req)
		require.NoError(t, err)
	}

	got, err := f.svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "F-0001", got.Number)
	assert.Len(t, got.Lines, 1)

	_, err = f.svc.Get(ctx, 99)
	assert.True(t, apperr.IsNotFound(err))

	page, err := f.svc.List(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "F-0002", page.Items[0].Number)

	_, err = f.svc.List(ctx, 1, 0)
	assert.True(t, apperr.IsValidation(err))
}

func TestVoid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, err := f.svc.Create(ctx, f.request())
	require.NoError(t, err)

	voided, err := f.svc.Void(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusVoid, voided.Status)

	p, err := f.store.GetProduct(ctx, f.mouse.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)

	_, err = f.svc.Void(ctx, inv.ID)
	var ge *apperr.GenericError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, apperr.SubKindInvalidOperation, ge.SubKind())
	assert.Equal(t, 400, ge.HTTPStatus())
}
