package due

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestDaysBetween(t *testing.T) {
	today := time.Date(2026, 5, 10, 18, 30, 0, 0, time.UTC)
	tests := []struct {
		to   time.Time
		want int
	}{
		{time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC), 0},
		{time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(2026, 5, 9, 23, 59, 0, 0, time.UTC), -1},
		{time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC), 31},
	}
	for _, tt := range tests {
		if got := DaysBetween(today, tt.to); got != tt.want {
			t.Errorf("DaysBetween(%v) = %d, want %d", tt.to, got, tt.want)
		}
	}

	// Across a DST change the difference is still whole days.
	ljubljana, err := time.LoadLocation("Europe/Ljubljana")
	if err == nil {
		a := time.Date(2026, 3, 28, 10, 0, 0, 0, ljubljana)
		b := time.Date(2026, 3, 30, 10, 0, 0, 0, ljubljana)
		assert.Equal(t, 2, DaysBetween(a, b))
	}
}

func TestCompute(t *testing.T) {
	today := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	items := []model.Item{
		{ID: "ITEM-1000", Name: "Drill", ImageURL: "/api/images/img-1"},
		{ID: "ITEM-2000", Name: "Saw"},
	}
	txByItem := map[string][]model.Transaction{
		"ITEM-1000": {
			{ID: "TXN-5", Type: model.TransactionReturn, Quantity: 1, BorrowerName: "Ana"},
			{ID: "TXN-4", Type: model.TransactionBorrow, Quantity: 3, QuantityReturned: 1, BorrowerName: "Ana", ReturnDate: date(2026, 5, 15)},
			{ID: "TXN-3", Type: model.TransactionBorrow, Quantity: 2, BorrowerName: "Bor", ReturnDate: date(2026, 5, 8)},
			{ID: "TXN-2", Type: model.TransactionBorrow, Quantity: 2, QuantityReturned: 2, IsSettled: true, Returned: true, BorrowerName: "Cene", ReturnDate: date(2026, 5, 1)},
			{ID: "TXN-1", Type: model.TransactionBorrow, Quantity: 1, BorrowerName: "", ReturnDate: date(2026, 5, 1)},
		},
		"ITEM-2000": {
			{ID: "TXN-7", Type: model.TransactionBorrow, Quantity: 1, BorrowerName: "Dana"},
			{ID: "TXN-6", Type: model.TransactionBorrow, Quantity: 4, BorrowerName: "Eva", ReturnDate: date(2026, 5, 15)},
			{ID: "TXN-0", Type: model.TransactionBorrow, Quantity: 2, QuantityReturned: 2, BorrowerName: "Fran", ReturnDate: date(2026, 5, 2)},
		},
	}

	got := Compute(items, txByItem, today)

	want := []model.DueItem{
		{TransactionID: "TXN-3", ItemID: "ITEM-1000", ItemName: "Drill", ItemImageURL: "/api/images/img-1", BorrowerName: "Bor", ReturnDate: *date(2026, 5, 8), DaysRemaining: -2, QuantityBorrowed: 2, QuantityDue: 2},
		{TransactionID: "TXN-4", ItemID: "ITEM-1000", ItemName: "Drill", ItemImageURL: "/api/images/img-1", BorrowerName: "Ana", ReturnDate: *date(2026, 5, 15), DaysRemaining: 5, QuantityBorrowed: 3, QuantityReturned: 1, QuantityDue: 2},
		{TransactionID: "TXN-6", ItemID: "ITEM-2000", ItemName: "Saw", BorrowerName: "Eva", ReturnDate: *date(2026, 5, 15), DaysRemaining: 5, QuantityBorrowed: 4, QuantityDue: 4},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Compute mismatch (-want +got):\n%s", diff)
	}

	// Recomputing gives the same result.
	if diff := cmp.Diff(got, Compute(items, txByItem, today)); diff != "" {
		t.Errorf("Compute is not idempotent:\n%s", diff)
	}
}

func TestComputeEmpty(t *testing.T) {
	assert.Empty(t, Compute(nil, nil, time.Now()))
}

func TestServiceList(t *testing.T) {
	repo := store.NewTestRepository(t)
	ctx := context.Background()

	items, err := store.ItemsEntry([]model.Item{{ID: "ITEM-1000", Name: "Drill", Stock: 1}, {ID: "ITEM-2000", Name: "Saw", Stock: 1}})
	require.NoError(t, err)
	tx1, err := store.TransactionsEntry("ITEM-1000", []model.Transaction{
		{ID: "TXN-1", Type: model.TransactionBorrow, Quantity: 1, BorrowerName: "Ana", ReturnDate: date(2026, 5, 20)},
	})
	require.NoError(t, err)
	tx2, err := store.TransactionsEntry("ITEM-2000", []model.Transaction{
		{ID: "TXN-2", Type: model.TransactionBorrow, Quantity: 1, BorrowerName: "Bor", ReturnDate: date(2026, 5, 9)},
	})
	require.NoError(t, err)
	require.NoError(t, repo.Apply(ctx, items, tx1, tx2))

	svc := NewService(repo)
	svc.Location = time.UTC
	svc.Now = func() time.Time { return time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC) }

	got, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "TXN-2", got[0].TransactionID)
	assert.Equal(t, -1, got[0].DaysRemaining)
	assert.Equal(t, "TXN-1", got[1].TransactionID)
	assert.Equal(t, 10, got[1].DaysRemaining)
}
