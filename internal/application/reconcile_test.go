package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/payvault/internal/domain/model"
)

func doc(id, title string, createdAt time.Time) model.Document {
	return model.Document{
		ID:        id,
		Title:     title,
		Period:    createdAt.UTC().Format("2006-01"),
		CreatedAt: createdAt,
		MimeType:  "image/jpeg",
	}
}

func TestReconcileEmptyInput(t *testing.T) {
	assert.Empty(t, Reconcile(nil))
	assert.Empty(t, Reconcile([]model.Document{}))
}

func TestReconcileSortsNewestFirst(t *testing.T) {
	base := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	out := Reconcile([]model.Document{
		doc("a", "Payslip_2024-01", base),
		doc("c", "Payslip_2024-03", base.AddDate(0, 2, 0)),
		doc("b", "Payslip_2024-02", base.AddDate(0, 1, 0)),
	})

	require.Len(t, out, 3)
	assert.Equal(t, "c", out[0].ID)
	assert.Equal(t, "b", out[1].ID)
	assert.Equal(t, "a", out[2].ID)
}

func TestReconcileDuplicateTitleLatestWins(t *testing.T) {
	base := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	// Same payslip captured twice; the re-capture is newer and must win
	// regardless of input order.
	out := Reconcile([]model.Document{
		doc("recapture", "Payslip_2024-01", base.Add(2*time.Hour)),
		doc("original", "Payslip_2024-01", base),
	})

	require.Len(t, out, 1)
	assert.Equal(t, "recapture", out[0].ID)

	out = Reconcile([]model.Document{
		doc("original", "Payslip_2024-01", base),
		doc("recapture", "Payslip_2024-01", base.Add(2*time.Hour)),
	})

	require.Len(t, out, 1)
	assert.Equal(t, "recapture", out[0].ID)
}

func TestReconcileDuplicateWithEqualTimestampsKeepsFirst(t *testing.T) {
	base := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	out := Reconcile([]model.Document{
		doc("first", "Payslip_2024-01", base),
		doc("second", "Payslip_2024-01", base),
	})

	require.Len(t, out, 1)
	assert.Equal(t, "first", out[0].ID)
}

func TestReconcileEmptyTitleGetsPlaceholder(t *testing.T) {
	base := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	out := Reconcile([]model.Document{
		doc("x", "", base),
		doc("y", "", base.Add(time.Hour)),
	})

	// Nameless documents share the placeholder title, so they dedup together.
	require.Len(t, out, 1)
	assert.Equal(t, placeholderTitle, out[0].Title)
	assert.Equal(t, "y", out[0].ID)
}

func TestReconcileEqualTimestampsOrderByTitle(t *testing.T) {
	base := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	out := Reconcile([]model.Document{
		doc("b", "Payslip_2024-02", base),
		doc("a", "Payslip_2024-01", base),
	})

	require.Len(t, out, 2)
	assert.Equal(t, "Payslip_2024-01", out[0].Title)
	assert.Equal(t, "Payslip_2024-02", out[1].Title)
}

func TestReconcileDoesNotMutateInput(t *testing.T) {
	base := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	in := []model.Document{
		doc("a", "Payslip_2024-01", base),
		doc("b", "Payslip_2024-02", base.AddDate(0, 1, 0)),
	}

	_ = Reconcile(in)

	assert.Equal(t, "a", in[0].ID)
	assert.Equal(t, "b", in[1].ID)
}
