package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tablesidehq/tableside-backend/pkg/kv"
)

const testSession = "session-1"

func newTestService(t *testing.T) (Service, *kv.MemoryStore) {
	t.Helper()
	store := kv.NewMemoryStore()
	svc, err := NewService(store, nil)
	require.NoError(t, err)
	return svc, store
}

func line(itemID int64, sizeID string, qty int, price string) Line {
	return Line{
		ItemID:    itemID,
		SizeID:    sizeID,
		Quantity:  qty,
		UnitPrice: decimal.RequireFromString(price),
		Name:      "item",
	}
}

func TestAddMergesSameKey(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, testSession, line(1, "S", 2, "500"))
	require.NoError(t, err)
	_, err = svc.Add(ctx, testSession, line(1, "S", 3, "500"))
	require.NoError(t, err)

	lines := svc.Get(ctx, testSession)
	require.Len(t, lines, 1)
	require.Equal(t, 5, lines[0].Quantity)
}

func TestAddDistinctSizesStayDistinct(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, testSession, line(1, "S", 1, "500"))
	require.NoError(t, err)
	_, err = svc.Add(ctx, testSession, line(1, "L", 1, "650"))
	require.NoError(t, err)
	_, err = svc.Add(ctx, testSession, line(1, "", 1, "400"))
	require.NoError(t, err)

	require.Len(t, svc.Get(ctx, testSession), 3)
}

func TestAddRejectsInvalidLines(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, testSession, line(0, "S", 1, "500"))
	require.Error(t, err)
	_, err = svc.Add(ctx, testSession, line(1, "S", 0, "500"))
	require.Error(t, err)
	_, err = svc.Add(ctx, testSession, line(1, "S", 1, "-1"))
	require.Error(t, err)
}

func TestUpdateQuantitySetsExactly(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, testSession, line(1, "S", 2, "500"))
	require.NoError(t, err)

	lines, err := svc.UpdateQuantity(ctx, testSession, 1, "S", 7)
	require.NoError(t, err)
	require.Equal(t, 7, lines[0].Quantity)
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, testSession, line(1, "S", 2, "500"))
	require.NoError(t, err)

	lines, err := svc.UpdateQuantity(ctx, testSession, 1, "S", 0)
	require.NoError(t, err)
	require.Empty(t, lines)
}

func TestUpdateQuantityMissingLineIsNoop(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, testSession, line(1, "S", 2, "500"))
	require.NoError(t, err)

	lines, err := svc.UpdateQuantity(ctx, testSession, 99, "S", 4)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, 2, lines[0].Quantity)
}

func TestRemoveIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, testSession, line(1, "S", 2, "500"))
	require.NoError(t, err)

	lines, err := svc.Remove(ctx, testSession, 1, "S")
	require.NoError(t, err)
	require.Empty(t, lines)

	lines, err = svc.Remove(ctx, testSession, 1, "S")
	require.NoError(t, err)
	require.Empty(t, lines)
}

func TestTotalsAndCounts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, testSession, line(1, "S", 2, "500"))
	require.NoError(t, err)
	_, err = svc.Add(ctx, testSession, line(2, "", 3, "120.50"))
	require.NoError(t, err)

	require.Equal(t, 5, svc.ItemCount(ctx, testSession))
	require.True(t, svc.Total(ctx, testSession).Equal(decimal.RequireFromString("1361.50")))
}

func TestCorruptPayloadReadsAsEmpty(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, storageKey(testSession), "{not-json", 0))

	require.Empty(t, svc.Get(ctx, testSession))
	require.Zero(t, svc.ItemCount(ctx, testSession))
	require.True(t, svc.Total(ctx, testSession).IsZero())
}

func TestClearEmptiesStorage(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, testSession, line(1, "S", 2, "500"))
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, testSession))
	require.Empty(t, svc.Get(ctx, testSession))
	require.Zero(t, store.Len())
}
