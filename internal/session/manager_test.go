package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tablesidehq/tableside-backend/pkg/config"
	"github.com/tablesidehq/tableside-backend/pkg/kv"
)

const testSession = "guest-1"

func newTestManager(t *testing.T) (*Manager, *kv.MemoryStore) {
	t.Helper()
	store := kv.NewMemoryStore()
	mgr, err := NewManager(store, config.SessionConfig{
		OrderTTL: 12 * time.Hour,
		FlagTTL:  time.Hour,
	})
	require.NoError(t, err)
	return mgr, store
}

func TestOrderRoundTrip(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	_, ok, err := mgr.OrderID(ctx, testSession)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, mgr.SaveOrder(ctx, testSession, 42))

	id, ok, err := mgr.OrderID(ctx, testSession)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 42, id)

	has, err := mgr.HasOrder(ctx, testSession)
	require.NoError(t, err)
	require.True(t, has)

	require.NoError(t, mgr.ClearOrder(ctx, testSession))
	has, err = mgr.HasOrder(ctx, testSession)
	require.NoError(t, err)
	require.False(t, has)
}

func TestNonNumericOrderReadsAsAbsent(t *testing.T) {
	mgr, store := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, orderKey(testSession), "not-a-number", 0))

	_, ok, err := mgr.OrderID(ctx, testSession)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestClearAllResetsContext(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, mgr.SaveTable(ctx, testSession, 5))
	require.NoError(t, mgr.SaveOrder(ctx, testSession, 42))
	require.NoError(t, mgr.MarkCheckoutInitiated(ctx, testSession, 42))
	require.NoError(t, mgr.MarkPaymentSuccess(ctx, testSession, 42))

	require.NoError(t, mgr.ClearAll(ctx, testSession))

	_, ok, err := mgr.TableID(ctx, testSession)
	require.NoError(t, err)
	require.False(t, ok)
	has, err := mgr.HasOrder(ctx, testSession)
	require.NoError(t, err)
	require.False(t, has)
	initiated, err := mgr.IsCheckoutInitiated(ctx, testSession, 42)
	require.NoError(t, err)
	require.False(t, initiated)
}

func TestCheckoutFlagBoundToOrderID(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, mgr.MarkCheckoutInitiated(ctx, testSession, 42))

	// A stale flag for an old order must never authorize a new order.
	initiated, err := mgr.IsCheckoutInitiated(ctx, testSession, 43)
	require.NoError(t, err)
	require.False(t, initiated)

	initiated, err = mgr.IsCheckoutInitiated(ctx, testSession, 42)
	require.NoError(t, err)
	require.True(t, initiated)
}

func TestConsumeCheckoutInitiatedDeletesFlag(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, mgr.MarkCheckoutInitiated(ctx, testSession, 42))

	ok, err := mgr.ConsumeCheckoutInitiated(ctx, testSession, 42)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = mgr.ConsumeCheckoutInitiated(ctx, testSession, 42)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestConsumeCheckoutInitiatedMismatchStillConsumes(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, mgr.MarkCheckoutInitiated(ctx, testSession, 42))

	ok, err := mgr.ConsumeCheckoutInitiated(ctx, testSession, 99)
	require.NoError(t, err)
	require.False(t, ok)

	// The stale flag is gone either way.
	initiated, err := mgr.IsCheckoutInitiated(ctx, testSession, 42)
	require.NoError(t, err)
	require.False(t, initiated)
}

func TestConsumePaymentSuccessIsOneShot(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, mgr.MarkPaymentSuccess(ctx, testSession, 42))

	id, ok, err := mgr.ConsumePaymentSuccess(ctx, testSession)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 42, id)

	_, ok, err = mgr.ConsumePaymentSuccess(ctx, testSession)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSaveTableValidatesID(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.Error(t, mgr.SaveTable(context.Background(), testSession, 0))
}
