package tables

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tablesidehq/tableside-backend/pkg/db/models"
	pkgerrors "github.com/tablesidehq/tableside-backend/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.DiningTable{}))

	svc, err := NewService(NewRepository(conn), nil)
	require.NoError(t, err)
	return svc
}

func TestCreateAndResolve(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	table, err := svc.Create(ctx, CreateTableDTO{ID: 7, Label: "Patio 7"})
	require.NoError(t, err)
	require.NotEmpty(t, table.QRToken)
	require.True(t, table.Active)

	resolved, err := svc.ResolveQR(ctx, table.QRToken)
	require.NoError(t, err)
	require.EqualValues(t, 7, resolved.ID)
	require.Equal(t, "Patio 7", resolved.Label)
}

func TestResolveUnknownToken(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ResolveQR(context.Background(), "nope")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestResolveEmptyToken(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ResolveQR(context.Background(), "  ")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestDeactivatedTableStopsResolving(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	table, err := svc.Create(ctx, CreateTableDTO{ID: 7, Label: "Patio 7"})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, 7))

	_, err = svc.ResolveQR(ctx, table.QRToken)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	// Deactivated reads the same as unknown.
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	// Deactivating again is a no-op.
	require.NoError(t, svc.Deactivate(ctx, 7))
}

func TestRotateTokenInvalidatesOldCode(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	table, err := svc.Create(ctx, CreateTableDTO{ID: 7, Label: "Patio 7"})
	require.NoError(t, err)
	oldToken := table.QRToken

	rotated, err := svc.RotateToken(ctx, 7)
	require.NoError(t, err)
	require.NotEqual(t, oldToken, rotated.QRToken)
	require.NotNil(t, rotated.RotatedAt)

	_, err = svc.ResolveQR(ctx, oldToken)
	require.Error(t, err)

	resolved, err := svc.ResolveQR(ctx, rotated.QRToken)
	require.NoError(t, err)
	require.EqualValues(t, 7, resolved.ID)
}

func TestListOrdersByID(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateTableDTO{ID: 9, Label: "Bar 9"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateTableDTO{ID: 3, Label: "Window 3"})
	require.NoError(t, err)

	tables, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	require.EqualValues(t, 3, tables[0].ID)
	require.EqualValues(t, 9, tables[1].ID)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateTableDTO{ID: 0, Label: "x"})
	require.Error(t, err)
	_, err = svc.Create(ctx, CreateTableDTO{ID: 1, Label: "  "})
	require.Error(t, err)
}

func TestRotateUnknownTable(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.RotateToken(context.Background(), 99)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
