package menu

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dinein/pkg/platform/sentinel"
)

func TestInMemoryLookup(t *testing.T) {
	catalog := NewInMemory(DemoItems()...)
	ctx := context.Background()

	item, err := catalog.Lookup(ctx, "es-teh")
	require.NoError(t, err)
	assert.Equal(t, int64(8000), item.Price)
	opt, ok := item.Option("large")
	require.True(t, ok)
	assert.Equal(t, int64(3000), opt.PriceDelta)

	_, ok = item.Option("extra-egg")
	assert.False(t, ok)

	_, err = catalog.Lookup(ctx, "pizza")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryLookupReturnsCopies(t *testing.T) {
	catalog := NewInMemory(DemoItems()...)
	item, err := catalog.Lookup(context.Background(), "es-teh")
	require.NoError(t, err)
	item.Options[0].PriceDelta = 99

	again, err := catalog.Lookup(context.Background(), "es-teh")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), again.Options[0].PriceDelta)
}

func TestPostgresLookup(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	catalog := NewPostgres(db)

	mock.ExpectQuery(`SELECT name, price, available FROM menu_items WHERE id = \$1`).
		WithArgs("es-teh").
		WillReturnRows(sqlmock.NewRows([]string{"name", "price", "available"}).AddRow("Es Teh", int64(8000), true))
	mock.ExpectQuery(`FROM modifier_options WHERE menu_item_id = \$1`).
		WithArgs("es-teh").
		WillReturnRows(sqlmock.NewRows([]string{"id", "group_name", "name", "price_delta"}).
			AddRow("large", "size", "Large", int64(3000)))

	item, err := catalog.Lookup(context.Background(), "es-teh")
	require.NoError(t, err)
	assert.True(t, item.Available)
	require.Len(t, item.Options, 1)
	assert.Equal(t, "size", item.Options[0].Group)

	mock.ExpectQuery(`FROM menu_items`).WithArgs("pizza").WillReturnRows(sqlmock.NewRows([]string{"name", "price", "available"}))
	_, err = catalog.Lookup(context.Background(), "pizza")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
