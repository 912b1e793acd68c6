package postgres

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
)

func TestAssembleStoresGroupsFleetAndAssortment(t *testing.T) {
	stores := assembleStores(
		[]storeRow{{ID: "Store_A", Name: "Downtown", Lat: 1, Lon: 2}, {ID: "Store_B", Name: "Harbour", Lat: 3, Lon: 4}},
		[]domain.Vehicle{
			{ID: "V1", Capacity: 40, Refrigerated: true, HomeStore: "Store_A"},
			{ID: "V2", Capacity: 20, HomeStore: "Store_A"},
			{ID: "V9", Capacity: 10, HomeStore: "Store_Z"},
		},
		[]storeProductRow{{StoreID: "Store_A", Product: "Milk"}, {StoreID: "Store_B", Product: "Bread"}},
	)

	require.Len(t, stores, 2)
	assert.Equal(t, domain.Coordinates{Lat: 1, Lon: 2}, stores[0].Location)
	assert.Len(t, stores[0].Vehicles, 2)
	assert.Equal(t, []string{"Milk"}, stores[0].Products)
	assert.Empty(t, stores[1].Vehicles)
	assert.NotNil(t, stores[1].Vehicles)
	assert.Equal(t, []string{"Bread"}, stores[1].Products)
}

func TestAssembleOrdersAttachesLines(t *testing.T) {
	deadline := time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC)
	orders := assembleOrders(
		[]orderRow{
			{ID: "O1", StoreID: "Store_A", Lat: 1, Lon: 1, Deadline: sql.NullTime{Time: deadline, Valid: true}, Priority: 2},
			{ID: "O2", StoreID: "Store_A", Lat: 2, Lon: 2, RequiresRefrigeration: true},
		},
		[]orderLineRow{
			{OrderID: "O1", Product: "Milk", Quantity: 4},
			{OrderID: "O1", Product: "Bread", Quantity: 2},
			{OrderID: "O2", Product: "Chicken", Quantity: 1},
		},
	)

	require.Len(t, orders, 2)
	assert.Equal(t, deadline, orders[0].Deadline)
	assert.Equal(t, 6, orders[0].Size())
	assert.Equal(t, []string{"Milk", "Bread"}, orders[0].Products())
	assert.True(t, orders[1].Deadline.IsZero())
	assert.True(t, orders[1].RequiresRefrigeration)
}

func TestDateBoundsOpenEnds(t *testing.T) {
	lo, hi := dateBounds(time.Time{}, time.Time{})
	assert.Equal(t, 1970, lo.Year())
	assert.Equal(t, 9999, hi.Year())

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	lo, _ = dateBounds(from, time.Time{})
	assert.Equal(t, from, lo)
}

func TestSchemaCoversEveryTable(t *testing.T) {
	for _, table := range []string{
		"stores", "vehicles", "store_products", "inventory_batches", "delivery_orders",
		"order_lines", "sales_history", "weather_history", "local_events", "operation_runs", "operation_reports",
	} {
		assert.Contains(t, Schema, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
	assert.Equal(t, strings.Count(Schema, "CREATE TABLE"), 11)
}
