package laborator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() *memSource {
	return &memSource{
		doctors: []Doctor{{ID: 1, Name: "Dr. Ionescu"}, {ID: 2, Name: "Dr. Popa"}},
		patients: []Patient{
			{ID: 10, Name: "Ana", DoctorID: 1},
			{ID: 11, Name: "Bogdan", DoctorID: 1},
			{ID: 12, Name: "Carmen", DoctorID: 2},
		},
		products: []Product{
			{ID: 100, Name: "Coroana zirconiu", Price: 350},
			{ID: 101, Name: "Punte", Price: 120.5},
		},
		orders: []Order{
			{ID: 1, DoctorID: 1, PatientID: 10, Status: StatusFinalized, CompletedAt: at("2025-01-05T10:00:00Z")},
			{ID: 2, DoctorID: 2, PatientID: 12, Status: StatusFinalized, CompletedAt: at("2025-01-06T10:00:00Z")},
			{ID: 3, DoctorID: 1, PatientID: 11, Status: StatusFinalized, CompletedAt: at("2025-01-07T10:00:00Z")},
			{ID: 4, DoctorID: 1, PatientID: 10, Status: "In lucru", CompletedAt: at("2025-01-07T10:00:00Z")},
			{ID: 5, DoctorID: 1, PatientID: 10, Status: StatusFinalized, CompletedAt: at("2025-03-01T10:00:00Z")},
		},
		orderProducts: []OrderProduct{
			{ID: 1, OrderID: 1, ProductID: 100, Quantity: 2},
			{ID: 2, OrderID: 1, ProductID: 101, Quantity: 1},
			{ID: 3, OrderID: 2, ProductID: 101, Quantity: 3},
			{ID: 4, OrderID: 3, ProductID: 100, Quantity: 0},
		},
	}
}

func january() DateRange {
	return DateRange{Start: at("2025-01-01T00:00:00Z"), End: at("2025-01-31T23:59:59Z")}
}

func TestAggregateJoinsEntities(t *testing.T) {
	agg, err := NewAggregator(fixture()).Aggregate(context.Background(), january())
	require.NoError(t, err)

	require.Len(t, agg.Orders, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{agg.Orders[0].ID, agg.Orders[1].ID, agg.Orders[2].ID})

	first := agg.Orders[0]
	require.NotNil(t, first.Doctor)
	assert.Equal(t, "Dr. Ionescu", first.Doctor.Name)
	assert.Equal(t, "Ana", first.PatientName())
	require.Len(t, first.LineItems, 2)
	assert.InDelta(t, 700.0, first.LineItems[0].Amount(), 1e-9)
	assert.InDelta(t, 120.5, first.LineItems[1].Amount(), 1e-9)

	assert.Len(t, agg.Doctors, 2)
	assert.Len(t, agg.Patients, 3)
	assert.Len(t, agg.Products, 2)
}

func TestAggregateDefaultsNonPositiveQuantity(t *testing.T) {
	agg, err := NewAggregator(fixture()).Aggregate(context.Background(), january())
	require.NoError(t, err)

	third := agg.Orders[2]
	require.Len(t, third.LineItems, 1)
	assert.Equal(t, 1.0, third.LineItems[0].Quantity)
}

func TestAggregateMissingReferences(t *testing.T) {
	src := fixture()
	src.orders = append(src.orders,
		Order{ID: 6, DoctorID: 99, PatientID: 98, Status: StatusFinalized, CompletedAt: at("2025-01-10T00:00:00Z")},
		Order{ID: 7, Status: StatusFinalized, CompletedAt: at("2025-01-11T00:00:00Z")},
	)
	src.orderProducts = append(src.orderProducts, OrderProduct{ID: 9, OrderID: 6, ProductID: 555, Quantity: 4})

	agg, err := NewAggregator(src).Aggregate(context.Background(), january())
	require.NoError(t, err)
	require.Len(t, agg.Orders, 5)

	missing := agg.Orders[3]
	assert.Nil(t, missing.Doctor)
	assert.Nil(t, missing.Patient)
	require.Len(t, missing.LineItems, 1)
	assert.Empty(t, missing.LineItems[0].Name)
	assert.Zero(t, missing.LineItems[0].Amount())

	orphan := agg.Orders[4]
	assert.Equal(t, UnknownKey, orphan.DoctorKey())
	assert.Equal(t, UnknownKey, orphan.PatientKey())
	assert.Empty(t, orphan.LineItems)
}

func TestAggregateLookupFailureAborts(t *testing.T) {
	for _, collection := range []string{"comenzi", "pacienti", "doctori", "comanda_produse", "produse"} {
		t.Run(collection, func(t *testing.T) {
			src := fixture()
			src.failOn = collection

			agg, err := NewAggregator(src).Aggregate(context.Background(), january())
			require.Error(t, err)
			assert.Nil(t, agg)

			var lookupErr *LookupError
			require.ErrorAs(t, err, &lookupErr)
			assert.Equal(t, collection, lookupErr.Collection)
		})
	}
}

func TestEnrichEmpty(t *testing.T) {
	agg, err := NewAggregator(fixture()).Enrich(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, agg.Orders)
}

func TestSummarizeCountsDistinct(t *testing.T) {
	orders, err := NewAggregator(fixture()).Orders(context.Background(), january())
	require.NoError(t, err)

	summary := Summarize(orders, true)
	assert.Equal(t, Summary{OK: true, OrderCount: 3, PatientCount: 3, DoctorCount: 2, UsingMock: true}, summary)
}
