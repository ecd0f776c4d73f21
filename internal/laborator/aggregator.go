package laborator

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Aggregator joins finalized orders with their related entities.
type Aggregator struct {
	source Source
}

// NewAggregator constructs an Aggregator over source.
func NewAggregator(source Source) *Aggregator {
	return &Aggregator{source: source}
}

// Orders returns finalized orders in range without related entities.
func (a *Aggregator) Orders(ctx context.Context, r DateRange) ([]Order, error) {
	return a.source.FinalizedOrders(ctx, r)
}

// Aggregate fetches orders in range and enriches them.
func (a *Aggregator) Aggregate(ctx context.Context, r DateRange) (*Aggregate, error) {
	orders, err := a.Orders(ctx, r)
	if err != nil {
		return nil, err
	}
	return a.Enrich(ctx, orders)
}

// Enrich resolves patients, doctors, line items and products for orders.
// Patients and doctors are loaded concurrently; association rows and products
// depend on earlier results and are loaded in sequence. Any failed lookup
// aborts the whole aggregate.
func (a *Aggregator) Enrich(ctx context.Context, orders []Order) (*Aggregate, error) {
	patientIDs, doctorIDs, orderIDs := distinctIDs(orders)

	var (
		patients []Patient
		doctors  []Doctor
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		patients, err = a.source.Patients(gctx, patientIDs)
		return err
	})
	g.Go(func() error {
		var err error
		doctors, err = a.source.Doctors(gctx, doctorIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	links, err := a.source.OrderProducts(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	productIDs := make([]int64, 0, len(links))
	seen := make(map[int64]struct{}, len(links))
	for _, link := range links {
		if link.ProductID == 0 {
			continue
		}
		if _, ok := seen[link.ProductID]; ok {
			continue
		}
		seen[link.ProductID] = struct{}{}
		productIDs = append(productIDs, link.ProductID)
	}
	products, err := a.source.Products(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	agg := &Aggregate{
		Doctors:  make(map[int64]Doctor, len(doctors)),
		Patients: make(map[int64]Patient, len(patients)),
		Products: make(map[int64]Product, len(products)),
	}
	for _, d := range doctors {
		agg.Doctors[d.ID] = d
	}
	for _, p := range patients {
		agg.Patients[p.ID] = p
	}
	for _, p := range products {
		agg.Products[p.ID] = p
	}

	itemsByOrder := make(map[int64][]LineItem, len(orders))
	for _, link := range links {
		itemsByOrder[link.OrderID] = append(itemsByOrder[link.OrderID], lineItem(link, agg.Products))
	}

	agg.Orders = make([]Order, len(orders))
	for i, order := range orders {
		order.LineItems = itemsByOrder[order.ID]
		if p, ok := agg.Patients[order.PatientID]; ok {
			patient := p
			order.Patient = &patient
		}
		if d, ok := agg.Doctors[order.DoctorID]; ok {
			doctor := d
			order.Doctor = &doctor
		}
		agg.Orders[i] = order
	}
	return agg, nil
}

// lineItem merges the product row with the ordered quantity. Unknown products
// produce an unnamed zero-priced line so the row is still visible.
func lineItem(link OrderProduct, products map[int64]Product) LineItem {
	qty := link.Quantity
	if qty <= 0 {
		qty = 1
	}
	product := products[link.ProductID]
	return LineItem{
		ProductID: link.ProductID,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  qty,
	}
}

func distinctIDs(orders []Order) (patientIDs, doctorIDs, orderIDs []int64) {
	seenPatient := make(map[int64]struct{})
	seenDoctor := make(map[int64]struct{})
	for _, o := range orders {
		if o.ID != 0 {
			orderIDs = append(orderIDs, o.ID)
		}
		if o.PatientID != 0 {
			if _, ok := seenPatient[o.PatientID]; !ok {
				seenPatient[o.PatientID] = struct{}{}
				patientIDs = append(patientIDs, o.PatientID)
			}
		}
		if o.DoctorID != 0 {
			if _, ok := seenDoctor[o.DoctorID]; !ok {
				seenDoctor[o.DoctorID] = struct{}{}
				doctorIDs = append(doctorIDs, o.DoctorID)
			}
		}
	}
	return patientIDs, doctorIDs, orderIDs
}

// Summarize counts orders and the distinct patients and doctors they reference.
func Summarize(orders []Order, usingMock bool) Summary {
	patientIDs, doctorIDs, _ := distinctIDs(orders)
	return Summary{
		OK:           true,
		OrderCount:   len(orders),
		PatientCount: len(patientIDs),
		DoctorCount:  len(doctorIDs),
		UsingMock:    usingMock,
	}
}
