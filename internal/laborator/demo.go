package laborator

import (
	"context"
	"time"
)

// DemoSource serves a single doctor, patient, product and order so exports
// stay exercisable without a live store.
type DemoSource struct {
	orders        []Order
	patients      []Patient
	doctors       []Doctor
	orderProducts []OrderProduct
	products      []Product
}

// NewDemoSource returns the built-in demonstration dataset.
func NewDemoSource() *DemoSource {
	completed := time.Now().UTC()
	return &DemoSource{
		doctors:  []Doctor{{ID: 1, Name: "Dr. Demo"}},
		patients: []Patient{{ID: 1, Name: "Pacient Demo", DoctorID: 1}},
		products: []Product{{ID: 1, Name: "Coroana zirconiu", Price: 350}},
		orders: []Order{{
			ID:          1,
			DoctorID:    1,
			PatientID:   1,
			Status:      StatusFinalized,
			CompletedAt: &completed,
		}},
		orderProducts: []OrderProduct{{ID: 1, OrderID: 1, ProductID: 1, Quantity: 2}},
	}
}

// FinalizedOrders returns the demo orders completed inside r. The demo order
// is stamped with the construction time, so open or current ranges match it.
func (d *DemoSource) FinalizedOrders(_ context.Context, r DateRange) ([]Order, error) {
	out := make([]Order, 0, len(d.orders))
	for _, o := range d.orders {
		if o.CompletedAt != nil && r.Contains(*o.CompletedAt) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (d *DemoSource) Patients(_ context.Context, ids []int64) ([]Patient, error) {
	set := idSet(ids)
	var out []Patient
	for _, p := range d.patients {
		if _, ok := set[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (d *DemoSource) Doctors(_ context.Context, ids []int64) ([]Doctor, error) {
	set := idSet(ids)
	var out []Doctor
	for _, doc := range d.doctors {
		if _, ok := set[doc.ID]; ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (d *DemoSource) OrderProducts(_ context.Context, orderIDs []int64) ([]OrderProduct, error) {
	set := idSet(orderIDs)
	var out []OrderProduct
	for _, op := range d.orderProducts {
		if _, ok := set[op.OrderID]; ok {
			out = append(out, op)
		}
	}
	return out, nil
}

func (d *DemoSource) Products(_ context.Context, ids []int64) ([]Product, error) {
	set := idSet(ids)
	var out []Product
	for _, p := range d.products {
		if _, ok := set[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
