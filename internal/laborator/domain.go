package laborator

import (
	"strconv"
	"time"
)

// StatusFinalized is the only order status included in exports.
const StatusFinalized = "Finalizată"

// EmptyMessage is returned to callers when the range has no finalized orders.
const EmptyMessage = "No finalized orders in range"

// UnknownKey buckets orders or line items whose doctor or patient id is missing.
const UnknownKey = "unknown"

// Doctor is a referring dentist.
type Doctor struct {
	ID   int64
	Name string
}

// Patient belongs to exactly one doctor.
type Patient struct {
	ID       int64
	Name     string
	DoctorID int64
}

// Product is a laboratory catalogue entry.
type Product struct {
	ID    int64
	Name  string
	Price float64
}

// OrderProduct is one row of the order/product association table.
type OrderProduct struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  float64
}

// LineItem is a product merged with the quantity ordered.
type LineItem struct {
	ProductID int64
	Name      string
	UnitPrice float64
	Quantity  float64
}

// Amount returns unit price times quantity.
func (l LineItem) Amount() float64 {
	return l.UnitPrice * l.Quantity
}

// Order is a finalized laboratory order. Patient and Doctor are nil until the
// aggregator resolves them, and stay nil when the referenced row is missing.
type Order struct {
	ID          int64
	DoctorID    int64
	PatientID   int64
	Status      string
	CompletedAt *time.Time
	LineItems   []LineItem
	Patient     *Patient
	Doctor      *Doctor
}

// DoctorKey returns the doctor grouping key.
func (o Order) DoctorKey() string {
	return GroupKey(o.DoctorID)
}

// PatientKey returns the patient grouping key.
func (o Order) PatientKey() string {
	return GroupKey(o.PatientID)
}

// PatientName returns the resolved patient name or an empty string.
func (o Order) PatientName() string {
	if o.Patient == nil {
		return ""
	}
	return o.Patient.Name
}

// GroupKey maps an identifier to its bucket key. Zero ids go to UnknownKey.
func GroupKey(id int64) string {
	if id == 0 {
		return UnknownKey
	}
	return strconv.FormatInt(id, 10)
}

// DateRange bounds the completion timestamp. Nil bounds are open.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Contains reports whether t falls inside the inclusive range.
func (r DateRange) Contains(t time.Time) bool {
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && t.After(*r.End) {
		return false
	}
	return true
}

// Aggregate is the fully joined export input.
type Aggregate struct {
	Orders   []Order
	Doctors  map[int64]Doctor
	Patients map[int64]Patient
	Products map[int64]Product
}

// Summary is returned by the debug path of the export endpoint.
type Summary struct {
	OK           bool `json:"ok"`
	OrderCount   int  `json:"comenziCount"`
	PatientCount int  `json:"pacientCount"`
	DoctorCount  int  `json:"doctorCount"`
	UsingMock    bool `json:"usingMock"`
}
