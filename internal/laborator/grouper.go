package laborator

// DoctorGroups maps doctor keys to their orders in first-seen key order.
type DoctorGroups struct {
	keys   []string
	orders map[string][]Order
}

// GroupByDoctor partitions orders by doctor key. Orders without a doctor go
// to the UnknownKey bucket.
func GroupByDoctor(orders []Order) *DoctorGroups {
	g := &DoctorGroups{orders: make(map[string][]Order)}
	for _, o := range orders {
		key := o.DoctorKey()
		if _, ok := g.orders[key]; !ok {
			g.keys = append(g.keys, key)
		}
		g.orders[key] = append(g.orders[key], o)
	}
	return g
}

// Keys returns doctor keys in first-seen order.
func (g *DoctorGroups) Keys() []string {
	return g.keys
}

// Orders returns the orders for key.
func (g *DoctorGroups) Orders(key string) []Order {
	return g.orders[key]
}

// Len returns the number of doctor buckets.
func (g *DoctorGroups) Len() int {
	return len(g.keys)
}

// PatientLine pairs a line item with the order it came from.
type PatientLine struct {
	Item  LineItem
	Order Order
}

// PatientGroup is one patient bucket.
type PatientGroup struct {
	Key     string
	Patient *Patient
	Lines   []PatientLine
}

// Name returns the patient display name for the bucket.
func (p PatientGroup) Name() string {
	if p.Patient == nil {
		return ""
	}
	return p.Patient.Name
}

// PatientGroups maps patient keys to line items in first-seen key order.
type PatientGroups struct {
	keys   []string
	groups map[string]*PatientGroup
}

// GroupByPatient partitions the line items of orders by patient key. Orders
// without line items contribute nothing.
func GroupByPatient(orders []Order) *PatientGroups {
	g := &PatientGroups{groups: make(map[string]*PatientGroup)}
	for _, o := range orders {
		for _, item := range o.LineItems {
			key := o.PatientKey()
			group, ok := g.groups[key]
			if !ok {
				group = &PatientGroup{Key: key, Patient: o.Patient}
				g.groups[key] = group
				g.keys = append(g.keys, key)
			}
			group.Lines = append(group.Lines, PatientLine{Item: item, Order: o})
		}
	}
	return g
}

// Groups returns the patient buckets in first-seen order.
func (g *PatientGroups) Groups() []PatientGroup {
	out := make([]PatientGroup, 0, len(g.keys))
	for _, key := range g.keys {
		out = append(out, *g.groups[key])
	}
	return out
}

// Get returns the bucket for key.
func (g *PatientGroups) Get(key string) (PatientGroup, bool) {
	group, ok := g.groups[key]
	if !ok {
		return PatientGroup{}, false
	}
	return *group, true
}

// LineCount returns the total number of line items across buckets.
func (g *PatientGroups) LineCount() int {
	n := 0
	for _, group := range g.groups {
		n += len(group.Lines)
	}
	return n
}
