package laborator

// Schema names the tables and columns read by the live sources. The front-end
// schema has moved between domain keys (id_comanda, id_pacient) and generic
// "id" primary keys, so both are configuration rather than code.
type Schema struct {
	Orders struct {
		Table, ID, DoctorID, PatientID, Status, CompletedAt string
	}
	Patients struct {
		Table, ID, Name, DoctorID string
	}
	Doctors struct {
		Table, ID, Name string
	}
	OrderProducts struct {
		Table, ID, OrderID, ProductID, Quantity string
	}
	Products struct {
		Table, ID, Name, Price string
	}
}

// DefaultSchema matches the generic-id layout used by the current front-end.
func DefaultSchema() Schema {
	var s Schema
	s.Orders.Table = "comenzi"
	s.Orders.ID = "id"
	s.Orders.DoctorID = "id_doctor"
	s.Orders.PatientID = "id_pacient"
	s.Orders.Status = "status"
	s.Orders.CompletedAt = "data_finalizare"

	s.Patients.Table = "pacienti"
	s.Patients.ID = "id"
	s.Patients.Name = "nume"
	s.Patients.DoctorID = "id_doctor"

	s.Doctors.Table = "doctori"
	s.Doctors.ID = "id"
	s.Doctors.Name = "nume"

	s.OrderProducts.Table = "comanda_produse"
	s.OrderProducts.ID = "id"
	s.OrderProducts.OrderID = "comanda_id"
	s.OrderProducts.ProductID = "produs_id"
	s.OrderProducts.Quantity = "cantitate"

	s.Products.Table = "produse"
	s.Products.ID = "id"
	s.Products.Name = "nume"
	s.Products.Price = "pret"
	return s
}

// LegacySchema matches the earlier domain-key layout (id_comanda, id_pacient,
// id_doctor, id_produs as primary keys).
func LegacySchema() Schema {
	s := DefaultSchema()
	s.Orders.ID = "id_comanda"
	s.Patients.ID = "id_pacient"
	s.Doctors.ID = "id_doctor"
	s.Products.ID = "id_produs"
	return s
}

// SchemaByName resolves the SCHEMA_LAYOUT setting.
func SchemaByName(name string) (Schema, bool) {
	switch name {
	case "", "default":
		return DefaultSchema(), true
	case "legacy":
		return LegacySchema(), true
	}
	return Schema{}, false
}
