package mapping

// Default returns the tables of the device management application.
func Default() *Table {
	return MustNew(
		Mapping{Table: "familiars", Backend: Flat("familiars"), IDField: "id"},
		Mapping{Table: "logs", Backend: Collection("logs"), IDField: "id"},
		Mapping{Table: "configs", Backend: Collection("configs"), IDField: "id"},
		Mapping{Table: "emergency_contacts", Backend: Collection("emergency_contacts"), IDField: "id"},
		Mapping{Table: "device_status", Backend: Flat("device_status"), IDField: "device_id"},
	)
}
