package schema

// PersonSchema returns the descriptor for the anonymized persons table.
// Callers pass the returned value explicitly into the anonymization engine
// and the store; there is no process-wide schema state.
func PersonSchema() TableSchema {
	return TableSchema{
		Name: "persons",
		Fields: []FieldDefinition{
			// Retained as-is
			{Name: "gender", StorageType: "TEXT", Description: "Male, Female or Other", Policy: PolicyPassthrough},
			{Name: "country", StorageType: "TEXT", Description: "Country name", Policy: PolicyPassthrough},
			{Name: "city", StorageType: "TEXT", Description: "City name", Policy: PolicyPassthrough},
			{Name: "country_code", StorageType: "TEXT", Description: "Country code (e.g. US)", Policy: PolicyPassthrough},
			// Generalized
			{Name: "email", StorageType: "TEXT", Description: "Domain part only", Policy: PolicyDerived},
			{Name: "birthday", StorageType: "TEXT", Description: "Decade age bucket (e.g. [30-40])", Policy: PolicyDerived},
			{Name: "latitude", StorageType: "REAL", Description: "Coordinate with bounded noise", Policy: PolicyDerived},
			{Name: "longitude", StorageType: "REAL", Description: "Coordinate with bounded noise", Policy: PolicyDerived},
			// PII, always masked
			{Name: "firstname", StorageType: "TEXT", Description: "Masked", Policy: PolicyMasked},
			{Name: "lastname", StorageType: "TEXT", Description: "Masked", Policy: PolicyMasked},
			{Name: "phone", StorageType: "TEXT", Description: "Masked", Policy: PolicyMasked},
			{Name: "street", StorageType: "TEXT", Description: "Masked", Policy: PolicyMasked},
			{Name: "streetName", StorageType: "TEXT", Description: "Masked", Policy: PolicyMasked},
			{Name: "buildingNumber", StorageType: "TEXT", Description: "Masked", Policy: PolicyMasked},
			{Name: "zipcode", StorageType: "TEXT", Description: "Masked", Policy: PolicyMasked},
			{Name: "image", StorageType: "TEXT", Description: "Masked", Policy: PolicyMasked},
			{Name: "website", StorageType: "TEXT", Description: "Masked", Policy: PolicyMasked},
		},
	}
}
