package types

import "testing"

func TestRawRecord_Lookup(t *testing.T) {
	raw := RawRecord{
		"email": "user@example.com",
		"address": map[string]interface{}{
			"country":  "Germany",
			"city":     "Berlin",
			"latitude": 52.52,
		},
	}

	tests := []struct {
		name      string
		field     string
		wantValue interface{}
		wantFound bool
	}{
		{"top level", "email", "user@example.com", true},
		{"nested in address", "country", "Germany", true},
		{"nested float", "latitude", 52.52, true},
		{"missing", "phone", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := raw.Lookup(tt.field)
			if ok != tt.wantFound {
				t.Fatalf("Lookup(%q) found=%v, want %v", tt.field, ok, tt.wantFound)
			}
			if v != tt.wantValue {
				t.Errorf("Lookup(%q) = %v, want %v", tt.field, v, tt.wantValue)
			}
		})
	}
}

func TestRawRecord_LookupTopLevelShadowsAddress(t *testing.T) {
	raw := RawRecord{
		"country": "Japan",
		"address": map[string]interface{}{
			"country": "Germany",
		},
	}

	v, ok := raw.Lookup("country")
	if !ok || v != "Japan" {
		t.Errorf("Lookup(country) = %v, %v; want Japan, true", v, ok)
	}
}

func TestRawRecord_LookupNullValue(t *testing.T) {
	raw := RawRecord{"latitude": nil}

	v, ok := raw.Lookup("latitude")
	if !ok {
		t.Fatal("Lookup(latitude) should find an explicit null")
	}
	if v != nil {
		t.Errorf("Lookup(latitude) = %v, want nil", v)
	}
}
