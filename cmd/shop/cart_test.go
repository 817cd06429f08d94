package shop

import (
	"testing"
)

func TestParseItem(t *testing.T) {
	tests := []struct {
		arg      string
		id       string
		quantity float64
		wantErr  bool
	}{
		{"PROD001", "PROD001", 1, false},
		{"PROD001:3", "PROD001", 3, false},
		{"LINE002:0", "LINE002", 0, false},
		{"PROD001:1.5", "PROD001", 1.5, false},
		{"PROD001:x", "", 0, true},
		{":2", "", 0, true},
	}

	for _, tt := range tests {
		id, quantity, err := ParseItem(tt.arg, 1)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseItem(%q) error = %v, wantErr %v", tt.arg, err, tt.wantErr)
			continue
		}
		if id != tt.id || quantity != tt.quantity {
			t.Errorf("ParseItem(%q) = (%q, %v), want (%q, %v)", tt.arg, id, quantity, tt.id, tt.quantity)
		}
	}
}
