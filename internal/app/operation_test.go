package app

import "testing"

func TestNewOperation(t *testing.T) {
	tests := []struct {
		name       string
		operation  string
		parameters string
	}{
		{
			name:       "with parameters",
			operation:  "land.register",
			parameters: "north field",
		},
		{
			name:      "empty parameters",
			operation: "portion.expire",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation(tt.operation, tt.parameters)

			if op.Name != tt.operation {
				t.Errorf("Name = %q, want %q", op.Name, tt.operation)
			}
			if op.Parameters != tt.parameters {
				t.Errorf("Parameters = %q, want %q", op.Parameters, tt.parameters)
			}
			if op.Status != "success" {
				t.Errorf("Status = %q, want %q", op.Status, "success")
			}
			if op.Persisted() {
				t.Error("new operation reports Persisted() = true")
			}
		})
	}
}

func TestOperation_Fail(t *testing.T) {
	op := NewOperation("portion.sell", "")
	op.Fail()
	if op.Status != "error" {
		t.Errorf("Status = %q after Fail, want %q", op.Status, "error")
	}

	op.ID = 7
	if !op.Persisted() {
		t.Error("Persisted() = false for ID 7")
	}
}
