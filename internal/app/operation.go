package app

// Operation tracks a CLI command that may mutate the ledger.
// Operations start in memory with ID=0. Only mutating commands persist them,
// which assigns the journal id later used as the snapshot version.
type Operation struct {
	ID         int64
	Name       string
	Parameters string
	Status     string // "success" or "error"
}

// NewOperation creates a new in-memory operation.
func NewOperation(name, parameters string) *Operation {
	return &Operation{
		Name:       name,
		Parameters: parameters,
		Status:     "success",
	}
}

// Persisted returns true if the operation has been journaled.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// Fail marks the operation as failed. A failed operation stays failed.
func (op *Operation) Fail() {
	op.Status = "error"
}
