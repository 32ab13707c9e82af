package memutils

// Validatable is used by the DebugValidate method to allow it to act upon the free region ledger,
// the segment table, and the allocator that owns both
type Validatable interface {
	Validate() error
}
