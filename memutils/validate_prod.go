//go:build !debug_seg_alloc

package memutils

// DebugValidate will call Validate on the provided object and panics if any errors are returned. This
// method no-ops unless the debug_seg_alloc build tag is present
func DebugValidate(validatable Validatable) {
}

// DebugCheckPositive will verify that the numerical value passed in is positive, and panics if it is not.
// This method no-ops unless the debug_seg_alloc build tag is present.
func DebugCheckPositive[T Number](value T, name string) {
}
