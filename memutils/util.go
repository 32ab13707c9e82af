package memutils

import (
	cerrors "github.com/cockroachdb/errors"
)

type Number interface {
	~int | ~uint
}

// CheckPositive returns ErrInvalidRequest, annotated with the provided name, if number is zero or negative
func CheckPositive[T Number](number T, name string) error {
	if number <= 0 {
		return cerrors.Wrapf(ErrInvalidRequest, "%s is %d", name, number)
	}
	return nil
}

// RangesOverlap returns true if [leftStart, leftStart+leftSize) and [rightStart, rightStart+rightSize)
// share at least one address
func RangesOverlap(leftStart, leftSize, rightStart, rightSize int) bool {
	return leftStart < rightStart+rightSize && rightStart < leftStart+leftSize
}
