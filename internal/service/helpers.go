package service

import (
	"math"

	"github.com/sena-nova/nova-api/internal/repository"
)

// isUnique reports whether the error is a storage-level unique violation.
func isUnique(err error) bool {
	return repository.IsUniqueViolation(err)
}

// round2 rounds a value to two decimal places.
func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
