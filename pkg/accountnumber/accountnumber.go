// Package accountnumber generates and validates human facing account numbers.
package accountnumber

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Length is the number of decimal digits in an account number.
const Length = 10

var upperBound = big.NewInt(10_000_000_000)

// Generate returns a random account number.
//
// Uniqueness is not guaranteed here: the store enforces it and callers retry on collision.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, upperBound)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%0*d", Length, n.Int64()), nil
}

// Valid reports whether s is a well formed account number.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}

	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}

	return true
}
