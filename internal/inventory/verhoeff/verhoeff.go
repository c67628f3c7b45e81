// Package verhoeff implements the Verhoeff check digit scheme used by subject IDs.
// It detects all single-digit errors and all adjacent transpositions.
package verhoeff

import (
	"errors"
	"strconv"
)

var ErrNotNumeric = errors.New("verhoeff: input must contain only ASCII digits")

// multiplication table of the dihedral group D5
var d = [10][10]uint8{
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
	{1, 2, 3, 4, 0, 6, 7, 8, 9, 5},
	{2, 3, 4, 0, 1, 7, 8, 9, 5, 6},
	{3, 4, 0, 1, 2, 8, 9, 5, 6, 7},
	{4, 0, 1, 2, 3, 9, 5, 6, 7, 8},
	{5, 9, 8, 7, 6, 0, 4, 3, 2, 1},
	{6, 5, 9, 8, 7, 1, 0, 4, 3, 2},
	{7, 6, 5, 9, 8, 2, 1, 0, 4, 3},
	{8, 7, 6, 5, 9, 3, 2, 1, 0, 4},
	{9, 8, 7, 6, 5, 4, 3, 2, 1, 0},
}

// permutation table, row i applies to the digit at position i (mod 8) from the right
var p = [8][10]uint8{
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
	{1, 5, 7, 6, 2, 8, 3, 0, 9, 4},
	{5, 8, 0, 3, 7, 9, 6, 1, 4, 2},
	{8, 9, 1, 6, 0, 4, 3, 5, 2, 7},
	{9, 4, 5, 3, 1, 2, 8, 7, 6, 0},
	{4, 2, 8, 6, 5, 7, 3, 9, 0, 1},
	{2, 7, 9, 3, 8, 0, 6, 4, 1, 5},
	{7, 0, 4, 6, 9, 1, 3, 2, 5, 8},
}

var inv = [10]uint8{0, 4, 3, 2, 1, 5, 6, 7, 8, 9}

func checksum(digits string, offset int) (uint8, error) {
	if digits == "" {
		return 0, ErrNotNumeric
	}
	var c uint8
	n := len(digits)
	for i := 0; i < n; i++ {
		ch := digits[n-1-i]
		if ch < '0' || ch > '9' {
			return 0, ErrNotNumeric
		}
		c = d[c][p[(i+offset)%8][ch-'0']]
	}
	return c, nil
}

// ValidateString reports whether digits (check digit last) carry a valid Verhoeff checksum.
func ValidateString(digits string) bool {
	c, err := checksum(digits, 0)
	return err == nil && c == 0
}

// Validate checks the decimal representation of n. Negative numbers are never valid.
func Validate(n int64) bool {
	if n < 0 {
		return false
	}
	return ValidateString(strconv.FormatInt(n, 10))
}

// CheckDigit returns the digit that, appended to digits, makes a valid number.
func CheckDigit(digits string) (byte, error) {
	c, err := checksum(digits, 1)
	if err != nil {
		return 0, err
	}
	return '0' + inv[c], nil
}

// Generate appends the check digit to digits.
func Generate(digits string) (string, error) {
	cd, err := CheckDigit(digits)
	if err != nil {
		return "", err
	}
	return digits + string(cd), nil
}
