// Package mathx holds small generic helpers for fixed point driver maths.
package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to the closed range between lo and hi, in either order.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	return min(max(v, lo), hi)
}

// RoundDiv returns a/b rounded to the nearest integer, halves up.
// A zero divisor yields zero.
func RoundDiv[T constraints.Unsigned](a, b T) T {
	if b == 0 {
		return 0
	}
	return (a + b/2) / b
}
