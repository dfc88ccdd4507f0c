package mathutil

import (
	"golang.org/x/exp/constraints"
)

func DivCeil[T constraints.Signed](a, b T) T {
	if b == 0 {
		panic("division by zero")
	}
	q, r := a/b, a%b
	sameSign := (a >= 0 && b > 0) || (a <= 0 && b < 0)
	if r != 0 && sameSign {
		q++
	}
	return q
}

// Percent returns part/total as a whole percentage in [0, 100]. A non-positive total yields 0.
func Percent[T constraints.Integer](part, total T) int {
	if total <= 0 || part <= 0 {
		return 0
	}
	if part >= total {
		return 100
	}

	return int(uint64(part) * 100 / uint64(total)) //nolint:gosec
}
