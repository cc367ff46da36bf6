package mathhelp

func Pow2(n uint) uint {
	return 1 << n
}

// EuclidianMod is like % but the result is never negative.
func EuclidianMod(d, m int) int {
	r := d % m
	if (r < 0 && m > 0) || (r > 0 && m < 0) {
		return r + m
	}
	return r
}
