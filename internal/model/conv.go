package model

// Itoa is a minimal int-to-string converter for hot-path usage.
// Avoids importing strconv to eliminate unnecessary overhead.
func Itoa(n int) string {
	if n == 0 {
		return "0"
	}
	buf := [20]byte{}
	i := len(buf)
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Rupees converts a paise amount to a rupee float for indicator math.
func Rupees(paise int64) float64 {
	return float64(paise) / 100.0
}

// Paise converts a rupee float back to a paise amount, truncating sub-paise.
func Paise(rupees float64) int64 {
	return int64(rupees * 100.0)
}
