package cart

import "strconv"

// FormatRupiah renders v with spaces between thousands, e.g. "Rp 750 000".
func FormatRupiah(v int64) string {
	digits := strconv.FormatInt(v, 10)
	sign := ""
	if v < 0 {
		sign, digits = "-", digits[1:]
	}

	out := make([]byte, 0, len(digits)+len(digits)/3)
	for i := range len(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ' ')
		}
		out = append(out, digits[i])
	}
	return "Rp " + sign + string(out)
}
