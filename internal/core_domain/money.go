package core_domain

import (
	"strconv"
	"strings"
)

// FormatINR renders an amount with Indian digit grouping, e.g. 1234567.5 ->
// "12,34,567.50". Whole amounts drop the fractional part. The rupee sign is
// left to the caller.
func FormatINR(amount float64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	s := strconv.FormatFloat(amount, 'f', 2, 64)
	intPart, frac, _ := strings.Cut(s, ".")
	if frac == "00" {
		frac = ""
	}

	grouped := intPart
	if len(intPart) > 3 {
		// Last group of three, then groups of two.
		head := intPart[:len(intPart)-3]
		tail := intPart[len(intPart)-3:]
		var segs []string
		for len(head) > 2 {
			segs = append([]string{head[len(head)-2:]}, segs...)
			head = head[:len(head)-2]
		}
		segs = append([]string{head}, segs...)
		grouped = strings.Join(segs, ",") + "," + tail
	}

	out := grouped
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}
