package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// EmptyETag is the MD5 of zero bytes.
const EmptyETag = "d41d8cd98f00b204e9800998ecf8427e"

var trueValues = map[string]bool{
	"true": true,
	"1":    true,
	"yes":  true,
	"on":   true,
	"t":    true,
	"y":    true,
}

// ConfigTrueValue reports whether value is one of the recognised truthy
// strings, case-insensitively.
func ConfigTrueValue(value string) bool {
	return trueValues[strings.ToLower(strings.TrimSpace(value))]
}

// PrtBytes formats a byte count. With human set, counts of 1024 and above are
// scaled to a 4 character K/M/G/T/P/E/Z/Y form ("1.0K", "10M", "1023K");
// smaller counts are right aligned in 4 characters. Otherwise the count is
// right aligned in 12 characters.
func PrtBytes(n float64, human bool) string {
	raw := strconv.FormatFloat(n, 'f', -1, 64)
	if !human {
		return fmt.Sprintf("%12s", raw)
	}

	const mods = "KMGTPEZY"
	suffix := ""
	temp := n
	for i := 0; temp > 1023 && i < len(mods); i++ {
		suffix = mods[i : i+1]
		temp /= 1024
	}
	if suffix == "" {
		return fmt.Sprintf("%4s", raw)
	}
	if temp >= 10 {
		return fmt.Sprintf("%3d%s", int64(temp), suffix)
	}
	return fmt.Sprintf("%.1f%s", temp, suffix)
}

// ParseBytes parses a human-readable byte string such as "64K" or "1.5GB".
func ParseBytes(s string) (int64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, fmt.Errorf("empty string")
	}

	v := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	v = strings.TrimSuffix(v, "B")

	multiplier := int64(1)
	if v != "" {
		if idx := strings.IndexByte("KMGTP", v[len(v)-1]); idx >= 0 {
			for i := 0; i <= idx; i++ {
				multiplier *= 1024
			}
			v = v[:len(v)-1]
		}
	}

	num, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number format: %s", s)
	}
	return int64(num * float64(multiplier)), nil
}
