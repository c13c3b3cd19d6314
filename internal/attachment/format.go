package attachment

import "fmt"

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// FormatSize renders a byte count as a magnitude with one decimal place and
// a 1024-based unit. The unit is the largest of B/KB/MB/GB that fits, so
// anything above the GB range is still expressed in GB. Zero (and negative
// input, which callers should never produce) renders as "0 B".
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}

	magnitude := float64(bytes)
	exp := 0

	for magnitude >= 1024 && exp < len(sizeUnits)-1 {
		magnitude /= 1024
		exp++
	}

	return fmt.Sprintf("%.1f %s", magnitude, sizeUnits[exp])
}
