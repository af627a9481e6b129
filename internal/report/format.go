package report

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatMoney formats a currency amount with two decimals and comma
// separators, e.g. "-1,234.50".
func FormatMoney(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return FormatRatio(v)
	}
	cents := int(math.Round(math.Abs(v) * 100))
	s := fmt.Sprintf("%s.%02d", FormatInt(cents/100), cents%100)
	if v < 0 && cents > 0 {
		return "-" + s
	}
	return s
}

// FormatPct formats a fraction as a signed percentage, e.g. "+12.34%".
func FormatPct(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return FormatRatio(f)
	}
	return fmt.Sprintf("%+.2f%%", f*100)
}

// FormatRatio formats a dimensionless ratio. Infinite values print as "inf".
func FormatRatio(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}

// FormatDuration formats a holding period compactly: "45m", "3h20m", "2d4h".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	d = d.Round(time.Minute)
	days := int(d / (24 * time.Hour))
	hours := int(d/time.Hour) % 24
	mins := int(d/time.Minute) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd%dh", days, hours)
	case hours > 0:
		if mins == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, mins)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}
