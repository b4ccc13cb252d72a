package form

import (
	"strconv"
	"strings"

	"github.com/smallbiznis/orderdesk/internal/order/domain"
	taxdomain "github.com/smallbiznis/orderdesk/internal/tax/domain"
	"golang.org/x/text/width"
)

// ParseInt is the single parse-or-default used for every numeric form field.
// Full-width digits are folded, a leading yen sign and thousands separators are
// dropped, and the leading run of digits is read. Anything else, including
// negative values or values above taxdomain.MaxFieldValue, becomes 0.
func ParseInt(raw string) int64 {
	return ParseIntMax(raw, taxdomain.MaxFieldValue)
}

// ParseIntMax is ParseInt with a caller supplied ceiling.
func ParseIntMax(raw string, max int64) int64 {
	value := width.Fold.String(strings.TrimSpace(raw))
	value = strings.TrimPrefix(value, "¥")
	value = strings.TrimPrefix(value, "\\")
	value = strings.ReplaceAll(value, ",", "")
	value = strings.TrimSpace(value)
	if value == "" || value[0] == '-' {
		return 0
	}
	value = strings.TrimPrefix(value, "+")

	end := 0
	for end < len(value) && value[end] >= '0' && value[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}

	parsed, err := strconv.ParseInt(value[:end], 10, 64)
	if err != nil || parsed < 0 || parsed > max {
		return 0
	}
	return parsed
}

// ParseFlag reads a checkbox style field. The order form sends 要 for a
// checked invoice box.
func ParseFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(width.Fold.String(raw))) {
	case "要", "true", "1", "on", "yes", "y":
		return true
	default:
		return false
	}
}

// Text trims a free text field.
func Text(v domain.RawValue) string {
	return strings.TrimSpace(v.String())
}
