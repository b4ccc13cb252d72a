package form

import (
	"strings"

	"github.com/smallbiznis/orderdesk/internal/order/domain"
)

// Validate is the gate in front of persistence. It never looks at totals:
// the engine cannot fail, only the form can be incomplete.
func Validate(order domain.Order) error {
	if strings.TrimSpace(order.CustomerName) == "" {
		return domain.ErrInvalidCustomerName
	}
	for _, line := range order.Items {
		if line.Active() {
			return nil
		}
	}
	return domain.ErrInvalidProducts
}
