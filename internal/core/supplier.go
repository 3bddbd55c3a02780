package core

import "time"

// DeliveryEstimator returns the expected supplier delivery date for ordering
// a quantity of an item on fromDate. The engine treats it as pure and
// deterministic; it never blocks or performs a real wait.
type DeliveryEstimator func(itemName string, quantity int64, fromDate time.Time) time.Time

// DefaultDeliveryEstimator models supplier lead time growing with order size:
// up to 10 units ship same day, up to 100 in one day, up to 1000 in four days,
// anything larger in seven.
func DefaultDeliveryEstimator(itemName string, quantity int64, fromDate time.Time) time.Time {
	var days int
	switch {
	case quantity <= 10:
		days = 0
	case quantity <= 100:
		days = 1
	case quantity <= 1000:
		days = 4
	default:
		days = 7
	}
	return fromDate.AddDate(0, 0, days)
}
