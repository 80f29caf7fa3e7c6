package churn

import (
	"strings"

	"churnsight/ml"
)

// Driver strings are part of the API surface; front-ends match on them.
const (
	DriverHighMonthly = "High Monthly Charges"
	DriverLowTenure   = "New Customer (Low Tenure)"
	DriverFiber       = "Fiber Optic Issues"
	DriverNone        = "No dominant churn driver identified"
)

const (
	highMonthlyThreshold = 80.0
	lowTenureThreshold   = 12
)

// Explain evaluates the three heuristic risk rules against the raw
// record and returns the matching drivers. Evaluation order is fixed
// (monthly, tenure, internet) so output ordering is deterministic.
func Explain(record ml.CustomerRecord) []string {
	var drivers []string
	if record.MonthlyCharges > highMonthlyThreshold {
		drivers = append(drivers, DriverHighMonthly)
	}
	if record.TenureMonths < lowTenureThreshold {
		drivers = append(drivers, DriverLowTenure)
	}
	if isFiber(record.InternetService) {
		drivers = append(drivers, DriverFiber)
	}
	if len(drivers) == 0 {
		drivers = append(drivers, DriverNone)
	}
	return drivers
}

func isFiber(internet string) bool {
	return strings.EqualFold(strings.TrimSpace(internet), "Fiber optic")
}
