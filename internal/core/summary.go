package core

import "github.com/shopspring/decimal"

// StatusAggregate is one (category, status) bucket of a summary: how many
// transactions landed in the bucket and their exact-decimal sum.
type StatusAggregate struct {
	Count       int             `json:"transactionCount"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      Status          `json:"status"`
}

// Summary is a period report. The headline totals come from the binary
// income-vs-not partition computed by the user totals provider; Categories
// keeps the full status enum per category. The two partitions are computed
// independently and must stay that way.
type Summary struct {
	TotalIncome    decimal.Decimal                `json:"totalIncome"`
	TotalOutgoings decimal.Decimal                `json:"totalOutgoings"`
	TotalBudget    decimal.Decimal                `json:"totalBudget"`
	Categories     map[Category][]StatusAggregate `json:"categories"`
}
