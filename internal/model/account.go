package model

// Account is one entry in the chart of accounts. Reference data only; the
// pipeline reads accounts but never creates or modifies them.
type Account struct {
	ID          string
	Name        string
	Category    string
	SubCategory string
}
