package summary

// CurrencyTotal is an amount sum for one currency. Amounts in different
// currencies are never added together.
type CurrencyTotal struct {
	Currency    string `json:"currency"`
	AmountCents int64  `json:"amount_cents"`
}

// MonthlyTotal is a per-calendar-month, per-currency sum keyed by the
// month of incurred_on in UTC.
type MonthlyTotal struct {
	Month       string `json:"month"`
	Currency    string `json:"currency"`
	AmountCents int64  `json:"amount_cents"`
	Count       int64  `json:"count"`
}

type AllTime struct {
	Count  int64           `json:"count"`
	Totals []CurrencyTotal `json:"totals"`
}

// Summary is the aggregate view over the actor's visible expenses.
type Summary struct {
	AllTime  AllTime          `json:"all_time"`
	ByStatus map[string]int64 `json:"by_status"`
	Monthly  []MonthlyTotal   `json:"monthly"`
}
