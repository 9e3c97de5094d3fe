package model

// PoolSnapshot is a point-in-time view of pool state for persistence.
// Reserve and supply fields are 18-decimal fixed-point decimal strings;
// rates are 8-decimal.
type PoolSnapshot struct {
	Pool         string `json:"pool"`
	BaseReserve  string `json:"base_reserve"`
	QuoteReserve string `json:"quote_reserve"`
	LPSupply     string `json:"lp_supply"`
	BaseRate     string `json:"base_rate"`
	QuoteRate    string `json:"quote_rate"`
	Timestamp    int64  `json:"timestamp"`
}
