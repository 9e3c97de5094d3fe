package model

// OperationRecord captures one committed pool operation for the journal.
// Amounts are decimal strings: numeraire fields are 18-decimal fixed-point,
// raw fields use each token's native decimals.
type OperationRecord struct {
	Pool         string `json:"pool"`
	Op           string `json:"op"`
	Holder       string `json:"holder"`
	AmountIn     string `json:"amount_in"`
	AmountOut    string `json:"amount_out"`
	Fee          string `json:"fee"`
	BaseRaw      string `json:"base_raw"`
	QuoteRaw     string `json:"quote_raw"`
	LPDelta      string `json:"lp_delta"`
	BaseReserve  string `json:"base_reserve"`
	QuoteReserve string `json:"quote_reserve"`
	LPSupply     string `json:"lp_supply"`
	Timestamp    int64  `json:"timestamp"`
}
