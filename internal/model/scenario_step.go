package model

// ScenarioStep is one line of a simulation scenario. Amount semantics depend
// on Op: numeraire units for deposit, LP shares for withdraw, raw input for
// origin_swap, raw output for target_swap, an 8-decimal rate for set_rate.
type ScenarioStep struct {
	Op       string `json:"op"`
	Holder   string `json:"holder,omitempty"`
	Amount   string `json:"amount,omitempty"`
	Limit    string `json:"limit,omitempty"`
	TokenIn  string `json:"token_in,omitempty"`
	TokenOut string `json:"token_out,omitempty"`
	Token    string `json:"token,omitempty"`
	Rate     string `json:"rate,omitempty"`
	Seconds  int64  `json:"seconds,omitempty"`
	Deadline int64  `json:"deadline,omitempty"`
}
