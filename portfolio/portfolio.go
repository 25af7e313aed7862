package portfolio

// AssetBalance is one asset line in the exchange account.
type AssetBalance struct {
	Asset    string  `json:"asset"`
	Free     float64 `json:"free"`
	Locked   float64 `json:"locked"`
	Total    float64 `json:"total"`
	USDPrice float64 `json:"usd_price"`
	USDValue float64 `json:"usd_value"`
}

// Account is the exchange account snapshot the backend assembles.
type Account struct {
	AccountType   string         `json:"account_type"`
	CanTrade      bool           `json:"can_trade"`
	CanWithdraw   bool           `json:"can_withdraw"`
	CanDeposit    bool           `json:"can_deposit"`
	Balances      []AssetBalance `json:"balances"`
	TotalUSDValue float64        `json:"total_usd_value"`
}

// accountEnvelope is the backend's response wrapper.
type accountEnvelope struct {
	Success bool    `json:"success"`
	Data    Account `json:"data"`
}
