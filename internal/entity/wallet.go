package entity

import "time"

// TokenRef identifies the token a transaction moved.
type TokenRef struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// TokenBalance is one wallet token with its balance already scaled to token
// units. The USD fields are independently optional: a known balance does not
// imply a known price.
type TokenBalance struct {
	Name       string   `json:"name"`
	Symbol     string   `json:"symbol"`
	Balance    float64  `json:"balance"`
	PriceUSD   *float64 `json:"price_usd"`
	BalanceUSD *float64 `json:"balance_usd"`
}

// Transaction is the single normalized shape both transaction providers are
// mapped to before merging: native-currency transfers and token-contract
// operations.
type Transaction struct {
	Token           TokenRef  `json:"token"`
	Hash            string    `json:"hash"`
	ContractAddress string    `json:"contract_address,omitempty"`
	Source          string    `json:"source"`
	Destination     string    `json:"destination"`
	Value           float64   `json:"value"`
	Timestamp       time.Time `json:"timestamp"`
}

// AddressInfo is the normalized result of one token ledger address query:
// the raw ether balance plus all token balances keyed by symbol.
type AddressInfo struct {
	ETHBalance float64
	Tokens     map[string]TokenBalance
}

// PriceQuote is an ephemeral currency pair rate, used only to derive USD
// denominated balances.
type PriceQuote struct {
	Pair string  `json:"pair"`
	Rate float64 `json:"rate"`
}

// Wallet is the aggregated wallet view. Tokens is nil when the token fetch
// degraded; Transactions is always present, possibly empty, sorted by
// timestamp descending.
type Wallet struct {
	Tokens       map[string]TokenBalance `json:"tokens"`
	Transactions []Transaction           `json:"transactions"`
}
