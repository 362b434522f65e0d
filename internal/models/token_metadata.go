package models

import "time"

// TokenMetadata holds per-token reference data refreshed periodically from
// the indexer's metadata endpoint.
type TokenMetadata struct {
	TokenAddress          string    `json:"tokenAddress"`
	Chain                 string    `json:"chain"`
	Name                  string    `json:"name"`
	Symbol                string    `json:"symbol"`
	Decimals              int       `json:"decimals"`
	Logo                  string    `json:"logo,omitempty"`
	FullyDilutedValuation float64   `json:"fullyDilutedValuation"`
	LastUpdated           time.Time `json:"lastUpdated"`
}

// TokenPair identifies a tracked (token address, chain) combination. The
// fetcher, processor and metadata refresher all group work by pair.
type TokenPair struct {
	TokenAddress string `json:"tokenAddress"`
	Chain        string `json:"chain"`
}
