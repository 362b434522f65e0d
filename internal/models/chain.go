package models

// ChainInfo is static per-chain reference data used when formatting
// notifications. Seeded by migrations, never mutated by the core.
type ChainInfo struct {
	ChainName    string `json:"chainName"`
	ExplorerURL  string `json:"explorerUrl"`
	ChartURLBase string `json:"chartUrlBase"`
	SwapURLBase  string `json:"swapUrlBase,omitempty"`
	ChainID      int    `json:"chainId"`
}

// ValidChains lists the chain identifiers accepted by the indexer.
var ValidChains = []string{
	"eth",
	"bsc",
	"polygon",
	"avalanche",
	"arbitrum",
	"base",
	"linea",
	"optimism",
}

// IsValidChain reports whether the given chain identifier is supported.
func IsValidChain(chain string) bool {
	for _, c := range ValidChains {
		if c == chain {
			return true
		}
	}
	return false
}
