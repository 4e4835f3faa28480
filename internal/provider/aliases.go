package provider

import "strings"

// coinAliases maps common tickers to the provider's canonical coin IDs.
// Unknown identifiers pass through unchanged.
var coinAliases = map[string]string{
	"btc":   "bitcoin",
	"eth":   "ethereum",
	"usdt":  "tether",
	"bnb":   "binancecoin",
	"sol":   "solana",
	"xrp":   "ripple",
	"usdc":  "usd-coin",
	"ada":   "cardano",
	"doge":  "dogecoin",
	"trx":   "tron",
	"avax":  "avalanche-2",
	"dot":   "polkadot",
	"link":  "chainlink",
	"matic": "matic-network",
	"ltc":   "litecoin",
	"shib":  "shiba-inu",
	"uni":   "uniswap",
	"atom":  "cosmos",
	"xlm":   "stellar",
	"near":  "near",
}

// CanonicalID normalizes an asset identifier to the provider's coin ID.
func CanonicalID(assetID string) string {
	id := strings.ToLower(strings.TrimSpace(assetID))
	if canonical, ok := coinAliases[id]; ok {
		return canonical
	}
	return id
}
