// Package checkout provides the Stripe checkout bridge: the hosted checkout
// client, webhook signature verification, and the credit pack catalog.
package checkout

// PackConfig holds the configuration for a purchasable credit pack.
type PackConfig struct {
	// PriceID is the Stripe price identifier sent to Checkout.
	PriceID string
	// Name is the display name surfaced on the hosted checkout page.
	Name string
	// Credits is the number of wish/boost credits granted on payment.
	Credits int
}

// Packs contains all purchasable credit packs keyed by price id.
// Easily extensible - just add new packs to this map.
var Packs = map[string]PackConfig{
	"price_boost_10p": {
		PriceID: "price_boost_10p",
		Name:    "10 wishes",
		Credits: 10,
	},
	"price_boost_25p": {
		PriceID: "price_boost_25p",
		Name:    "25 wishes",
		Credits: 25,
	},
	"price_boost_60p": {
		PriceID: "price_boost_60p",
		Name:    "60 wishes",
		Credits: 60,
	},
}

// GetPack returns the pack config for a price id.
func GetPack(priceID string) (PackConfig, bool) {
	pack, ok := Packs[priceID]
	return pack, ok
}

// CreditsFor resolves a price id to a credit count, falling back to the
// configured default pack size for unknown prices so a confirmed payment is
// never credited zero.
func CreditsFor(priceID string, defaultCredits int) int {
	if pack, ok := Packs[priceID]; ok {
		return pack.Credits
	}
	return defaultCredits
}
