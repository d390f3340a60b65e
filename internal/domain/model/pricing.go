package model

import "jobboard-billing/internal/domain"

type Product string

const (
	ProductJobPosting   Product = "JOB_POSTING"
	ProductSubscription Product = "SUBSCRIPTION"
)

type PriceTier string

const (
	TierBasic    PriceTier = "BASIC"
	TierFeatured PriceTier = "FEATURED"
	TierPremium  PriceTier = "PREMIUM"
)

// Static price table, minor units. JMD amounts track the fixed exchange rate
// below rather than a live feed.
var priceTable = map[Product]map[PriceTier]map[Currency]int64{
	ProductJobPosting: {
		TierBasic:    {CurrencyUSD: 5000, CurrencyJMD: 7700},
		TierFeatured: {CurrencyUSD: 10000, CurrencyJMD: 15400},
		TierPremium:  {CurrencyUSD: 15000, CurrencyJMD: 23100},
	},
	ProductSubscription: {
		TierBasic:   {CurrencyUSD: 20000, CurrencyJMD: 30800},
		TierPremium: {CurrencyUSD: 50000, CurrencyJMD: 77000},
	},
}

// Fixed conversion rates, order of the original system's approximations.
const (
	jmdToUSD = 0.0065
	usdToJMD = 154.0
)

// GetPrice looks up the minor-unit amount for a product/tier/currency
// combination. Pure lookup, no side effects.
func GetPrice(product Product, tier PriceTier, currency Currency) (int64, error) {
	tiers, ok := priceTable[product]
	if !ok {
		return 0, domain.ErrUnknownProduct
	}
	currencies, ok := tiers[tier]
	if !ok {
		return 0, domain.ErrUnknownProduct
	}
	amount, ok := currencies[currency]
	if !ok {
		return 0, domain.ErrUnknownProduct
	}
	return amount, nil
}

// Pricing returns a copy of the full table, for the public pricing endpoint.
func Pricing() map[Product]map[PriceTier]map[Currency]int64 {
	out := make(map[Product]map[PriceTier]map[Currency]int64, len(priceTable))
	for p, tiers := range priceTable {
		out[p] = make(map[PriceTier]map[Currency]int64, len(tiers))
		for t, currencies := range tiers {
			cp := make(map[Currency]int64, len(currencies))
			for c, amt := range currencies {
				cp[c] = amt
			}
			out[p][t] = cp
		}
	}
	return out
}

// ConvertCurrency converts a minor-unit amount between the supported
// currencies at the fixed rates. Same-currency conversion is the identity.
func ConvertCurrency(amount int64, from, to Currency) int64 {
	if from == to {
		return amount
	}
	switch {
	case from == CurrencyJMD && to == CurrencyUSD:
		return int64(float64(amount)*jmdToUSD + 0.5)
	case from == CurrencyUSD && to == CurrencyJMD:
		return int64(float64(amount)*usdToJMD + 0.5)
	}
	return amount
}
