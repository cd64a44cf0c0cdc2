package order

import (
	"fmt"

	"github.com/aquamarinepk/aqm"
	"github.com/shopspring/decimal"
)

const (
	defaultDeliveryFee = "6"
	defaultPackFee     = "1"
)

// Pricing holds the fees added on top of the cart lines.
type Pricing struct {
	DeliveryFee decimal.Decimal
	PackFee     decimal.Decimal
}

type Quote struct {
	Subtotal    decimal.Decimal
	PackAmount  decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
}

func DefaultPricing() Pricing {
	return Pricing{
		DeliveryFee: decimal.RequireFromString(defaultDeliveryFee),
		PackFee:     decimal.RequireFromString(defaultPackFee),
	}
}

func PricingFromConfig(config *aqm.Config) (Pricing, error) {
	if config == nil {
		return DefaultPricing(), nil
	}
	return parsePricing(
		config.GetStringOrDef("pricing.delivery_fee", defaultDeliveryFee),
		config.GetStringOrDef("pricing.pack_fee", defaultPackFee),
	)
}

func parsePricing(deliveryFee, packFee string) (Pricing, error) {
	delivery, err := decimal.NewFromString(deliveryFee)
	if err != nil {
		return Pricing{}, fmt.Errorf("invalid pricing.delivery_fee: %w", err)
	}
	pack, err := decimal.NewFromString(packFee)
	if err != nil {
		return Pricing{}, fmt.Errorf("invalid pricing.pack_fee: %w", err)
	}
	if delivery.IsNegative() || pack.IsNegative() {
		return Pricing{}, fmt.Errorf("pricing fees cannot be negative")
	}

	return Pricing{DeliveryFee: delivery, PackFee: pack}, nil
}

// Quote prices a cart. Every line pays the packaging fee; only delivery
// orders pay the delivery fee.
func (p Pricing) Quote(items []Item, diningType string) Quote {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Total())
	}

	pack := p.PackFee.Mul(decimal.NewFromInt(int64(len(items))))
	delivery := decimal.Zero
	if diningType == DiningDelivery {
		delivery = p.DeliveryFee
	}

	return Quote{
		Subtotal:    subtotal,
		PackAmount:  pack,
		DeliveryFee: delivery,
		Total:       subtotal.Add(pack).Add(delivery),
	}
}
