package order

import (
	"testing"

	"github.com/aquamarinepk/aqm"
	"github.com/shopspring/decimal"
)

func TestPricingQuote(t *testing.T) {
	pricing := DefaultPricing()

	tests := []struct {
		name       string
		items      []Item
		diningType string
		wantTotal  string
		wantPack   string
	}{
		{
			name:       "dineIn",
			items:      cartLines,
			diningType: DiningDineIn,
			wantTotal:  "33",
			wantPack:   "2",
		},
		{
			name:       "delivery",
			items:      cartLines,
			diningType: DiningDelivery,
			wantTotal:  "39",
			wantPack:   "2",
		},
		{
			name:       "singleLine",
			items:      []Item{{Name: "Tea", UnitPrice: decimal.RequireFromString("0.10"), Quantity: 3}},
			diningType: DiningDineIn,
			wantTotal:  "1.3",
			wantPack:   "1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := pricing.Quote(tt.items, tt.diningType)

			if !q.Total.Equal(decimal.RequireFromString(tt.wantTotal)) {
				t.Errorf("Quote() total = %s, want %s", q.Total, tt.wantTotal)
			}
			if !q.PackAmount.Equal(decimal.RequireFromString(tt.wantPack)) {
				t.Errorf("Quote() pack = %s, want %s", q.PackAmount, tt.wantPack)
			}
		})
	}
}

func TestPricingFromConfigDefaults(t *testing.T) {
	for name, config := range map[string]*aqm.Config{"nil": nil, "empty": aqm.NewConfig()} {
		t.Run(name, func(t *testing.T) {
			pricing, err := PricingFromConfig(config)
			if err != nil {
				t.Fatalf("PricingFromConfig() unexpected error: %v", err)
			}
			if !pricing.DeliveryFee.Equal(decimal.NewFromInt(6)) || !pricing.PackFee.Equal(decimal.NewFromInt(1)) {
				t.Errorf("PricingFromConfig() = %s/%s, want 6/1", pricing.DeliveryFee, pricing.PackFee)
			}
		})
	}
}

func TestParsePricing(t *testing.T) {
	tests := []struct {
		name         string
		delivery     string
		pack         string
		wantErr      bool
		wantDelivery string
	}{
		{name: "valid", delivery: "4.5", pack: "0", wantDelivery: "4.5"},
		{name: "deliveryNotANumber", delivery: "six", pack: "1", wantErr: true},
		{name: "packNotANumber", delivery: "6", pack: "one", wantErr: true},
		{name: "negative", delivery: "-1", pack: "1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pricing, err := parsePricing(tt.delivery, tt.pack)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePricing() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !pricing.DeliveryFee.Equal(decimal.RequireFromString(tt.wantDelivery)) {
				t.Errorf("DeliveryFee = %s, want %s", pricing.DeliveryFee, tt.wantDelivery)
			}
		})
	}
}
