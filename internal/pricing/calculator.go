package pricing

import (
	"fmt"

	"github.com/angelmondragon/velocity-backend/pkg/config"
	"github.com/shopspring/decimal"
)

// Config holds the storefront pricing rules.
type Config struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
}

// DefaultConfig returns the reference rules: 8.5% tax, free shipping from 50.00
// and a 5.99 flat fee below it.
func DefaultConfig() Config {
	return Config{
		TaxRate:               decimal.RequireFromString("0.085"),
		FreeShippingThreshold: decimal.RequireFromString("50.00"),
		FlatShippingFee:       decimal.RequireFromString("5.99"),
	}
}

// ConfigFrom parses the env-driven pricing section.
func ConfigFrom(cfg config.PricingConfig) (Config, error) {
	rate, threshold, fee, err := cfg.Decimals()
	if err != nil {
		return Config{}, fmt.Errorf("pricing config: %w", err)
	}
	return Config{TaxRate: rate, FreeShippingThreshold: threshold, FlatShippingFee: fee}, nil
}

// Line is the pricing input for one cart line.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Totals is the derived money view of a cart. Subtotal, Tax and Shipping are
// exact; Total is the only rounded value.
type Totals struct {
	ItemCount int
	Subtotal  decimal.Decimal
	Tax       decimal.Decimal
	Shipping  decimal.Decimal
	Total     decimal.Decimal
}

// Calculator derives totals from cart lines without any I/O.
type Calculator struct {
	cfg Config
}

// NewCalculator validates cfg and returns a calculator.
func NewCalculator(cfg Config) (*Calculator, error) {
	if cfg.TaxRate.IsNegative() {
		return nil, fmt.Errorf("tax rate must be non-negative")
	}
	if cfg.FreeShippingThreshold.IsNegative() {
		return nil, fmt.Errorf("free shipping threshold must be non-negative")
	}
	if cfg.FlatShippingFee.IsNegative() {
		return nil, fmt.Errorf("flat shipping fee must be non-negative")
	}
	return &Calculator{cfg: cfg}, nil
}

// Config returns the rules in effect.
func (c *Calculator) Config() Config {
	return c.cfg
}

// Calculate sums the lines and applies tax and shipping. The shipping rule
// applies to every subtotal, including the zero subtotal of an empty cart.
func (c *Calculator) Calculate(lines []Line) Totals {
	subtotal := decimal.Zero
	count := 0
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		count += line.Quantity
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	tax := subtotal.Mul(c.cfg.TaxRate)
	shipping := c.Shipping(subtotal)

	return Totals{
		ItemCount: count,
		Subtotal:  subtotal,
		Tax:       tax,
		Shipping:  shipping,
		Total:     subtotal.Add(tax).Add(shipping).Round(2),
	}
}

// Shipping returns the fee owed for subtotal.
func (c *Calculator) Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(c.cfg.FreeShippingThreshold) {
		return decimal.Zero
	}
	return c.cfg.FlatShippingFee
}
