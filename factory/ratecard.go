/*
Package factory provides JSON to Go rate-card conversion.

PURPOSE:
  Converts JSON rate-card definitions into billing rates. This enables
  rate configuration without code changes - practice managers can define
  charge-out rates in JSON, and the factory resolves the right rate for
  each time log.

WHY JSON?
  - Non-developers can modify rates
  - Easy integration with admin UI
  - Version control for rate definitions
  - Database storage of rate configs

JSON SCHEMA:
  {
    "id": "standard-2026",
    "name": "Standard charge-out rates 2026",
    "currency": "GBP",
    "default_rate": "95.00",
    "user_rates":     {"user-partner": "250.00", "user-senior": "140.00"},
    "category_rates": {"cat-audit": "120.00"}
  }

RESOLUTION ORDER:
  user rate > category rate > default rate. A per-user rate wins because
  charge-out rates follow seniority before work type.

USAGE:
  card, err := factory.ParseRateCard(jsonStr)
  rate := card.ResolveRate("user-senior", "cat-audit") // 140.00
  amount := card.AmountFor("user-senior", "cat-audit", hours)

SEE ALSO:
  - billing/types.go: TimeLog, which carries the resolved rate
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RateCardJSON is the JSON representation of a rate card. Rates are strings
// so the JSON round-trips through decimal without float precision loss.
type RateCardJSON struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Currency      string            `json:"currency,omitempty"`
	DefaultRate   string            `json:"default_rate"`
	UserRates     map[string]string `json:"user_rates,omitempty"`
	CategoryRates map[string]string `json:"category_rates,omitempty"`
}

// =============================================================================
// RATE CARD
// =============================================================================

// RateCard resolves hourly charge-out rates for time logs.
type RateCard struct {
	ID            string
	Name          string
	Currency      string
	DefaultRate   decimal.Decimal
	UserRates     map[string]decimal.Decimal
	CategoryRates map[string]decimal.Decimal
}

// ParseRateCard parses a JSON string into a RateCard.
func ParseRateCard(jsonStr string) (*RateCard, error) {
	var rj RateCardJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return nil, fmt.Errorf("failed to parse rate card JSON: %w", err)
	}
	return FromJSON(rj)
}

// LoadRateCard reads and parses a rate card file.
func LoadRateCard(path string) (*RateCard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rate card: %w", err)
	}
	return ParseRateCard(string(data))
}

// FromJSON converts RateCardJSON to a RateCard.
func FromJSON(rj RateCardJSON) (*RateCard, error) {
	defaultRate, err := parseRate(rj.DefaultRate, "default_rate")
	if err != nil {
		return nil, err
	}

	card := &RateCard{
		ID:            rj.ID,
		Name:          rj.Name,
		Currency:      rj.Currency,
		DefaultRate:   defaultRate,
		UserRates:     make(map[string]decimal.Decimal, len(rj.UserRates)),
		CategoryRates: make(map[string]decimal.Decimal, len(rj.CategoryRates)),
	}
	if card.Currency == "" {
		card.Currency = "GBP"
	}

	for userID, s := range rj.UserRates {
		rate, err := parseRate(s, "user_rates["+userID+"]")
		if err != nil {
			return nil, err
		}
		card.UserRates[userID] = rate
	}
	for categoryID, s := range rj.CategoryRates {
		rate, err := parseRate(s, "category_rates["+categoryID+"]")
		if err != nil {
			return nil, err
		}
		card.CategoryRates[categoryID] = rate
	}

	return card, nil
}

func parseRate(s, field string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("rate card %s is required", field)
	}
	rate, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid rate in %s: %w", field, err)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative rate in %s: %s", field, s)
	}
	return rate, nil
}

// =============================================================================
// RESOLUTION
// =============================================================================

// ResolveRate returns the hourly rate for a user/category pair.
// User rate wins over category rate wins over the default.
func (c *RateCard) ResolveRate(userID, categoryID string) decimal.Decimal {
	if rate, ok := c.UserRates[userID]; ok {
		return rate
	}
	if rate, ok := c.CategoryRates[categoryID]; ok {
		return rate
	}
	return c.DefaultRate
}

// AmountFor returns the billable amount for hours worked at the resolved rate.
func (c *RateCard) AmountFor(userID, categoryID string, hours decimal.Decimal) decimal.Decimal {
	return hours.Mul(c.ResolveRate(userID, categoryID))
}

// ToJSON converts a RateCard back to its JSON form.
func (c *RateCard) ToJSON() RateCardJSON {
	rj := RateCardJSON{
		ID:            c.ID,
		Name:          c.Name,
		Currency:      c.Currency,
		DefaultRate:   c.DefaultRate.String(),
		UserRates:     make(map[string]string, len(c.UserRates)),
		CategoryRates: make(map[string]string, len(c.CategoryRates)),
	}
	for userID, rate := range c.UserRates {
		rj.UserRates[userID] = rate.String()
	}
	for categoryID, rate := range c.CategoryRates {
		rj.CategoryRates[categoryID] = rate.String()
	}
	return rj
}
