/*
Package factory provides JSON to Go tariff conversion.

PURPOSE:
  Converts JSON tariff definitions into fare.Tariff-shaped settings.
  This keeps pricing configurable without code changes - operations can
  adjust the fixed fare, the daily top-up cap, or the payment-code
  parameters in a config file, and the factory produces the Go values
  the engine runs on.

JSON SCHEMA:
  {
    "name": "urban-standard",
    "fare": "4.60",
    "daily_cap": "100.00",
    "code_prefix": "PAY",
    "code_ttl_seconds": 60
  }

  Monetary fields are strings parsed through the engine's own Money
  parser - never floats - so a tariff file cannot introduce drift.

DEFAULTS:
  Omitted fields fall back to the engine defaults: fare 4.60, cap
  100.00, prefix "PAY", TTL 60s.

SEE ALSO:
  - fare/authorize.go: consumes Fare
  - fare/recharge.go: consumes DailyCap, CodePrefix, CodeTTL
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/busspass/fare-engine/fare"
)

// DefaultFare is the fixed tariff debited per authorized ride.
const DefaultFare = fare.Money(4_60)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// TariffJSON is the JSON representation of a tariff.
type TariffJSON struct {
	Name           string `json:"name"`
	Fare           string `json:"fare,omitempty"`
	DailyCap       string `json:"daily_cap,omitempty"`
	CodePrefix     string `json:"code_prefix,omitempty"`
	CodeTTLSeconds int    `json:"code_ttl_seconds,omitempty"`
}

// Tariff is the parsed, validated pricing configuration.
type Tariff struct {
	Name       string
	Fare       fare.Money
	DailyCap   fare.Money
	CodePrefix string
	CodeTTL    time.Duration
}

// =============================================================================
// TARIFF FACTORY
// =============================================================================

// TariffFactory converts JSON tariffs to Go values.
type TariffFactory struct{}

func NewTariffFactory() *TariffFactory {
	return &TariffFactory{}
}

// ParseTariff parses a JSON tariff definition, applying defaults for
// omitted fields. Monetary fields must parse to positive amounts.
func (f *TariffFactory) ParseTariff(raw string) (Tariff, error) {
	var cfg TariffJSON
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return Tariff{}, fmt.Errorf("invalid tariff JSON: %w", err)
	}
	return f.build(cfg)
}

func (f *TariffFactory) build(cfg TariffJSON) (Tariff, error) {
	t := DefaultTariff()
	if cfg.Name != "" {
		t.Name = cfg.Name
	}

	if cfg.Fare != "" {
		m, err := fare.ParsePositiveMoney(cfg.Fare)
		if err != nil {
			return Tariff{}, fmt.Errorf("tariff %q: fare: %w", t.Name, err)
		}
		t.Fare = m
	}
	if cfg.DailyCap != "" {
		m, err := fare.ParsePositiveMoney(cfg.DailyCap)
		if err != nil {
			return Tariff{}, fmt.Errorf("tariff %q: daily_cap: %w", t.Name, err)
		}
		t.DailyCap = m
	}
	if cfg.CodePrefix != "" {
		t.CodePrefix = cfg.CodePrefix
	}
	if cfg.CodeTTLSeconds > 0 {
		t.CodeTTL = time.Duration(cfg.CodeTTLSeconds) * time.Second
	}
	return t, nil
}

// DefaultTariff returns the engine defaults.
func DefaultTariff() Tariff {
	return Tariff{
		Name:       "standard",
		Fare:       DefaultFare,
		DailyCap:   fare.DefaultDailyCap,
		CodePrefix: fare.DefaultCodePrefix,
		CodeTTL:    fare.DefaultCodeTTL,
	}
}
