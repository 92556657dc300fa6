package state

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Source names where the starting capital of a session came from.
type Source string

const (
	SourceOverride   Source = "override"
	SourceReset      Source = "reset"
	SourcePersisted  Source = "persisted"
	SourceConfigured Source = "configured"
)

// Store is the part of FileStore needed to resolve the starting capital.
type Store interface {
	Load() (decimal.Decimal, bool, error)
	Reset(start decimal.Decimal) error
}

// ResolveStartingCapital picks the capital a session starts with. An explicit
// override wins. Otherwise reset rewrites the store with start, and without
// reset the persisted value is used when present.
func ResolveStartingCapital(store Store, override decimal.NullDecimal, reset bool, start decimal.Decimal) (decimal.Decimal, Source, error) {
	if override.Valid {
		if !override.Decimal.IsPositive() {
			return decimal.Zero, "", fmt.Errorf("capital override must be positive, got %s", override.Decimal)
		}
		return override.Decimal, SourceOverride, nil
	}
	if reset {
		if err := store.Reset(start); err != nil {
			return decimal.Zero, "", err
		}
		return start, SourceReset, nil
	}

	persisted, found, err := store.Load()
	if err != nil {
		return decimal.Zero, "", err
	}
	if found {
		return persisted, SourcePersisted, nil
	}
	return start, SourceConfigured, nil
}
