// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dsc

import (
	"fmt"
	"time"

	"github.com/luxfi/geth/common"

	"github.com/parsdao/dsc/oracle"
)

// ConfigKey is the module key of the engine configuration.
const ConfigKey = "dscEngineConfig"

// CollateralConfig pairs an accepted collateral token with its price feed.
type CollateralConfig struct {
	Token common.Address `json:"token"`
	Feed  common.Address `json:"feed"`
}

// Config contains the deployment parameters of an engine.
type Config struct {
	// Address is the custody account holding collateral
	Address common.Address `json:"address"`
	// DebtToken is the stablecoin the engine mints
	DebtToken common.Address `json:"debtToken"`

	// Collateral lists the accepted tokens in valuation order
	Collateral []CollateralConfig `json:"collateral"`

	// StaleChecks rejects feed answers older than StaleTimeout
	StaleChecks  bool          `json:"staleChecks"`
	StaleTimeout time.Duration `json:"staleTimeout"`
}

// DefaultConfig returns a configuration without collateral. Callers append
// their token/feed pairs.
func DefaultConfig() Config {
	return Config{
		Address:      EngineAddress,
		DebtToken:    StablecoinAddress,
		StaleChecks:  false,
		StaleTimeout: oracle.DefaultStaleTimeout,
	}
}

func (c *Config) Key() string {
	return ConfigKey
}

// Verify checks the configuration is usable.
func (c *Config) Verify() error {
	if c.Address == (common.Address{}) || c.DebtToken == (common.Address{}) {
		return ErrZeroAddress
	}
	if len(c.Collateral) == 0 {
		return ErrNoCollateral
	}
	seen := make(map[common.Address]struct{}, len(c.Collateral))
	for _, collateral := range c.Collateral {
		if collateral.Token == (common.Address{}) {
			return ErrZeroAddress
		}
		if collateral.Feed == (common.Address{}) {
			return fmt.Errorf("%w: %s", ErrMissingFeed, collateral.Token.Hex())
		}
		if _, ok := seen[collateral.Token]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateToken, collateral.Token.Hex())
		}
		seen[collateral.Token] = struct{}{}
	}
	if c.StaleTimeout < 0 {
		return fmt.Errorf("%w: negative stale timeout %s", ErrInvalidArgument, c.StaleTimeout)
	}
	return nil
}

// FeedResolver looks up the feed deployed at an address.
type FeedResolver func(feed common.Address) (oracle.Feed, error)

// Params returns engine parameters for this configuration. The caller
// supplies the collaborators (Ledger, Issuer, DB, Logs, Log).
func (c *Config) Params(resolve FeedResolver) (Params, error) {
	if err := c.Verify(); err != nil {
		return Params{}, err
	}

	assets := make([]Asset, len(c.Collateral))
	for i, collateral := range c.Collateral {
		feed, err := resolve(collateral.Feed)
		if err != nil {
			return Params{}, fmt.Errorf("%w: %s: %w", ErrMissingFeed, collateral.Feed.Hex(), err)
		}
		assets[i] = Asset{Token: collateral.Token, Feed: feed}
	}

	adapter := oracle.NewAdapter()
	if c.StaleChecks {
		timeout := c.StaleTimeout
		if timeout == 0 {
			timeout = oracle.DefaultStaleTimeout
		}
		adapter = oracle.NewAdapter(oracle.WithStaleTimeout(timeout))
	}

	return Params{
		Address:   c.Address,
		DebtToken: c.DebtToken,
		Assets:    assets,
		Oracle:    adapter,
	}, nil
}
