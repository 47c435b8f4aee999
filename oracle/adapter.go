// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"
)

const (
	// PrecisionDecimals is the fixed-point scale of every value the adapter returns.
	PrecisionDecimals = 18

	// DefaultFeedDecimals is the scale of USD feeds (e.g. ETH/USD = 2000e8).
	DefaultFeedDecimals = 8

	// DefaultStaleTimeout is used when staleness checks are enabled without
	// an explicit timeout.
	DefaultStaleTimeout = 3 * time.Hour
)

var (
	// Precision is 1e18.
	Precision = uint256.NewInt(1_000_000_000_000_000_000)

	// AdditionalFeedPrecision lifts an 8-decimal answer to 18 decimals (1e10).
	AdditionalFeedPrecision = uint256.NewInt(10_000_000_000)
)

// Adapter turns feed answers into 18-decimal USD prices and performs the
// amount <-> USD conversions. Staleness is checked here, never by callers.
type Adapter struct {
	staleTimeout time.Duration
	clock        func() time.Time
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithStaleTimeout rejects answers older than [timeout]. Zero disables the check.
func WithStaleTimeout(timeout time.Duration) Option {
	return func(a *Adapter) {
		a.staleTimeout = timeout
	}
}

// WithClock overrides the adapter clock for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(a *Adapter) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// NewAdapter creates an adapter. Without options no staleness check is made.
func NewAdapter(opts ...Option) *Adapter {
	a := &Adapter{clock: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// LatestPrice returns the feed's latest answer scaled to 18 decimals together
// with the time it was last updated.
func (a *Adapter) LatestPrice(ctx context.Context, feed Feed) (*uint256.Int, time.Time, error) {
	round, err := feed.LatestRoundData(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}
	if round.Answer == nil || round.Answer.Sign() <= 0 {
		return nil, time.Time{}, ErrInvalidPrice
	}
	if a.staleTimeout > 0 && a.clock().Sub(round.UpdatedAt) > a.staleTimeout {
		return nil, time.Time{}, fmt.Errorf("%w: updated %s", ErrStalePrice, round.UpdatedAt.UTC().Format(time.RFC3339))
	}

	answer, overflow := uint256.FromBig(round.Answer)
	if overflow {
		return nil, time.Time{}, ErrOverflow
	}
	scale, err := feedScale(feed.Decimals())
	if err != nil {
		return nil, time.Time{}, err
	}
	price, overflow := new(uint256.Int).MulOverflow(answer, scale)
	if overflow {
		return nil, time.Time{}, ErrOverflow
	}
	return price, round.UpdatedAt, nil
}

// USDValue returns price * amount / 1e18.
func (a *Adapter) USDValue(ctx context.Context, feed Feed, amount *uint256.Int) (*uint256.Int, error) {
	if amount.IsZero() {
		return new(uint256.Int), nil
	}
	price, _, err := a.LatestPrice(ctx, feed)
	if err != nil {
		return nil, err
	}
	value, overflow := new(uint256.Int).MulDivOverflow(price, amount, Precision)
	if overflow {
		return nil, ErrOverflow
	}
	return value, nil
}

// TokenAmountFromUSD returns usd * 1e18 / price, the amount of the feed's
// asset worth [usd].
func (a *Adapter) TokenAmountFromUSD(ctx context.Context, feed Feed, usd *uint256.Int) (*uint256.Int, error) {
	price, _, err := a.LatestPrice(ctx, feed)
	if err != nil {
		return nil, err
	}
	amount, overflow := new(uint256.Int).MulDivOverflow(usd, Precision, price)
	if overflow {
		return nil, ErrOverflow
	}
	return amount, nil
}

// feedScale returns 10^(18-decimals).
func feedScale(decimals uint8) (*uint256.Int, error) {
	if decimals > PrecisionDecimals {
		return nil, ErrDecimals
	}
	if decimals == DefaultFeedDecimals {
		return AdditionalFeedPrecision, nil
	}
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(PrecisionDecimals-decimals))), nil
}
