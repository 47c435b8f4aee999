// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package oracle adapts round-based USD price feeds to the 18-decimal
// fixed-point values used by the collateral engine.
package oracle

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"
)

var (
	ErrNoRound      = errors.New("feed has no round data")
	ErrInvalidPrice = errors.New("feed answer must be positive")
	ErrStalePrice   = errors.New("feed answer is stale")
	ErrDecimals     = errors.New("feed decimals exceed 18")
	ErrOverflow     = errors.New("value overflows 256 bits")
)

// RoundData is a single answer reported by a feed.
type RoundData struct {
	RoundID         uint64
	Answer          *big.Int // USD price scaled by 10^Decimals()
	StartedAt       time.Time
	UpdatedAt       time.Time
	AnsweredInRound uint64
}

// Feed is a round-based price source for one asset.
type Feed interface {
	Decimals() uint8
	LatestRoundData(ctx context.Context) (RoundData, error)
}

// MockFeed is an in-memory feed whose answer is set by the caller.
// It is used by tests and local wiring where no live aggregator exists.
type MockFeed struct {
	mu sync.RWMutex

	decimals uint8
	round    RoundData
	err      error
	clock    func() time.Time
}

// NewMockFeed returns a feed reporting [answer] at round 1.
func NewMockFeed(decimals uint8, answer *big.Int) *MockFeed {
	f := &MockFeed{
		decimals: decimals,
		clock:    time.Now,
	}
	f.UpdateAnswer(answer)
	return f
}

// WithClock overrides the feed clock for deterministic tests.
func (f *MockFeed) WithClock(clock func() time.Time) *MockFeed {
	f.mu.Lock()
	defer f.mu.Unlock()
	if clock != nil {
		f.clock = clock
	}
	return f
}

// UpdateAnswer publishes a new round with [answer].
func (f *MockFeed) UpdateAnswer(answer *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.clock()
	next := f.round.RoundID + 1
	f.round = RoundData{
		RoundID:         next,
		Answer:          new(big.Int).Set(answer),
		StartedAt:       now,
		UpdatedAt:       now,
		AnsweredInRound: next,
	}
}

// UpdateRoundData replaces the latest round wholesale.
func (f *MockFeed) UpdateRoundData(round RoundData) {
	f.mu.Lock()
	defer f.mu.Unlock()

	round.Answer = new(big.Int).Set(round.Answer)
	f.round = round
}

// SetError makes every subsequent read fail with [err]. nil clears it.
func (f *MockFeed) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *MockFeed) Decimals() uint8 {
	return f.decimals
}

func (f *MockFeed) LatestRoundData(context.Context) (RoundData, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.err != nil {
		return RoundData{}, f.err
	}
	if f.round.RoundID == 0 {
		return RoundData{}, ErrNoRound
	}
	round := f.round
	round.Answer = new(big.Int).Set(f.round.Answer)
	return round, nil
}
