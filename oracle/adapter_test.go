// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package oracle

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

// ether returns v * 1e18.
func ether(v uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(v), Precision)
}

func TestAdapterLatestPriceScalesToEighteenDecimals(t *testing.T) {
	require := require.New(t)

	feed := NewMockFeed(8, big.NewInt(2000_0000_0000)) // $2000
	price, _, err := NewAdapter().LatestPrice(context.Background(), feed)
	require.NoError(err)
	require.Equal(ether(2000), price)
}

func TestAdapterLatestPriceOtherDecimals(t *testing.T) {
	require := require.New(t)

	feed := NewMockFeed(6, big.NewInt(1_000_000)) // $1
	price, _, err := NewAdapter().LatestPrice(context.Background(), feed)
	require.NoError(err)
	require.Equal(ether(1), price)

	feed = NewMockFeed(19, big.NewInt(1))
	_, _, err = NewAdapter().LatestPrice(context.Background(), feed)
	require.ErrorIs(err, ErrDecimals)
}

func TestAdapterUSDValue(t *testing.T) {
	require := require.New(t)

	feed := NewMockFeed(8, big.NewInt(2000_0000_0000))
	value, err := NewAdapter().USDValue(context.Background(), feed, ether(15))
	require.NoError(err)
	require.Equal(ether(30000), value)

	value, err = NewAdapter().USDValue(context.Background(), feed, new(uint256.Int))
	require.NoError(err)
	require.True(value.IsZero())
}

func TestAdapterTokenAmountFromUSD(t *testing.T) {
	require := require.New(t)

	feed := NewMockFeed(8, big.NewInt(2000_0000_0000))
	amount, err := NewAdapter().TokenAmountFromUSD(context.Background(), feed, ether(100))
	require.NoError(err)
	// $100 / $2000 = 0.05 units
	require.Equal(uint256.NewInt(50_000_000_000_000_000), amount)
}

func TestAdapterRejectsNonPositiveAnswer(t *testing.T) {
	require := require.New(t)

	adapter := NewAdapter()
	for _, answer := range []int64{0, -1} {
		feed := NewMockFeed(8, big.NewInt(answer))
		_, _, err := adapter.LatestPrice(context.Background(), feed)
		require.ErrorIs(err, ErrInvalidPrice)
	}
}

func TestAdapterStaleTimeout(t *testing.T) {
	require := require.New(t)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	clock := func() time.Time { return now }

	feed := NewMockFeed(8, big.NewInt(2000_0000_0000)).WithClock(clock)
	feed.UpdateAnswer(big.NewInt(2000_0000_0000))
	adapter := NewAdapter(WithStaleTimeout(DefaultStaleTimeout), WithClock(clock))

	_, updatedAt, err := adapter.LatestPrice(context.Background(), feed)
	require.NoError(err)
	require.Equal(start, updatedAt)

	now = start.Add(DefaultStaleTimeout + time.Second)
	_, _, err = adapter.LatestPrice(context.Background(), feed)
	require.ErrorIs(err, ErrStalePrice)

	// Without a timeout the same answer is accepted.
	_, _, err = NewAdapter(WithClock(clock)).LatestPrice(context.Background(), feed)
	require.NoError(err)
}

func TestMockFeedRounds(t *testing.T) {
	require := require.New(t)

	feed := NewMockFeed(8, big.NewInt(1))
	feed.UpdateAnswer(big.NewInt(2))

	round, err := feed.LatestRoundData(context.Background())
	require.NoError(err)
	require.Equal(uint64(2), round.RoundID)
	require.Equal(int64(2), round.Answer.Int64())

	// The returned answer is a copy.
	round.Answer.SetInt64(99)
	round, err = feed.LatestRoundData(context.Background())
	require.NoError(err)
	require.Equal(int64(2), round.Answer.Int64())

	boom := errors.New("feed offline")
	feed.SetError(boom)
	_, err = feed.LatestRoundData(context.Background())
	require.ErrorIs(err, boom)
}
