// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dsc

import (
	"context"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

// newLiquidatableEnv leaves testUser at 10 WETH and 100 DSC after WETH
// drops to $18 (health factor 0.9). testLiquidator holds 20 WETH of
// collateral and 100 DSC (health factor 1.8).
func newLiquidatableEnv(t *testing.T) *testEnv {
	t.Helper()

	env := newTestEnv(t)
	env.depositAndMint(t, testUser, 10, 100)
	env.depositAndMint(t, testLiquidator, 20, 100)
	env.ethFeed.UpdateAnswer(big.NewInt(18_00000000))
	env.logs.Reset()
	return env
}

func TestLiquidate(t *testing.T) {
	require := require.New(t)
	env := newLiquidatableEnv(t)
	ctx := context.Background()

	starting, err := env.engine.HealthFactor(ctx, testUser)
	require.NoError(err)
	require.Equal(uint256.NewInt(900_000_000_000_000_000), starting)

	event, err := env.engine.Liquidate(ctx, testLiquidator, testWETH, testUser, amount(100))
	require.NoError(err)

	// 100 / 18 WETH plus 10%
	base := uint256.NewInt(5_555_555_555_555_555_555)
	bonus := uint256.NewInt(555_555_555_555_555_555)
	seized := uint256.NewInt(6_111_111_111_111_111_110)
	require.Equal(testLiquidator, event.Liquidator)
	require.Equal(testUser, event.User)
	require.Equal(testWETH, event.Token)
	require.Equal(ether(100), event.DebtCovered)
	require.Equal(bonus, event.Bonus)
	require.Equal(seized, event.CollateralSeized)
	require.Equal(new(uint256.Int).Add(base, bonus), event.CollateralSeized)
	require.Equal(starting, event.StartingHealthFactor)
	require.Equal(MaxHealthFactor, event.EndingHealthFactor)

	require.True(env.debt(t, testUser).IsZero())
	require.Equal(uint256.NewInt(3_888_888_888_888_888_890), env.collateral(t, testUser, testWETH))
	require.Equal(seized, env.book.BalanceOf(testWETH, testLiquidator))
	require.True(env.book.BalanceOf(StablecoinAddress, testLiquidator).IsZero())
	require.Equal(ether(100), env.book.TotalSupply(StablecoinAddress))

	// Liquidator position untouched
	require.Equal(ether(100), env.debt(t, testLiquidator))
	require.Equal(ether(20), env.collateral(t, testLiquidator, testWETH))

	history := env.engine.LiquidationHistory(context.Background(), 0)
	require.Len(history, 1)
	require.Equal(event, history[0])

	logs := env.logs.Logs()
	require.Len(logs, 1)
	require.Equal(CollateralRedeemedTopic, logs[0].Topics[0])
}

func TestLiquidateHealthyPosition(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	env.depositAndMint(t, testUser, 10, 100)
	env.depositAndMint(t, testLiquidator, 20, 100)

	_, err := env.engine.Liquidate(ctx, testLiquidator, testWETH, testUser, amount(10))
	require.ErrorIs(err, ErrHealthFactorOK)
	require.ErrorIs(err, ErrLiquidationNotEligible)
}

func TestLiquidateAtExactlyMinHealthFactor(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	env.depositAndMint(t, testUser, 10, 10000)
	env.depositAndMint(t, testLiquidator, 20, 100)

	hf, err := env.engine.HealthFactor(ctx, testUser)
	require.NoError(err)
	require.Equal(MinHealthFactor, hf)

	liquidatable, err := env.engine.IsLiquidatable(ctx, testUser)
	require.NoError(err)
	require.False(liquidatable)

	_, err = env.engine.Liquidate(ctx, testLiquidator, testWETH, testUser, amount(100))
	require.ErrorIs(err, ErrLiquidationNotEligible)
	require.Equal(ether(10000), env.debt(t, testUser))
}

func TestLiquidateIneffective(t *testing.T) {
	require := require.New(t)
	env := newLiquidatableEnv(t)
	ctx := context.Background()

	// Covering 1 of 100 leaves the user near 0.9
	_, err := env.engine.Liquidate(ctx, testLiquidator, testWETH, testUser, amount(1))
	require.ErrorIs(err, ErrHealthFactorNotImproved)
	require.ErrorIs(err, ErrLiquidationIneffective)
	require.ErrorContains(err, "903535353535353535")

	require.Equal(ether(100), env.debt(t, testUser))
	require.Equal(ether(10), env.collateral(t, testUser, testWETH))
	require.Equal(ether(100), env.book.BalanceOf(StablecoinAddress, testLiquidator))
	require.True(env.book.BalanceOf(testWETH, testLiquidator).IsZero())
	require.Empty(env.engine.LiquidationHistory(context.Background(), 0))
	require.Empty(env.logs.Logs())
}

func TestLiquidateRequiresSolventLiquidator(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	env.depositAndMint(t, testUser, 10, 100)
	// 20 WETH at $18 supports 180
	env.depositAndMint(t, testLiquidator, 20, 181)
	env.ethFeed.UpdateAnswer(big.NewInt(18_00000000))

	_, err := env.engine.Liquidate(ctx, testLiquidator, testWETH, testUser, amount(100))
	var hfErr *HealthFactorError
	require.ErrorAs(err, &hfErr)
	require.Equal(testLiquidator, hfErr.Account)

	require.Equal(ether(100), env.debt(t, testUser))
	require.Equal(ether(10), env.collateral(t, testUser, testWETH))
	require.Equal(ether(181), env.book.BalanceOf(StablecoinAddress, testLiquidator))
}

func TestLiquidateRollsBackOnCollaboratorFailure(t *testing.T) {
	tests := []struct {
		name  string
		setup func(env *testEnv)
		err   error
	}{
		{
			name:  "seize transfer fails",
			setup: func(env *testEnv) { env.ledger.failTransfer = true },
			err:   ErrTransferFailed,
		},
		{
			name:  "repay transfer fails",
			setup: func(env *testEnv) { env.ledger.failTransferFrom = true },
			err:   ErrTransferFailed,
		},
		{
			name:  "burn fails",
			setup: func(env *testEnv) { env.issuer.failBurn = true },
			err:   ErrBurnFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			env := newLiquidatableEnv(t)
			tt.setup(env)

			_, err := env.engine.Liquidate(context.Background(), testLiquidator, testWETH, testUser, amount(100))
			require.ErrorIs(err, tt.err)
			require.ErrorIs(err, ErrExternalCall)

			require.Equal(ether(100), env.debt(t, testUser))
			require.Equal(ether(10), env.collateral(t, testUser, testWETH))
			require.Equal(ether(30), env.book.BalanceOf(testWETH, EngineAddress))
			require.True(env.book.BalanceOf(testWETH, testLiquidator).IsZero())
			require.Equal(ether(100), env.book.BalanceOf(StablecoinAddress, testLiquidator))
			require.Equal(ether(200), env.book.TotalSupply(StablecoinAddress))
			require.Empty(env.engine.LiquidationHistory(context.Background(), 0))
		})
	}
}

func TestLiquidateRejectsInvalidArguments(t *testing.T) {
	require := require.New(t)
	env := newLiquidatableEnv(t)
	ctx := context.Background()

	_, err := env.engine.Liquidate(ctx, testLiquidator, testOther, testUser, amount(100))
	require.ErrorIs(err, ErrTokenNotAllowed)

	_, err = env.engine.Liquidate(ctx, testLiquidator, testWETH, testUser, big.NewInt(0))
	require.ErrorIs(err, ErrZeroAmount)

	// More debt than the user owes
	_, err = env.engine.Liquidate(ctx, testLiquidator, testWETH, testUser, amount(101))
	require.ErrorIs(err, ErrInsufficientDebt)
}

func TestLiquidateUnderwaterPosition(t *testing.T) {
	require := require.New(t)
	env := newLiquidatableEnv(t)

	// At $5 the user's collateral is worth less than the debt: the bonus
	// cannot be paid.
	env.ethFeed.UpdateAnswer(big.NewInt(5_00000000))
	_, err := env.engine.Liquidate(context.Background(), testLiquidator, testWETH, testUser, amount(100))
	require.ErrorIs(err, ErrInsufficientCollateral)
	require.Equal(ether(100), env.debt(t, testUser))
}

func TestLiquidatableAccounts(t *testing.T) {
	require := require.New(t)
	env := newLiquidatableEnv(t)
	ctx := context.Background()

	liquidatable, err := env.engine.IsLiquidatable(ctx, testUser)
	require.NoError(err)
	require.True(liquidatable)
	liquidatable, err = env.engine.IsLiquidatable(ctx, testLiquidator)
	require.NoError(err)
	require.False(liquidatable)

	targets, err := env.engine.LiquidatableAccounts(ctx)
	require.NoError(err)
	require.Equal([]LiquidationTarget{{
		User:            testUser,
		Debt:            ether(100),
		CollateralValue: ether(180),
		HealthFactor:    uint256.NewInt(900_000_000_000_000_000),
	}}, targets)

	_, err = env.engine.Liquidate(ctx, testLiquidator, testWETH, testUser, amount(100))
	require.NoError(err)

	targets, err = env.engine.LiquidatableAccounts(ctx)
	require.NoError(err)
	require.Empty(targets)
}

func TestLiquidationPreview(t *testing.T) {
	require := require.New(t)
	env := newLiquidatableEnv(t)

	base, bonus, err := env.engine.LiquidationPreview(context.Background(), testWETH, ether(100))
	require.NoError(err)
	require.Equal(uint256.NewInt(5_555_555_555_555_555_555), base)
	require.Equal(uint256.NewInt(555_555_555_555_555_555), bonus)

	_, _, err = env.engine.LiquidationPreview(context.Background(), testOther, ether(100))
	require.ErrorIs(err, ErrTokenNotAllowed)
}

func TestBatchLiquidate(t *testing.T) {
	require := require.New(t)
	env := newLiquidatableEnv(t)

	events, errs := env.engine.BatchLiquidate(context.Background(), testLiquidator, []BatchLiquidationTarget{
		{User: testUser, Token: testWETH, DebtToCover: amount(100)},
		{User: testUser, Token: testWETH, DebtToCover: amount(1)},
	})
	require.Len(events, 2)
	require.NoError(errs[0])
	require.NotNil(events[0])
	// The first liquidation restored the position
	require.ErrorIs(errs[1], ErrLiquidationNotEligible)
	require.Nil(events[1])

	require.Len(env.engine.LiquidationHistory(context.Background(), 1), 1)
}

func TestLiquidationHistoryLimit(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	for i := 0; i < maxHistory+3; i++ {
		env.engine.recordLiquidation(&LiquidationEvent{
			DebtCovered:          uint256.NewInt(uint64(i)),
			CollateralSeized:     new(uint256.Int),
			StartingHealthFactor: new(uint256.Int),
			EndingHealthFactor:   new(uint256.Int),
		})
	}

	all := env.engine.LiquidationHistory(context.Background(), 0)
	require.Len(all, maxHistory)
	require.Equal(uint256.NewInt(maxHistory+2), all[len(all)-1].DebtCovered)

	recent := env.engine.LiquidationHistory(context.Background(), 2)
	require.Len(recent, 2)
	require.Equal(uint256.NewInt(maxHistory+1), recent[0].DebtCovered)
	require.Equal(uint256.NewInt(maxHistory+2), recent[1].DebtCovered)
}
