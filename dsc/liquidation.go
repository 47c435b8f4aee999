// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dsc

import (
	"context"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// =========================================================================
// Core Liquidation Functions
// =========================================================================

// Liquidate repays [debtToCover] of [user]'s debt with the liquidator's
// stablecoin and seizes the equivalent amount of [token] plus
// LiquidationBonus percent from the user's collateral.
//
// The user must start below MinHealthFactor and end strictly above it. The
// liquidator must be solvent afterwards. On any failure nothing changes.
func (e *Engine) Liquidate(
	ctx context.Context,
	liquidator common.Address,
	token common.Address,
	user common.Address,
	debtToCover *big.Int,
) (*LiquidationEvent, error) {
	amt, err := toAmount(debtToCover)
	if err != nil {
		return nil, err
	}

	var event *LiquidationEvent
	err = e.execute(ctx, "liquidate", func(t *tx) error {
		if !e.collateral.allowed(token) {
			return ErrTokenNotAllowed
		}

		starting, err := e.healthFactor(t.ctx, t.db, user)
		if err != nil {
			return err
		}
		if IsSolvent(starting) {
			return fmt.Errorf("%w: %s", ErrHealthFactorOK, starting.Dec())
		}

		base, err := e.collateral.tokenAmountFromUSD(t.ctx, token, amt)
		if err != nil {
			return err
		}
		bonus, seized, overflow := liquidationAmounts(base)
		if overflow {
			return ErrAmountOverflow
		}

		// Seize, then repay on the user's behalf.
		if err := e.collateral.redeem(t, user, liquidator, token, seized); err != nil {
			return err
		}
		if err := e.debt.burn(t, amt, user, liquidator); err != nil {
			return err
		}

		ending, err := e.healthFactor(t.ctx, t.db, user)
		if err != nil {
			return err
		}
		if !ending.Gt(MinHealthFactor) {
			return fmt.Errorf("%w: %s", ErrHealthFactorNotImproved, ending.Dec())
		}
		if err := e.requireHealthy(t, liquidator); err != nil {
			return err
		}

		event = &LiquidationEvent{
			Liquidator:           liquidator,
			User:                 user,
			Token:                token,
			DebtCovered:          amt,
			CollateralSeized:     seized,
			Bonus:                bonus,
			StartingHealthFactor: starting,
			EndingHealthFactor:   ending,
		}
		t.emit(event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// BatchLiquidationTarget is one liquidation of a batch.
type BatchLiquidationTarget struct {
	User        common.Address
	Token       common.Address
	DebtToCover *big.Int
}

// BatchLiquidate runs each target as its own liquidation. A failed target
// leaves the others untouched; its error is reported at the same index.
func (e *Engine) BatchLiquidate(
	ctx context.Context,
	liquidator common.Address,
	targets []BatchLiquidationTarget,
) (events []*LiquidationEvent, errs []error) {
	events = make([]*LiquidationEvent, len(targets))
	errs = make([]error, len(targets))
	for i, target := range targets {
		events[i], errs[i] = e.Liquidate(ctx, liquidator, target.Token, target.User, target.DebtToCover)
	}
	return events, errs
}

// =========================================================================
// View Functions
// =========================================================================

// IsLiquidatable reports whether [user] is below MinHealthFactor.
func (e *Engine) IsLiquidatable(ctx context.Context, user common.Address) (bool, error) {
	hf, err := e.HealthFactor(ctx, user)
	if err != nil {
		return false, err
	}
	return !IsSolvent(hf), nil
}

// LiquidatableAccounts scans every account that ever held a position and
// returns those below MinHealthFactor, in account key order.
func (e *Engine) LiquidatableAccounts(ctx context.Context) ([]LiquidationTarget, error) {
	defer e.rlock(ctx)()

	users, err := accounts(e.db)
	if err != nil {
		return nil, err
	}

	targets := make([]LiquidationTarget, 0)
	for _, user := range users {
		debt, err := e.debt.balance(e.db, user)
		if err != nil {
			return nil, err
		}
		if debt.IsZero() {
			continue
		}
		value, err := e.collateral.totalValue(ctx, e.db, user)
		if err != nil {
			return nil, err
		}
		hf := HealthFactor(debt, value)
		if IsSolvent(hf) {
			continue
		}
		targets = append(targets, LiquidationTarget{
			User:            user,
			Debt:            debt,
			CollateralValue: value,
			HealthFactor:    hf,
		})
	}
	return targets, nil
}

// LiquidationPreview returns the collateral a liquidation covering
// [debtToCover] would seize, split into base and bonus.
func (e *Engine) LiquidationPreview(ctx context.Context, token common.Address, debtToCover *uint256.Int) (base, bonus *uint256.Int, err error) {
	base, err = e.collateral.tokenAmountFromUSD(ctx, token, debtToCover)
	if err != nil {
		return nil, nil, err
	}
	bonus, _, overflow := liquidationAmounts(base)
	if overflow {
		return nil, nil, ErrAmountOverflow
	}
	return base, bonus, nil
}

// LiquidationHistory returns up to [limit] committed liquidations, newest
// last. A non-positive limit returns all retained liquidations.
func (e *Engine) LiquidationHistory(ctx context.Context, limit int) []*LiquidationEvent {
	defer e.rlock(ctx)()

	if limit <= 0 || limit > len(e.history) {
		limit = len(e.history)
	}
	result := make([]*LiquidationEvent, limit)
	copy(result, e.history[len(e.history)-limit:])
	return result
}

func (e *Engine) recordLiquidation(event *LiquidationEvent) {
	e.history = append(e.history, event)
	if len(e.history) > maxHistory {
		e.history = e.history[len(e.history)-maxHistory:]
	}
	e.log.Info("position liquidated",
		"user", event.User,
		"liquidator", event.Liquidator,
		"token", event.Token,
		"debtCovered", event.DebtCovered.Dec(),
		"collateralSeized", event.CollateralSeized.Dec(),
		"startingHealthFactor", event.StartingHealthFactor.Dec(),
		"endingHealthFactor", event.EndingHealthFactor.Dec(),
	)
}
