// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dsc

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"

	"github.com/parsdao/dsc/oracle"
)

// collateralLedger owns the per-user, per-token collateral balances and
// values them through the oracle adapter.
type collateralLedger struct {
	custody common.Address
	assets  []Asset // construction order, fixed
	feeds   map[common.Address]oracle.Feed
	oracle  *oracle.Adapter
	ledger  Ledger
}

func newCollateralLedger(custody common.Address, assets []Asset, adapter *oracle.Adapter, ledger Ledger) *collateralLedger {
	feeds := make(map[common.Address]oracle.Feed, len(assets))
	for _, asset := range assets {
		feeds[asset.Token] = asset.Feed
	}
	return &collateralLedger{
		custody: custody,
		assets:  assets,
		feeds:   feeds,
		oracle:  adapter,
		ledger:  ledger,
	}
}

func (c *collateralLedger) allowed(token common.Address) bool {
	_, ok := c.feeds[token]
	return ok
}

func (c *collateralLedger) balance(db database.KeyValueReader, user, token common.Address) (*uint256.Int, error) {
	return getAmount(db, collateralKey(user, token))
}

// deposit credits [user] and pulls [amount] of [token] into custody.
func (c *collateralLedger) deposit(t *tx, user, token common.Address, amount *uint256.Int) error {
	if !c.allowed(token) {
		return ErrTokenNotAllowed
	}

	key := collateralKey(user, token)
	bal, err := getAmount(t.db, key)
	if err != nil {
		return err
	}
	next, overflow := new(uint256.Int).AddOverflow(bal, amount)
	if overflow {
		return ErrAmountOverflow
	}
	if err := putAmount(t.db, key, next); err != nil {
		return err
	}
	if err := touchAccount(t.db, user); err != nil {
		return err
	}

	t.call("transferFrom", func(ctx context.Context) error {
		if err := c.ledger.TransferFrom(ctx, token, user, c.custody, amount); err != nil {
			return fmt.Errorf("%w: %w", ErrTransferFailed, err)
		}
		return nil
	})
	t.emit(&CollateralDeposited{User: user, Token: token, Amount: amount.Clone()})
	return nil
}

// redeem debits [from] and sends [amount] of [token] to [to]. The caller
// decides whose solvency is checked afterwards.
func (c *collateralLedger) redeem(t *tx, from, to, token common.Address, amount *uint256.Int) error {
	if !c.allowed(token) {
		return ErrTokenNotAllowed
	}

	key := collateralKey(from, token)
	bal, err := getAmount(t.db, key)
	if err != nil {
		return err
	}
	if bal.Lt(amount) {
		return fmt.Errorf("%w: have %s, want %s", ErrInsufficientCollateral, bal.Dec(), amount.Dec())
	}
	if err := putAmount(t.db, key, new(uint256.Int).Sub(bal, amount)); err != nil {
		return err
	}

	t.call("transfer", func(ctx context.Context) error {
		if err := c.ledger.Transfer(ctx, token, to, amount); err != nil {
			return fmt.Errorf("%w: %w", ErrTransferFailed, err)
		}
		return nil
	})
	t.emit(&CollateralRedeemed{From: from, To: to, Token: token, Amount: amount.Clone()})
	return nil
}

// totalValue sums the USD value of every collateral balance [user] holds.
func (c *collateralLedger) totalValue(ctx context.Context, db database.KeyValueReader, user common.Address) (*uint256.Int, error) {
	total := new(uint256.Int)
	for _, asset := range c.assets {
		bal, err := c.balance(db, user, asset.Token)
		if err != nil {
			return nil, err
		}
		if bal.IsZero() {
			continue
		}
		value, err := c.usdValue(ctx, asset.Token, bal)
		if err != nil {
			return nil, err
		}
		if _, overflow := total.AddOverflow(total, value); overflow {
			return new(uint256.Int).SetAllOne(), nil
		}
	}
	return total, nil
}

func (c *collateralLedger) usdValue(ctx context.Context, token common.Address, amount *uint256.Int) (*uint256.Int, error) {
	feed, ok := c.feeds[token]
	if !ok {
		return nil, ErrTokenNotAllowed
	}
	value, err := c.oracle.USDValue(ctx, feed, amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOracleFailed, err)
	}
	return value, nil
}

func (c *collateralLedger) tokenAmountFromUSD(ctx context.Context, token common.Address, usd *uint256.Int) (*uint256.Int, error) {
	feed, ok := c.feeds[token]
	if !ok {
		return nil, ErrTokenNotAllowed
	}
	amount, err := c.oracle.TokenAmountFromUSD(ctx, feed, usd)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOracleFailed, err)
	}
	return amount, nil
}
