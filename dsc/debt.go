// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dsc

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
)

// debtAccount owns the per-user minted debt and drives the stablecoin issuer.
type debtAccount struct {
	custody common.Address
	token   common.Address // stablecoin
	ledger  Ledger
	issuer  Issuer
}

func (d *debtAccount) balance(db database.KeyValueReader, user common.Address) (*uint256.Int, error) {
	return getAmount(db, debtKey(user))
}

// mint records [amount] of new debt for [user] and issues the stablecoin to
// them. Solvency is checked by the caller before the issuer runs.
func (d *debtAccount) mint(t *tx, user common.Address, amount *uint256.Int) error {
	key := debtKey(user)
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

	t.call("mint", func(ctx context.Context) error {
		if err := d.issuer.Mint(ctx, user, amount); err != nil {
			return fmt.Errorf("%w: %w", ErrMintFailed, err)
		}
		return nil
	})
	return nil
}

// burn reduces [onBehalfOf]'s debt, pulling the stablecoin from [payer]
// into custody and destroying it.
func (d *debtAccount) burn(t *tx, amount *uint256.Int, onBehalfOf, payer common.Address) error {
	key := debtKey(onBehalfOf)
	bal, err := getAmount(t.db, key)
	if err != nil {
		return err
	}
	if bal.Lt(amount) {
		return fmt.Errorf("%w: have %s, want %s", ErrInsufficientDebt, bal.Dec(), amount.Dec())
	}
	if err := putAmount(t.db, key, new(uint256.Int).Sub(bal, amount)); err != nil {
		return err
	}

	t.call("transferFrom", func(ctx context.Context) error {
		if err := d.ledger.TransferFrom(ctx, d.token, payer, d.custody, amount); err != nil {
			return fmt.Errorf("%w: %w", ErrTransferFailed, err)
		}
		return nil
	})
	t.call("burn", func(ctx context.Context) error {
		if err := d.issuer.Burn(ctx, amount); err != nil {
			return fmt.Errorf("%w: %w", ErrBurnFailed, err)
		}
		return nil
	})
	return nil
}
