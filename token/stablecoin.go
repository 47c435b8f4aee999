// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"context"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// Stablecoin is the debt token. Only its owner may mint or burn; burns come
// out of the owner's own balance.
type Stablecoin struct {
	book    *Book
	address common.Address
	owner   common.Address
}

// NewStablecoin registers a stablecoin at [address] in [book], owned by [owner].
func NewStablecoin(book *Book, address, owner common.Address) *Stablecoin {
	return &Stablecoin{
		book:    book,
		address: address,
		owner:   owner,
	}
}

// Address returns the token address balances are kept under.
func (s *Stablecoin) Address() common.Address {
	return s.address
}

// Owner returns the only address allowed to mint and burn.
func (s *Stablecoin) Owner() common.Address {
	return s.owner
}

// As returns an issuer handle acting for [caller].
func (s *Stablecoin) As(caller common.Address) *Issuer {
	return &Issuer{coin: s, caller: caller}
}

// Issuer is a caller-scoped handle on a Stablecoin.
type Issuer struct {
	coin   *Stablecoin
	caller common.Address
}

// Mint creates [amount] for [to].
func (i *Issuer) Mint(_ context.Context, to common.Address, amount *uint256.Int) error {
	if i.caller != i.coin.owner {
		return ErrNotOwner
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if amount.IsZero() {
		return ErrZeroAmount
	}
	i.coin.book.Credit(i.coin.address, to, amount)
	return nil
}

// Burn destroys [amount] held by the caller.
func (i *Issuer) Burn(_ context.Context, amount *uint256.Int) error {
	if i.caller != i.coin.owner {
		return ErrNotOwner
	}
	if amount.IsZero() {
		return ErrZeroAmount
	}

	b := i.coin.book
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.debit(i.coin.address, i.caller, amount)
}
