// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package token provides an in-memory fungible ledger and the stablecoin
// issuer the collateral engine talks to. Every balance change is journaled
// so a caller can snapshot and revert, the same way EVM state does.
package token

import (
	"context"
	"errors"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

var (
	ErrZeroAmount          = errors.New("amount must be more than zero")
	ErrZeroAddress         = errors.New("address cannot be zero")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBurnExceedsBalance  = errors.New("burn amount exceeds balance")
	ErrNotOwner            = errors.New("caller is not the owner")
	ErrInvalidSnapshot     = errors.New("invalid snapshot id")
)

// journalEntry records a balance before it was overwritten.
type journalEntry struct {
	token  common.Address
	holder common.Address
	prev   *uint256.Int // nil if there was no entry
	supply bool
}

// Book holds balances of any number of tokens.
type Book struct {
	mu sync.Mutex

	// token -> holder -> balance
	balances map[common.Address]map[common.Address]*uint256.Int
	supply   map[common.Address]*uint256.Int

	journal []journalEntry
}

// NewBook creates an empty ledger.
func NewBook() *Book {
	return &Book{
		balances: make(map[common.Address]map[common.Address]*uint256.Int),
		supply:   make(map[common.Address]*uint256.Int),
	}
}

// Snapshot returns an id for the current journal position.
func (b *Book) Snapshot() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.journal)
}

// RevertToSnapshot undoes every change made after [id] was taken.
func (b *Book) RevertToSnapshot(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id < 0 || id > len(b.journal) {
		panic(ErrInvalidSnapshot)
	}
	for i := len(b.journal) - 1; i >= id; i-- {
		entry := b.journal[i]
		if entry.supply {
			b.restoreSupply(entry)
			continue
		}
		holders := b.balances[entry.token]
		if entry.prev == nil {
			delete(holders, entry.holder)
		} else {
			holders[entry.holder] = entry.prev
		}
	}
	b.journal = b.journal[:id]
}

func (b *Book) restoreSupply(entry journalEntry) {
	if entry.prev == nil {
		delete(b.supply, entry.token)
		return
	}
	b.supply[entry.token] = entry.prev
}

// BalanceOf returns [holder]'s balance of [token].
func (b *Book) BalanceOf(token, holder common.Address) *uint256.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balance(token, holder).Clone()
}

// TotalSupply returns the amount of [token] in existence.
func (b *Book) TotalSupply(token common.Address) *uint256.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.supply[token]; ok {
		return s.Clone()
	}
	return new(uint256.Int)
}

// Credit creates [amount] of [token] for [holder]. It is the faucet used by
// tests and local setups; the stablecoin mints through it too.
func (b *Book) Credit(token, holder common.Address, amount *uint256.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(token, holder, amount)
}

// Scoped returns a handle whose Transfer calls move funds out of [caller].
func (b *Book) Scoped(caller common.Address) *Handle {
	return &Handle{book: b, caller: caller}
}

func (b *Book) move(token, from, to common.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if amount.IsZero() {
		return ErrZeroAmount
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	bal := b.balance(token, from)
	if bal.Lt(amount) {
		return ErrInsufficientBalance
	}
	b.set(token, from, new(uint256.Int).Sub(bal, amount))
	b.set(token, to, new(uint256.Int).Add(b.balance(token, to), amount))
	return nil
}

func (b *Book) credit(token, holder common.Address, amount *uint256.Int) {
	b.set(token, holder, new(uint256.Int).Add(b.balance(token, holder), amount))
	b.setSupply(token, new(uint256.Int).Add(b.supplyOf(token), amount))
}

func (b *Book) debit(token, holder common.Address, amount *uint256.Int) error {
	bal := b.balance(token, holder)
	if bal.Lt(amount) {
		return ErrBurnExceedsBalance
	}
	b.set(token, holder, new(uint256.Int).Sub(bal, amount))
	b.setSupply(token, new(uint256.Int).Sub(b.supplyOf(token), amount))
	return nil
}

func (b *Book) balance(token, holder common.Address) *uint256.Int {
	if bal, ok := b.balances[token][holder]; ok {
		return bal
	}
	return new(uint256.Int)
}

func (b *Book) supplyOf(token common.Address) *uint256.Int {
	if s, ok := b.supply[token]; ok {
		return s
	}
	return new(uint256.Int)
}

func (b *Book) set(token, holder common.Address, amount *uint256.Int) {
	holders, ok := b.balances[token]
	if !ok {
		holders = make(map[common.Address]*uint256.Int)
		b.balances[token] = holders
	}
	b.journal = append(b.journal, journalEntry{token: token, holder: holder, prev: holders[holder]})
	holders[holder] = amount
}

func (b *Book) setSupply(token common.Address, amount *uint256.Int) {
	b.journal = append(b.journal, journalEntry{token: token, prev: b.supply[token], supply: true})
	b.supply[token] = amount
}

// Handle is a caller-scoped view of a Book.
type Handle struct {
	book   *Book
	caller common.Address
}

// Caller returns the address funds are moved out of by Transfer.
func (h *Handle) Caller() common.Address {
	return h.caller
}

// TransferFrom moves [amount] of [token] from [from] to [to].
func (h *Handle) TransferFrom(_ context.Context, token, from, to common.Address, amount *uint256.Int) error {
	return h.book.move(token, from, to, amount)
}

// Transfer moves [amount] of [token] from the caller to [to].
func (h *Handle) Transfer(_ context.Context, token, to common.Address, amount *uint256.Int) error {
	return h.book.move(token, h.caller, to, amount)
}

func (h *Handle) Snapshot() int {
	return h.book.Snapshot()
}

func (h *Handle) RevertToSnapshot(id int) {
	h.book.RevertToSnapshot(id)
}
