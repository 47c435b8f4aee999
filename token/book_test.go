// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

var (
	testToken  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testAlice  = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testBob    = common.HexToAddress("0x3333333333333333333333333333333333333333")
	testEngine = common.HexToAddress("0x4444444444444444444444444444444444444444")
	testCoin   = common.HexToAddress("0x5555555555555555555555555555555555555555")
)

func TestBookTransfer(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	book := NewBook()
	book.Credit(testToken, testAlice, uint256.NewInt(100))

	alice := book.Scoped(testAlice)
	require.NoError(alice.Transfer(ctx, testToken, testBob, uint256.NewInt(40)))
	require.Equal(uint256.NewInt(60), book.BalanceOf(testToken, testAlice))
	require.Equal(uint256.NewInt(40), book.BalanceOf(testToken, testBob))
	require.Equal(uint256.NewInt(100), book.TotalSupply(testToken))

	err := alice.Transfer(ctx, testToken, testBob, uint256.NewInt(61))
	require.ErrorIs(err, ErrInsufficientBalance)

	err = alice.Transfer(ctx, testToken, testBob, new(uint256.Int))
	require.ErrorIs(err, ErrZeroAmount)

	err = alice.Transfer(ctx, testToken, common.Address{}, uint256.NewInt(1))
	require.ErrorIs(err, ErrZeroAddress)
}

func TestBookTransferFrom(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	book := NewBook()
	book.Credit(testToken, testAlice, uint256.NewInt(10))

	engine := book.Scoped(testEngine)
	require.Equal(testEngine, engine.Caller())
	require.NoError(engine.TransferFrom(ctx, testToken, testAlice, testEngine, uint256.NewInt(10)))
	require.True(book.BalanceOf(testToken, testAlice).IsZero())
	require.Equal(uint256.NewInt(10), book.BalanceOf(testToken, testEngine))
}

func TestBookRevertToSnapshot(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	book := NewBook()
	book.Credit(testToken, testAlice, uint256.NewInt(100))

	id := book.Snapshot()
	handle := book.Scoped(testAlice)
	require.NoError(handle.Transfer(ctx, testToken, testBob, uint256.NewInt(30)))
	book.Credit(testToken, testBob, uint256.NewInt(5))
	require.Equal(uint256.NewInt(35), book.BalanceOf(testToken, testBob))

	book.RevertToSnapshot(id)
	require.Equal(uint256.NewInt(100), book.BalanceOf(testToken, testAlice))
	require.True(book.BalanceOf(testToken, testBob).IsZero())
	require.Equal(uint256.NewInt(100), book.TotalSupply(testToken))

	require.Panics(func() { book.RevertToSnapshot(id + 10) })
}

func TestStablecoinMintBurn(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	book := NewBook()
	coin := NewStablecoin(book, testCoin, testEngine)
	require.Equal(testCoin, coin.Address())
	require.Equal(testEngine, coin.Owner())

	issuer := coin.As(testEngine)
	require.NoError(issuer.Mint(ctx, testAlice, uint256.NewInt(50)))
	require.Equal(uint256.NewInt(50), book.BalanceOf(testCoin, testAlice))
	require.Equal(uint256.NewInt(50), book.TotalSupply(testCoin))

	// Burning needs the owner to hold the tokens first.
	err := issuer.Burn(ctx, uint256.NewInt(1))
	require.ErrorIs(err, ErrBurnExceedsBalance)

	require.NoError(book.Scoped(testEngine).TransferFrom(ctx, testCoin, testAlice, testEngine, uint256.NewInt(20)))
	require.NoError(issuer.Burn(ctx, uint256.NewInt(20)))
	require.True(book.BalanceOf(testCoin, testEngine).IsZero())
	require.Equal(uint256.NewInt(30), book.TotalSupply(testCoin))
}

func TestStablecoinOnlyOwner(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()

	coin := NewStablecoin(NewBook(), testCoin, testEngine)
	intruder := coin.As(testAlice)

	require.ErrorIs(intruder.Mint(ctx, testAlice, uint256.NewInt(1)), ErrNotOwner)
	require.ErrorIs(intruder.Burn(ctx, uint256.NewInt(1)), ErrNotOwner)

	owner := coin.As(testEngine)
	require.ErrorIs(owner.Mint(ctx, common.Address{}, uint256.NewInt(1)), ErrZeroAddress)
	require.ErrorIs(owner.Mint(ctx, testAlice, new(uint256.Int)), ErrZeroAmount)
	require.ErrorIs(owner.Burn(ctx, new(uint256.Int)), ErrZeroAmount)
}
