// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dsc

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

func TestCollateralKeyUnique(t *testing.T) {
	require := require.New(t)

	require.Equal(collateralKey(testUser, testWETH), collateralKey(testUser, testWETH))
	require.NotEqual(collateralKey(testUser, testWETH), collateralKey(testUser, testWBTC))
	require.NotEqual(collateralKey(testUser, testWETH), collateralKey(testLiquidator, testWETH))
	require.NotEqual(debtKey(testUser), accountKey(testUser))
}

func TestAmountRoundTrip(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	key := debtKey(testUser)

	amount, err := getAmount(db, key)
	require.NoError(err)
	require.True(amount.IsZero())

	require.NoError(putAmount(db, key, ether(42)))
	amount, err = getAmount(db, key)
	require.NoError(err)
	require.Equal(ether(42), amount)

	require.NoError(putAmount(db, key, new(uint256.Int)))
	amount, err = getAmount(db, key)
	require.NoError(err)
	require.True(amount.IsZero())

	has, err := db.Has(key)
	require.NoError(err)
	require.True(has, "zeroed positions stay present")
}

func TestAccountIndex(t *testing.T) {
	require := require.New(t)

	db := memdb.New()
	require.NoError(touchAccount(db, testUser))
	require.NoError(touchAccount(db, testUser))
	require.NoError(touchAccount(db, testLiquidator))

	users, err := accounts(db)
	require.NoError(err)
	require.ElementsMatch([]common.Address{testUser, testLiquidator}, users)
}

func TestVersionedWritesDiscardedOnAbort(t *testing.T) {
	require := require.New(t)

	base := memdb.New()
	vdb := versiondb.New(base)
	require.NoError(putAmount(vdb, debtKey(testUser), ether(1)))
	vdb.Abort()

	amount, err := getAmount(base, debtKey(testUser))
	require.NoError(err)
	require.True(amount.IsZero())
}
