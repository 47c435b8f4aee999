// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dsc

import (
	"errors"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// Storage key prefixes for engine state
var (
	enginePrefix     = []byte("dsc/")
	collateralPrefix = []byte("coll")
	debtPrefix       = []byte("debt")
	accountPrefix    = []byte("acct")
)

// table is the keyed position store every ledger operation is handed.
// Inside a mutating call it is the call's versioned view.
type table interface {
	database.KeyValueReader
	database.KeyValueWriter
}

// collateralKey generates the key of a (user, token) collateral position
func collateralKey(user, token common.Address) []byte {
	h := blake3.New()
	h.Write(user.Bytes())
	h.Write(token.Bytes())
	var key [32]byte
	h.Digest().Read(key[:])
	return makeKey(collateralPrefix, key[:])
}

func debtKey(user common.Address) []byte {
	return makeKey(debtPrefix, user.Bytes())
}

func accountKey(user common.Address) []byte {
	return makeKey(accountPrefix, user.Bytes())
}

func makeKey(prefix, suffix []byte) []byte {
	key := make([]byte, 0, len(prefix)+len(suffix))
	key = append(key, prefix...)
	return append(key, suffix...)
}

// getAmount reads a uint256 value. Missing keys read as zero.
func getAmount(db database.KeyValueReader, key []byte) (*uint256.Int, error) {
	data, err := db.Get(key)
	if errors.Is(err, database.ErrNotFound) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(data), nil
}

func putAmount(db database.KeyValueWriter, key []byte, amount *uint256.Int) error {
	value := amount.Bytes32()
	return db.Put(key, value[:])
}

// touchAccount adds [user] to the account index used by the liquidation scanner.
func touchAccount(db table, user common.Address) error {
	key := accountKey(user)
	has, err := db.Has(key)
	if err != nil || has {
		return err
	}
	return db.Put(key, user.Bytes())
}

// accounts lists every indexed account in key order.
func accounts(db database.Database) ([]common.Address, error) {
	iter := db.NewIteratorWithPrefix(accountPrefix)
	defer iter.Release()

	var users []common.Address
	for iter.Next() {
		users = append(users, common.BytesToAddress(iter.Value()))
	}
	return users, iter.Error()
}
