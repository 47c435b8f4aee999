// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dsc

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/common"
)

// EngineRawABI describes the engine's contract surface.
const EngineRawABI = `[
	{"type":"function","name":"depositCollateral","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"depositCollateralAndMintDsc","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"collateral","type":"uint256"},{"name":"amountDscToMint","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"redeemCollateral","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"redeemCollateralForDsc","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"collateral","type":"uint256"},{"name":"amountDscToBurn","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"mintDsc","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"burnDsc","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"liquidate","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"user","type":"address"},{"name":"debtToCover","type":"uint256"}],"outputs":[{"name":"collateralSeized","type":"uint256"}]},
	{"type":"function","name":"getHealthFactor","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"calculateHealthFactor","stateMutability":"pure","inputs":[{"name":"totalDscMinted","type":"uint256"},{"name":"collateralValueInUsd","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getAccountInformation","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"totalDscMinted","type":"uint256"},{"name":"collateralValueInUsd","type":"uint256"}]},
	{"type":"function","name":"getAccountCollateralValue","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getCollateralBalanceOfUser","stateMutability":"view","inputs":[{"name":"user","type":"address"},{"name":"token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getCollateralTokens","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address[]"}]},
	{"type":"function","name":"getUsdValue","stateMutability":"view","inputs":[{"name":"token","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getTokenAmountFromUsd","stateMutability":"view","inputs":[{"name":"token","type":"address"},{"name":"usdAmountInWei","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getDsc","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"getPrecision","stateMutability":"pure","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getAdditionalFeedPrecision","stateMutability":"pure","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getLiquidationThreshold","stateMutability":"pure","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getLiquidationBonus","stateMutability":"pure","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getLiquidationPrecision","stateMutability":"pure","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getMinHealthFactor","stateMutability":"pure","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"CollateralDeposited","anonymous":false,"inputs":[{"name":"user","type":"address","indexed":true},{"name":"token","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":true}]},
	{"type":"event","name":"CollateralRedeemed","anonymous":false,"inputs":[{"name":"redeemedFrom","type":"address","indexed":true},{"name":"redeemedTo","type":"address","indexed":true},{"name":"token","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]}
]`

// EngineABI is the parsed EngineRawABI.
var EngineABI = ParseABI(EngineRawABI)

// ExtendedABI wraps the standard ABI and adds PackOutput, UnpackInput, and PackEvent methods
type ExtendedABI struct {
	abi.ABI
}

// ParseABI parses the raw ABI JSON and returns an ExtendedABI
func ParseABI(rawABI string) ExtendedABI {
	parsed, err := abi.JSON(strings.NewReader(rawABI))
	if err != nil {
		panic(fmt.Sprintf("failed to parse ABI: %v", err))
	}
	return ExtendedABI{ABI: parsed}
}

// PackOutput packs the outputs of method [name]. The result carries no method ID.
func (e ExtendedABI) PackOutput(name string, args ...interface{}) ([]byte, error) {
	method, exist := e.Methods[name]
	if !exist {
		return nil, fmt.Errorf("method '%s' not found", name)
	}
	return method.Outputs.Pack(args...)
}

// UnpackInput unpacks the arguments of method [name]. Input that is not a
// whole number of words is rejected.
func (e ExtendedABI) UnpackInput(name string, data []byte) ([]interface{}, error) {
	method, exist := e.Methods[name]
	if !exist {
		return nil, fmt.Errorf("method '%s' not found", name)
	}
	if len(data)%32 != 0 {
		return nil, fmt.Errorf("%w: %d bytes of arguments", ErrInvalidInput, len(data))
	}
	return method.Inputs.Unpack(data)
}

// PackEvent returns the topics and the packed non-indexed data of event [name].
func (e ExtendedABI) PackEvent(name string, args ...interface{}) ([]common.Hash, []byte, error) {
	event, exist := e.Events[name]
	if !exist {
		return nil, nil, fmt.Errorf("event '%s' not found", name)
	}
	if len(args) != len(event.Inputs) {
		return nil, nil, fmt.Errorf("event '%s' unexpected number of inputs %d", name, len(args))
	}

	var (
		nonIndexedInputs = make([]interface{}, 0)
		nonIndexedArgs   abi.Arguments
		topics           = make([]common.Hash, 0, len(event.Inputs)+1)
	)
	if !event.Anonymous {
		topics = append(topics, event.ID)
	}
	for i, arg := range event.Inputs {
		if !arg.Indexed {
			nonIndexedArgs = append(nonIndexedArgs, arg)
			nonIndexedInputs = append(nonIndexedInputs, args[i])
			continue
		}
		topic, err := packTopic(args[i])
		if err != nil {
			return nil, nil, err
		}
		topics = append(topics, topic)
	}

	data, err := nonIndexedArgs.Pack(nonIndexedInputs...)
	if err != nil {
		return nil, nil, err
	}
	return topics, data, nil
}

// packTopic packs a single indexed static argument into a topic hash
func packTopic(value interface{}) (common.Hash, error) {
	switch v := value.(type) {
	case common.Address:
		return common.BytesToHash(v.Bytes()), nil
	case common.Hash:
		return v, nil
	case *big.Int:
		return common.BigToHash(v), nil
	case *uint256.Int:
		return common.Hash(v.Bytes32()), nil
	default:
		return common.Hash{}, fmt.Errorf("unsupported indexed type: %T", value)
	}
}
