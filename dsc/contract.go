// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dsc

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
)

// Gas costs
const (
	GasView        uint64 = 2_600   // Reading one position
	GasValuation   uint64 = 10_000  // Reading positions and pricing them
	GasPure        uint64 = 200     // Constants and arithmetic
	GasDeposit     uint64 = 50_000  // Deposit or redeem
	GasMint        uint64 = 60_000  // Mint or burn, includes a solvency check
	GasComposite   uint64 = 100_000 // Deposit+mint or burn+redeem
	GasLiquidation uint64 = 150_000
)

// Errors
var (
	ErrInvalidInput    = fmt.Errorf("%w: invalid input", ErrInvalidArgument)
	ErrUnknownSelector = fmt.Errorf("%w: unknown selector", ErrInvalidArgument)
)

var methodGas = map[string]uint64{
	"depositCollateral":           GasDeposit,
	"depositCollateralAndMintDsc": GasComposite,
	"redeemCollateral":            GasDeposit,
	"redeemCollateralForDsc":      GasComposite,
	"mintDsc":                     GasMint,
	"burnDsc":                     GasMint,
	"liquidate":                   GasLiquidation,
	"getHealthFactor":             GasValuation,
	"calculateHealthFactor":       GasPure,
	"getAccountInformation":       GasValuation,
	"getAccountCollateralValue":   GasValuation,
	"getCollateralBalanceOfUser":  GasView,
	"getCollateralTokens":         GasView,
	"getUsdValue":                 GasValuation,
	"getTokenAmountFromUsd":       GasValuation,
	"getDsc":                      GasPure,
	"getPrecision":                GasPure,
	"getAdditionalFeedPrecision":  GasPure,
	"getLiquidationThreshold":     GasPure,
	"getLiquidationBonus":         GasPure,
	"getLiquidationPrecision":     GasPure,
	"getMinHealthFactor":          GasPure,
}

// Contract exposes an Engine through EngineABI. Mutating methods act on
// behalf of the caller.
type Contract struct {
	engine *Engine
}

// NewContract returns the ABI front end of [engine].
func NewContract(engine *Engine) *Contract {
	return &Contract{engine: engine}
}

// RequiredGas returns the gas charged for [input]. Malformed input is
// charged the base view cost.
func (c *Contract) RequiredGas(input []byte) uint64 {
	if len(input) < 4 {
		return GasView
	}
	method, err := EngineABI.MethodById(input[:4])
	if err != nil {
		return GasView
	}
	return methodGas[method.Name]
}

// Run decodes [input], executes it for [caller] and returns the ABI-encoded
// outputs.
func (c *Contract) Run(ctx context.Context, caller common.Address, input []byte) ([]byte, error) {
	if len(input) < 4 {
		return nil, ErrInvalidInput
	}
	method, err := EngineABI.MethodById(input[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: %x", ErrUnknownSelector, input[:4])
	}
	args, err := EngineABI.UnpackInput(method.Name, input[4:])
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	e := c.engine
	switch method.Name {
	// Mutating functions
	case "depositCollateral":
		return nil, e.DepositCollateral(ctx, caller, args[0].(common.Address), args[1].(*big.Int))
	case "depositCollateralAndMintDsc":
		return nil, e.DepositCollateralAndMintDsc(ctx, caller, args[0].(common.Address), args[1].(*big.Int), args[2].(*big.Int))
	case "redeemCollateral":
		return nil, e.RedeemCollateral(ctx, caller, args[0].(common.Address), args[1].(*big.Int))
	case "redeemCollateralForDsc":
		return nil, e.RedeemCollateralForDsc(ctx, caller, args[0].(common.Address), args[1].(*big.Int), args[2].(*big.Int))
	case "mintDsc":
		return nil, e.MintDsc(ctx, caller, args[0].(*big.Int))
	case "burnDsc":
		return nil, e.BurnDsc(ctx, caller, args[0].(*big.Int))
	case "liquidate":
		event, err := e.Liquidate(ctx, caller, args[0].(common.Address), args[1].(common.Address), args[2].(*big.Int))
		if err != nil {
			return nil, err
		}
		return EngineABI.PackOutput(method.Name, event.CollateralSeized.ToBig())

	// View functions
	case "getHealthFactor":
		hf, err := e.HealthFactor(ctx, args[0].(common.Address))
		return packAmount(method.Name, hf, err)
	case "calculateHealthFactor":
		debt, err := toWord(args[0].(*big.Int))
		if err != nil {
			return nil, err
		}
		value, err := toWord(args[1].(*big.Int))
		if err != nil {
			return nil, err
		}
		return packAmount(method.Name, e.CalculateHealthFactor(debt, value), nil)
	case "getAccountInformation":
		debt, value, err := e.AccountInformation(ctx, args[0].(common.Address))
		if err != nil {
			return nil, err
		}
		return EngineABI.PackOutput(method.Name, debt.ToBig(), value.ToBig())
	case "getAccountCollateralValue":
		value, err := e.AccountCollateralValue(ctx, args[0].(common.Address))
		return packAmount(method.Name, value, err)
	case "getCollateralBalanceOfUser":
		bal, err := e.CollateralBalance(ctx, args[0].(common.Address), args[1].(common.Address))
		return packAmount(method.Name, bal, err)
	case "getCollateralTokens":
		return EngineABI.PackOutput(method.Name, e.CollateralTokens())
	case "getUsdValue":
		amount, err := toWord(args[1].(*big.Int))
		if err != nil {
			return nil, err
		}
		value, err := e.USDValue(ctx, args[0].(common.Address), amount)
		return packAmount(method.Name, value, err)
	case "getTokenAmountFromUsd":
		usd, err := toWord(args[1].(*big.Int))
		if err != nil {
			return nil, err
		}
		amount, err := e.TokenAmountFromUSD(ctx, args[0].(common.Address), usd)
		return packAmount(method.Name, amount, err)
	case "getDsc":
		return EngineABI.PackOutput(method.Name, e.DebtToken())
	case "getPrecision":
		return packAmount(method.Name, Precision, nil)
	case "getAdditionalFeedPrecision":
		return packAmount(method.Name, AdditionalFeedPrecision, nil)
	case "getLiquidationThreshold":
		return packAmount(method.Name, liquidationThreshold, nil)
	case "getLiquidationBonus":
		return packAmount(method.Name, liquidationBonus, nil)
	case "getLiquidationPrecision":
		return packAmount(method.Name, liquidationPrecision, nil)
	case "getMinHealthFactor":
		return packAmount(method.Name, MinHealthFactor, nil)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSelector, method.Name)
	}
}

func packAmount(name string, amount *uint256.Int, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	return EngineABI.PackOutput(name, amount.ToBig())
}

// toWord converts a decoded uint256 argument. Zero is allowed.
func toWord(v *big.Int) (*uint256.Int, error) {
	word, overflow := uint256.FromBig(v)
	if overflow {
		return nil, ErrAmountOverflow
	}
	return word, nil
}
