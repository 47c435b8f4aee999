// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package dsc implements an over-collateralized stablecoin engine: users
// deposit collateral, mint debt against it up to a liquidation threshold, and
// anyone may liquidate positions whose health factor falls below 1.0 in
// exchange for a collateral bonus.
package dsc

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/parsdao/dsc/oracle"
)

// Default addresses (LP-9100 range, synthetic assets)
var (
	EngineAddress     = common.HexToAddress("0x0000000000000000000000000000000000009100")
	StablecoinAddress = common.HexToAddress("0x0000000000000000000000000000000000009101")
)

// Risk parameters. Percentages are expressed over LiquidationPrecision.
const (
	LiquidationThreshold = 50 // 200% overcollateralized
	LiquidationBonus     = 10 // 10% bonus to liquidators
	LiquidationPrecision = 100
)

var (
	// Precision is the 18-decimal fixed-point scale shared by prices, debt
	// and health factors.
	Precision = oracle.Precision

	// AdditionalFeedPrecision lifts 8-decimal feed answers to Precision.
	AdditionalFeedPrecision = oracle.AdditionalFeedPrecision

	// MinHealthFactor is 1.0. A position is solvent iff its health factor is >= this.
	MinHealthFactor = uint256.NewInt(1_000_000_000_000_000_000)

	// MaxHealthFactor is reported for accounts without debt.
	MaxHealthFactor = new(uint256.Int).SetAllOne()

	liquidationThreshold = uint256.NewInt(LiquidationThreshold)
	liquidationBonus     = uint256.NewInt(LiquidationBonus)
	liquidationPrecision = uint256.NewInt(LiquidationPrecision)
)

// Error kinds. Every error returned by the engine matches exactly one of
// these with errors.Is, except ErrReentrant and storage failures.
var (
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrSolvencyViolation      = errors.New("solvency violation")
	ErrExternalCall           = errors.New("external call failed")
	ErrLiquidationNotEligible = errors.New("liquidation not eligible")
	ErrLiquidationIneffective = errors.New("liquidation ineffective")

	ErrReentrant = errors.New("reentrant call")
)

// Errors - arguments
var (
	ErrZeroAmount      = fmt.Errorf("%w: amount must be more than zero", ErrInvalidArgument)
	ErrNegativeAmount  = fmt.Errorf("%w: amount is negative", ErrInvalidArgument)
	ErrAmountOverflow  = fmt.Errorf("%w: amount overflows 256 bits", ErrInvalidArgument)
	ErrTokenNotAllowed = fmt.Errorf("%w: token not allowed", ErrInvalidArgument)
	ErrZeroAddress     = fmt.Errorf("%w: address cannot be zero", ErrInvalidArgument)
	ErrDuplicateToken  = fmt.Errorf("%w: duplicate collateral token", ErrInvalidArgument)
	ErrMissingFeed     = fmt.Errorf("%w: collateral token has no price feed", ErrInvalidArgument)
	ErrNoCollateral    = fmt.Errorf("%w: no collateral tokens configured", ErrInvalidArgument)
	ErrMissingBackend  = fmt.Errorf("%w: ledger and issuer are required", ErrInvalidArgument)
)

// Errors - balances and solvency
var (
	ErrInsufficientCollateral = fmt.Errorf("%w: collateral balance too low", ErrInsufficientFunds)
	ErrInsufficientDebt       = fmt.Errorf("%w: amount exceeds minted debt", ErrInsufficientFunds)
	ErrBreaksHealthFactor     = fmt.Errorf("%w: breaks health factor", ErrSolvencyViolation)
)

// Errors - collaborators
var (
	ErrTransferFailed = fmt.Errorf("%w: transfer", ErrExternalCall)
	ErrMintFailed     = fmt.Errorf("%w: mint", ErrExternalCall)
	ErrBurnFailed     = fmt.Errorf("%w: burn", ErrExternalCall)
	ErrOracleFailed   = fmt.Errorf("%w: price oracle", ErrExternalCall)
)

// Errors - liquidation
var (
	ErrHealthFactorOK          = fmt.Errorf("%w: health factor ok", ErrLiquidationNotEligible)
	ErrHealthFactorNotImproved = fmt.Errorf("%w: health factor not improved", ErrLiquidationIneffective)
)

// HealthFactorError reports the health factor an operation would have left
// an account with.
type HealthFactorError struct {
	Account      common.Address
	HealthFactor *uint256.Int
}

func (e *HealthFactorError) Error() string {
	return fmt.Sprintf("%v: account %s health factor %s", ErrBreaksHealthFactor, e.Account.Hex(), e.HealthFactor.Dec())
}

func (e *HealthFactorError) Unwrap() error {
	return ErrBreaksHealthFactor
}

// Asset is an accepted collateral token and the feed that prices it.
type Asset struct {
	Token common.Address
	Feed  oracle.Feed
}

// CollateralDeposited is emitted for every successful deposit.
type CollateralDeposited struct {
	User   common.Address
	Token  common.Address
	Amount *uint256.Int
}

// CollateralRedeemed is emitted for every successful redemption, including
// the seize step of a liquidation.
type CollateralRedeemed struct {
	From   common.Address
	To     common.Address
	Token  common.Address
	Amount *uint256.Int
}

// LiquidationEvent records a committed liquidation.
type LiquidationEvent struct {
	Liquidator           common.Address
	User                 common.Address
	Token                common.Address
	DebtCovered          *uint256.Int
	CollateralSeized     *uint256.Int // base + bonus
	Bonus                *uint256.Int
	StartingHealthFactor *uint256.Int
	EndingHealthFactor   *uint256.Int
}

// LiquidationTarget is an account currently below MinHealthFactor.
type LiquidationTarget struct {
	User            common.Address
	Debt            *uint256.Int
	CollateralValue *uint256.Int
	HealthFactor    *uint256.Int
}
