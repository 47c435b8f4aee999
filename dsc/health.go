// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dsc

import (
	"github.com/holiman/uint256"
)

// HealthFactor computes
//
//	(collateralValue * LiquidationThreshold / LiquidationPrecision) * Precision / debt
//
// Accounts without debt get MaxHealthFactor. Intermediate products are 512
// bits wide; a result that does not fit in 256 bits saturates to
// MaxHealthFactor, so the function never fails.
func HealthFactor(debt, collateralValue *uint256.Int) *uint256.Int {
	if debt.IsZero() {
		return MaxHealthFactor.Clone()
	}

	adjusted, _ := new(uint256.Int).MulDivOverflow(collateralValue, liquidationThreshold, liquidationPrecision)
	hf, overflow := new(uint256.Int).MulDivOverflow(adjusted, Precision, debt)
	if overflow {
		return MaxHealthFactor.Clone()
	}
	return hf
}

// IsSolvent reports whether [hf] is at or above MinHealthFactor.
func IsSolvent(hf *uint256.Int) bool {
	return !hf.Lt(MinHealthFactor)
}

// maxMintable returns the largest debt [collateralValue] supports.
func maxMintable(collateralValue *uint256.Int) *uint256.Int {
	adjusted, _ := new(uint256.Int).MulDivOverflow(collateralValue, liquidationThreshold, liquidationPrecision)
	return adjusted
}

// liquidationAmounts splits the collateral seized for [base] into base and bonus.
func liquidationAmounts(base *uint256.Int) (bonus, total *uint256.Int, overflow bool) {
	bonus, _ = new(uint256.Int).MulDivOverflow(base, liquidationBonus, liquidationPrecision)
	total, overflow = new(uint256.Int).AddOverflow(base, bonus)
	return bonus, total, overflow
}
