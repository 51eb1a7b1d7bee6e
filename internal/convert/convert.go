/*

This file contains the share conversion arithmetic for the strategy. All
conversions are integer-only and truncate toward zero, so repeated round trips
can shed dust but never manufacture value.

*/

package convert

import (
	sdkmath "cosmossdk.io/math"
)

// BpsDenominator is the basis point scale used for slippage tolerances.
const BpsDenominator = 10_000

// pow10 returns 10^decimals as an Int.
func pow10(decimals uint8) sdkmath.Int {
	return sdkmath.NewIntWithDecimal(1, int(decimals))
}

// SharesToAssets converts a pool share count into a want-denominated amount
// at the given price per share. A nil or non-positive price yields zero; the
// caller must treat a zero result as "cannot price", not as true zero value.
func SharesToAssets(shares, pricePerShare sdkmath.Int, shareDecimals uint8) sdkmath.Int {
	if shares.IsNil() || pricePerShare.IsNil() {
		return sdkmath.ZeroInt()
	}
	if !shares.IsPositive() || !pricePerShare.IsPositive() {
		return sdkmath.ZeroInt()
	}
	return shares.Mul(pricePerShare).Quo(pow10(shareDecimals))
}

// AssetsToShares converts a want-denominated amount into a pool share count
// at the given price per share. Truncates, so the resulting shares never
// redeem for more than the requested amount. A nil or non-positive price
// yields zero rather than dividing.
func AssetsToShares(amount, pricePerShare sdkmath.Int, shareDecimals uint8) sdkmath.Int {
	if amount.IsNil() || pricePerShare.IsNil() {
		return sdkmath.ZeroInt()
	}
	if !amount.IsPositive() || !pricePerShare.IsPositive() {
		return sdkmath.ZeroInt()
	}
	return amount.Mul(pow10(shareDecimals)).Quo(pricePerShare)
}

// MinOutForLoss returns the smallest acceptable redemption proceeds for the
// given amount under a tolerance of maxLossBps. The tolerated loss is rounded
// down, so the bound never admits more loss than configured.
func MinOutForLoss(amount sdkmath.Int, maxLossBps uint64) sdkmath.Int {
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.ZeroInt()
	}
	loss := amount.MulRaw(int64(maxLossBps)).QuoRaw(BpsDenominator)
	return amount.Sub(loss)
}
