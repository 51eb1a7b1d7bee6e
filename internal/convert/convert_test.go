package convert

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharesToAssetsTruncatesDown(t *testing.T) {
	// 3 shares at price 1.5 (decimals 6) = 4.5, truncated to 4
	price := sdkmath.NewInt(1_500_000)
	out := SharesToAssets(sdkmath.NewInt(3), price, 6)
	assert.Equal(t, sdkmath.NewInt(4), out)
}

func TestAssetsToSharesTruncatesDown(t *testing.T) {
	// 10 want at price 3 (decimals 6) = 3.33... shares, truncated to 3
	price := sdkmath.NewInt(3_000_000)
	out := AssetsToShares(sdkmath.NewInt(10), price, 6)
	assert.Equal(t, sdkmath.NewInt(3), out)
}

func TestConversionsDegradeToZeroOnInvalidPrice(t *testing.T) {
	amount := sdkmath.NewInt(1000)

	assert.True(t, SharesToAssets(amount, sdkmath.ZeroInt(), 6).IsZero())
	assert.True(t, AssetsToShares(amount, sdkmath.ZeroInt(), 6).IsZero())
	assert.True(t, SharesToAssets(amount, sdkmath.NewInt(-5), 6).IsZero())
	assert.True(t, AssetsToShares(amount, sdkmath.NewInt(-5), 6).IsZero())
	assert.True(t, SharesToAssets(amount, sdkmath.Int{}, 6).IsZero())
	assert.True(t, AssetsToShares(sdkmath.Int{}, sdkmath.NewInt(1), 6).IsZero())
}

func TestRoundTripNeverInflates(t *testing.T) {
	prices := []sdkmath.Int{
		sdkmath.NewInt(1),
		sdkmath.NewInt(999_983),
		sdkmath.NewInt(1_000_000),
		sdkmath.NewInt(1_730_451),
		sdkmath.NewInt(123_456_789),
	}
	amounts := []int64{1, 7, 999, 1_000_000, 987_654_321}

	for _, price := range prices {
		for _, raw := range amounts {
			amount := sdkmath.NewInt(raw)
			shares := AssetsToShares(amount, price, 6)
			back := SharesToAssets(shares, price, 6)
			require.True(t, back.LTE(amount),
				"round trip inflated value: amount=%s price=%s back=%s", amount, price, back)
		}
	}
}

func TestAssetsToSharesMonotonic(t *testing.T) {
	price := sdkmath.NewInt(2_345_678)
	prev := sdkmath.ZeroInt()
	for raw := int64(0); raw <= 5000; raw += 37 {
		shares := AssetsToShares(sdkmath.NewInt(raw), price, 6)
		require.True(t, shares.GTE(prev), "shares decreased at amount %d", raw)
		prev = shares
	}
}

func TestMinOutForLoss(t *testing.T) {
	testCases := []struct {
		name       string
		amount     int64
		maxLossBps uint64
		expected   int64
	}{
		{"zero tolerance keeps full amount", 10_000, 0, 10_000},
		{"one percent", 10_000, 100, 9_900},
		{"tolerated loss rounds down", 999, 100, 990}, // 9.99 -> 9
		{"full tolerance", 500, 10_000, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := MinOutForLoss(sdkmath.NewInt(tc.amount), tc.maxLossBps)
			assert.Equal(t, sdkmath.NewInt(tc.expected).String(), out.String())
		})
	}

	assert.True(t, MinOutForLoss(sdkmath.ZeroInt(), 100).IsZero())
	assert.True(t, MinOutForLoss(sdkmath.Int{}, 100).IsZero())
}
