package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func tier(min int, price string) Tier {
	return Tier{MinQuantity: min, UnitPrice: d(price)}
}

func TestPrice_SegmentsCoverQuantity(t *testing.T) {
	t.Parallel()

	schedules := [][]Tier{
		{tier(1, "10")},
		{tier(1, "10"), tier(3, "7"), tier(5, "9")},
		{tier(1, "11"), tier(5, "10"), tier(10, "9")},
		{tier(1, "2.5"), tier(7, "2.1")},
	}
	for _, ts := range schedules {
		for q := 1; q <= 40; q++ {
			b, err := Price(ts, q, decimal.Zero)
			require.NoError(t, err)
			sum := 0
			for _, s := range b.Segments {
				sum += s.Quantity
			}
			assert.Equal(t, q, sum, "qty %d", q)
		}
	}
}

func TestPrice_NonMonotonicBeatsGreedy(t *testing.T) {
	t.Parallel()

	// A later tier priced above an earlier one. Greedy largest-tier-first
	// picks 5×9 + 1×10 = 55; the optimum is two packs of 3×7 = 42.
	ts := []Tier{tier(1, "10"), tier(3, "7"), tier(5, "9")}

	b, err := Price(ts, 6, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, b.Total.Equal(d("42")), "got %s", b.Total)

	for q := 1; q <= 60; q++ {
		b, err := Price(ts, q, decimal.Zero)
		require.NoError(t, err)
		assert.True(t, b.Total.LessThanOrEqual(greedyTotal(ts, q)),
			"qty %d: dp %s > greedy %s", q, b.Total, greedyTotal(ts, q))
	}
}

// greedyTotal is the naive largest-qualifying-tier-first computation the
// engine must never exceed.
func greedyTotal(ts []Tier, qty int) decimal.Decimal {
	total := decimal.Zero
	for qty > 0 {
		pick := ts[0]
		for _, t := range ts {
			if t.MinQuantity <= qty {
				pick = t
			}
		}
		total = total.Add(pick.UnitPrice.Mul(decimal.NewFromInt(int64(pick.MinQuantity))))
		qty -= pick.MinQuantity
	}
	return total
}

func TestPrice_TwelveUnitsAcrossThreeTiers(t *testing.T) {
	t.Parallel()

	ts := []Tier{tier(1, "11"), tier(5, "10"), tier(10, "9")}
	b, err := Price(ts, 12, decimal.Zero)
	require.NoError(t, err)

	assert.True(t, b.Total.Equal(d("112")), "got %s", b.Total)
	require.Len(t, b.Segments, 2)
	assert.Equal(t, 10, b.Segments[0].Quantity)
	assert.True(t, b.Segments[0].UnitPrice.Equal(d("9")))
	assert.Equal(t, 2, b.Segments[1].Quantity)
	assert.True(t, b.Segments[1].UnitPrice.Equal(d("11")))
	assert.Equal(t, "9.33", b.AverageUnit().StringFixed(2))
}

func TestPrice_MergesEqualPriceRuns(t *testing.T) {
	t.Parallel()

	ts := []Tier{tier(1, "10"), tier(3, "7"), tier(5, "9")}
	b, err := Price(ts, 6, decimal.Zero)
	require.NoError(t, err)
	require.Len(t, b.Segments, 1)
	assert.Equal(t, 6, b.Segments[0].Quantity)
	assert.True(t, b.Segments[0].UnitPrice.Equal(d("7")))
}

func TestPrice_FlatFallbackWithoutTiers(t *testing.T) {
	t.Parallel()

	b, err := Price(nil, 4, d("12.5"))
	require.NoError(t, err)
	require.Len(t, b.Segments, 1)
	assert.True(t, b.Total.Equal(d("50")))
	assert.Equal(t, "4 × €12.50 = €50.00", b.Format("€"))
}

func TestPrice_InvalidInputs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		tiers []Tier
		qty   int
		want  error
	}{
		{"zero quantity", []Tier{tier(1, "10")}, 0, ErrInvalidQuantity},
		{"negative quantity", []Tier{tier(1, "10")}, -3, ErrInvalidQuantity},
		{"first tier not 1", []Tier{tier(2, "10")}, 5, ErrInvalidSchedule},
		{"duplicate min quantity", []Tier{tier(1, "10"), tier(3, "9"), tier(3, "8")}, 5, ErrInvalidSchedule},
		{"non-positive price", []Tier{tier(1, "10"), tier(3, "0")}, 5, ErrInvalidSchedule},
		{"no tiers and no base price", nil, 5, ErrInvalidSchedule},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Price(tt.tiers, tt.qty, decimal.Zero)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFormat_ItemizedBreakdown(t *testing.T) {
	t.Parallel()

	ts := []Tier{tier(1, "11"), tier(5, "10"), tier(10, "9")}
	b, err := Price(ts, 12, decimal.Zero)
	require.NoError(t, err)

	got := b.Format("€")
	assert.Contains(t, got, "10 × €9.00 = €90.00")
	assert.Contains(t, got, "2 × €11.00 = €22.00")
	assert.Contains(t, got, "Total: 12 units = €112.00")
	assert.Contains(t, got, "Average unit price: €9.33")
}
