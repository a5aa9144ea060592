package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be > 0")
	ErrInvalidSchedule = errors.New("invalid tier schedule")
)

// Tier is one row of a quantity discount schedule. A schedule is ordered
// by MinQuantity ascending and must start at 1.
type Tier struct {
	MinQuantity int
	UnitPrice   decimal.Decimal
}

// Segment is a run of units priced at one unit price.
type Segment struct {
	Quantity  int
	UnitPrice decimal.Decimal
}

func (s Segment) Total() decimal.Decimal {
	return s.UnitPrice.Mul(decimal.NewFromInt(int64(s.Quantity)))
}

// Breakdown is the cheapest partition of the requested quantity into
// tier-priced segments. Totals stay unrounded until formatting.
type Breakdown struct {
	Segments []Segment
	Quantity int
	Total    decimal.Decimal
}

// Price computes the minimum total cost of qty units under the given
// schedule. Each pick consumes exactly one tier's MinQuantity at that
// tier's unit price; any tier may be picked any number of times, so tiers
// do not define contiguous quantity ranges. A later tier may be priced
// above an earlier one (non-monotonic schedule), which breaks greedy
// largest-tier-first selection, so the minimum is found by dynamic
// programming over 1..qty. Consecutive picks at the same unit price are
// merged into one segment. With no tiers the base price applies flat.
func Price(tiers []Tier, qty int, basePrice decimal.Decimal) (Breakdown, error) {
	if qty <= 0 {
		return Breakdown{}, ErrInvalidQuantity
	}
	if len(tiers) == 0 {
		if basePrice.Sign() <= 0 {
			return Breakdown{}, fmt.Errorf("%w: base price must be > 0", ErrInvalidSchedule)
		}
		seg := Segment{Quantity: qty, UnitPrice: basePrice}
		return Breakdown{Segments: []Segment{seg}, Quantity: qty, Total: seg.Total()}, nil
	}
	if err := validate(tiers); err != nil {
		return Breakdown{}, err
	}

	// best[q] = minimum cost of exactly q units; choice[q] = tier index of
	// the last pick on the cheapest path, for reconstruction.
	best := make([]decimal.Decimal, qty+1)
	choice := make([]int, qty+1)
	for q := 1; q <= qty; q++ {
		found := false
		for ti, t := range tiers {
			if t.MinQuantity > q {
				break
			}
			cost := best[q-t.MinQuantity].Add(t.UnitPrice.Mul(decimal.NewFromInt(int64(t.MinQuantity))))
			if !found || cost.LessThan(best[q]) {
				best[q] = cost
				choice[q] = ti
				found = true
			}
		}
	}

	// Count picks per tier, then emit segments largest tier first and
	// merge adjacent runs with equal unit prices.
	picks := make([]int, len(tiers))
	for q := qty; q > 0; {
		ti := choice[q]
		picks[ti]++
		q -= tiers[ti].MinQuantity
	}
	var segments []Segment
	for ti := len(tiers) - 1; ti >= 0; ti-- {
		if picks[ti] == 0 {
			continue
		}
		segments = append(segments, Segment{
			Quantity:  picks[ti] * tiers[ti].MinQuantity,
			UnitPrice: tiers[ti].UnitPrice,
		})
	}
	return Breakdown{Segments: mergeSegments(segments), Quantity: qty, Total: best[qty]}, nil
}

func validate(tiers []Tier) error {
	if tiers[0].MinQuantity != 1 {
		return fmt.Errorf("%w: first tier must start at quantity 1", ErrInvalidSchedule)
	}
	prev := 0
	for _, t := range tiers {
		if t.MinQuantity <= prev {
			return fmt.Errorf("%w: tiers must be strictly ascending by min quantity", ErrInvalidSchedule)
		}
		if t.UnitPrice.Sign() <= 0 {
			return fmt.Errorf("%w: unit price must be > 0", ErrInvalidSchedule)
		}
		prev = t.MinQuantity
	}
	return nil
}

// mergeSegments collapses consecutive segments with the same unit price.
func mergeSegments(in []Segment) []Segment {
	out := in[:0]
	for _, s := range in {
		if n := len(out); n > 0 && out[n-1].UnitPrice.Equal(s.UnitPrice) {
			out[n-1].Quantity += s.Quantity
			continue
		}
		out = append(out, s)
	}
	return out
}
