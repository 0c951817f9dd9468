// Package roasting holds the production math for roast batches: round
// totals, weight loss, finished-good resolution and machine event handling.
package roasting

import (
	"math"
	"strconv"
	"strings"

	"coffeeroaster/pkg/domain"
)

// Tolerance is the allowed difference in kg between the batch input and the
// sum of its round inputs.
const Tolerance = 0.001

// Validate checks the header fields of a roast batch. Zero values are treated
// as unset.
func Validate(rb domain.RoastBatch) error {
	if rb.QtyToRoast < 0 {
		return domain.Invalidf("Input weight must be > 0 kg.")
	}
	if rb.OutputQty < 0 {
		return domain.Invalidf("Output weight must be > 0 kg.")
	}
	if rb.QCScore != 0 && (rb.QCScore < 50 || rb.QCScore > 100) {
		return domain.Invalidf("QC score must be between 50 and 100.")
	}
	return nil
}

// DeriveRounds fills the per-round loss and net quantities.
func DeriveRounds(rb *domain.RoastBatch) {
	for i := range rb.Rounds {
		r := &rb.Rounds[i]
		r.LossQty = math.Max(0, r.InputQty-r.OutputQty)
		r.NetQty = math.Max(0, r.OutputQty-r.Quacker)
	}
}

// ComputeTotals aggregates the rounds into the batch totals. When rounds
// exist the batch output mirrors the total round output.
func ComputeTotals(rb *domain.RoastBatch) {
	var in, out, loss, quack float64
	for _, r := range rb.Rounds {
		in += r.InputQty
		out += r.OutputQty
		loss += r.LossQty
		quack += r.Quacker
	}
	rb.TotalInputQty = Round3(in)
	rb.TotalOutputQty = Round3(out)
	rb.TotalLossQty = Round3(loss)
	rb.TotalQuacker = Round3(quack)
	rb.RoundsCount = len(rb.Rounds)
	if len(rb.Rounds) > 0 {
		rb.OutputQty = rb.TotalOutputQty
	}
}

// CheckConsistency verifies that round inputs add up to the batch input.
func CheckConsistency(rb domain.RoastBatch) error {
	if len(rb.Rounds) == 0 || rb.QtyToRoast == 0 {
		return nil
	}
	if math.Abs(rb.QtyToRoast-rb.TotalInputQty) > Tolerance {
		return domain.Invalidf("Sum of round inputs (%s kg) does not match Batch Input Weight (%s kg). Adjust the rounds or the batch input.",
			FormatKg(rb.TotalInputQty), FormatKg(rb.QtyToRoast))
	}
	return nil
}

// EffectiveInOut returns the input and output weights, preferring the round
// totals. ok is false when no output weight is known.
func EffectiveInOut(rb domain.RoastBatch) (in, out float64, ok bool) {
	if len(rb.Rounds) > 0 {
		return rb.TotalInputQty, rb.TotalOutputQty, true
	}
	return rb.QtyToRoast, rb.OutputQty, rb.OutputQty != 0
}

// Recompute runs the full save-time pipeline: header validation, round
// derivation, totals, consistency and weight loss percentage.
func Recompute(rb *domain.RoastBatch) error {
	if err := Validate(*rb); err != nil {
		return err
	}
	DeriveRounds(rb)
	ComputeTotals(rb)
	if err := CheckConsistency(*rb); err != nil {
		return err
	}
	in, out, ok := EffectiveInOut(*rb)
	if in > 0 && ok {
		rb.WeightLossPercentage = (in - out) / in * 100
	}
	return nil
}

// WeightLoss computes the absolute and relative loss between input and
// output weights. Either weight being zero yields zero loss.
func WeightLoss(input, output float64) (loss, pct float64, err error) {
	if input == 0 || output == 0 {
		return 0, 0, nil
	}
	if output > input {
		return 0, 0, domain.Invalidf("Output weight cannot be greater than input weight.")
	}
	loss = input - output
	return loss, loss / input * 100, nil
}

// Round3 rounds to three decimals (grams on a kg scale).
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// FormatKg renders a weight the way users type it, always with a decimal
// point ("30.0", "12.345").
func FormatKg(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
