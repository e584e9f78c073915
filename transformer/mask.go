package transformer

import "github.com/unixpickle/anyvec"

// MaskedBias is the additive attention bias used for
// positions which may not be attended to.
const MaskedBias = -1e9

// SourceMask marks the non-padding positions of seq.
func SourceMask(seq []int, pad int) []uint8 {
	res := make([]uint8, len(seq))
	for i, x := range seq {
		if x != pad {
			res[i] = 1
		}
	}
	return res
}

// TargetMask computes the decoder self-attention mask.
//
// Entry (i, j) is 1 if position i may attend to position
// j, which requires seq[j] to be a non-padding token and
// j <= i.
func TargetMask(seq []int, pad int) [][]uint8 {
	padMask := SourceMask(seq, pad)
	res := make([][]uint8, len(seq))
	for i := range res {
		res[i] = make([]uint8, len(seq))
		for j := 0; j <= i; j++ {
			res[i][j] = padMask[j]
		}
	}
	return res
}

// AttentionBias converts a mask into a row-major vector
// which can be added to attention logits.
// Allowed positions get 0 and masked positions get
// MaskedBias.
func AttentionBias(c anyvec.Creator, mask [][]uint8) anyvec.Vector {
	var values []float64
	for _, row := range mask {
		for _, x := range row {
			if x == 0 {
				values = append(values, MaskedBias)
			} else {
				values = append(values, 0)
			}
		}
	}
	return c.MakeVectorData(c.MakeNumericList(values))
}
