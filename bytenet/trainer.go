package bytenet

import (
	"errors"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// A Batch stores a packed mini-batch of samples, padded
// to a common length.
type Batch struct {
	Sources   *anydiff.Const
	TargetIns *anydiff.Const

	// Targets holds one-hot target tokens with trailing
	// padding trimmed, so that a sample is present at a
	// timestep only if it has a target token there.
	// Interior padding tokens are zero vectors.
	Targets anyseq.Seq

	Num    int
	Length int

	// Tokens is the number of non-padding target tokens.
	Tokens int
}

// A Trainer can construct batches, compute gradients, and
// tally up costs for a Model.
type Trainer struct {
	Model  *Model
	Params []*anydiff.Var

	SourcePad int
	TargetPad int

	// After every gradient computation, LastCost is set to
	// the average per-token cost from the batch.
	LastCost anyvec.Numeric
}

// Fetch produces a *Batch for the subset of samples.
// The s argument must implement SampleList.
// The batch may not be empty.
func (t *Trainer) Fetch(s anysgd.SampleList) (anysgd.Batch, error) {
	if s.Len() == 0 {
		return nil, errors.New("fetch batch: empty batch")
	}
	l := s.(SampleList)

	samples := make([]*Sample, l.Len())
	var length int
	for i := range samples {
		sample, err := l.GetSample(i)
		if err != nil {
			return nil, essentials.AddCtx("fetch batch", err)
		}
		samples[i] = sample
		length = essentials.MaxInt(length, len(sample.Source), len(sample.Target))
	}
	if length == 0 {
		return nil, errors.New("fetch batch: empty sequences")
	}

	c := t.Model.Output.Weights.Vector.Creator()
	vocab := t.Model.TargetVocab()
	var srcs, tgtIns []anyvec.Vector
	tgts := make([][]anyvec.Vector, len(samples))
	var tokens int
	for i, sample := range samples {
		src := padRight(sample.Source, t.SourcePad, length)
		tgt := padRight(sample.Target, t.TargetPad, length)
		srcs = append(srcs, oneHotSeq(c, src, t.Model.SourceVocab(), -1))
		tgtIns = append(tgtIns, shiftedOneHotSeq(c, tgt, length, vocab))

		end := len(tgt)
		for end > 0 && tgt[end-1] == t.TargetPad {
			end--
		}
		for _, tok := range tgt[:end] {
			if tok == t.TargetPad {
				tgts[i] = append(tgts[i], c.MakeVector(vocab))
			} else {
				tokens++
				tgts[i] = append(tgts[i], oneHotSeq(c, []int{tok}, vocab, -1))
			}
		}
	}

	return &Batch{
		Sources:   anydiff.NewConst(c.Concat(srcs...)),
		TargetIns: anydiff.NewConst(c.Concat(tgtIns...)),
		Targets:   anyseq.ConstSeqList(c, tgts),
		Num:       len(samples),
		Length:    length,
		Tokens:    tokens,
	}, nil
}

// TotalCost computes the average cross-entropy of the
// non-padding target tokens in a *Batch.
func (t *Trainer) TotalCost(batch anysgd.Batch) anydiff.Res {
	b := batch.(*Batch)
	out := t.Model.Apply(b.Sources, b.TargetIns, b.Num)
	c := out.Output().Creator()
	vocab := t.Model.TargetVocab()
	return anydiff.Pool(out, func(out anydiff.Res) anydiff.Res {
		var costs []anydiff.Res
		for step, targets := range b.Targets.Output() {
			var rows []anydiff.Res
			for i, present := range targets.Present {
				if present {
					start := (i*b.Length + step) * vocab
					rows = append(rows, anydiff.Slice(out, start, start+vocab))
				}
			}
			cost := anynet.DotCost{}.Cost(anydiff.NewConst(targets.Packed),
				anydiff.Concat(rows...), targets.NumPresent())
			costs = append(costs, anydiff.Sum(cost))
		}
		if len(costs) == 0 || b.Tokens == 0 {
			return anydiff.NewConst(c.MakeVector(1))
		}
		total := anydiff.Sum(anydiff.Concat(costs...))
		return anydiff.Scale(total, c.MakeNumeric(1/float64(b.Tokens)))
	})
}

// Gradient computes the gradient for the batch's cost.
// It also sets t.LastCost to the numerical value of the
// cost.
//
// The b argument must be a *Batch.
func (t *Trainer) Gradient(b anysgd.Batch) anydiff.Grad {
	grad, lc := anysgd.CosterGrad(t, b, t.Params)
	t.LastCost = lc
	return grad
}
