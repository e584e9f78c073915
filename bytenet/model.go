package bytenet

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var m Model
	serializer.RegisterTypedDeserializer(m.SerializerType(), DeserializeModel)
}

// Model is a ByteNet encoder-decoder.
//
// The encoder runs over the (padded) source sequence.
// Its output is added to an embedding of the target
// sequence shifted right by one position, and the sum is
// fed to a causal decoder which predicts the next target
// token at every position.
//
// Only the decoder's padding and convolutions are causal.
// Its instance norms take statistics over the whole target
// sequence, so during training later target tokens affect
// the predictions for earlier positions. Translate decodes
// greedily from a partial target, so it does not see the
// statistics the model was trained with.
type Model struct {
	SourceEmbed *Pointwise
	TargetEmbed *Pointwise

	Encoder []*ResBlockSet
	Decoder []*ResBlockSet

	Output *Pointwise
}

// DeserializeModel deserializes a Model.
func DeserializeModel(d []byte) (*Model, error) {
	var res Model
	var enc, dec anynet.Net
	err := serializer.DeserializeAny(d, &res.SourceEmbed, &res.TargetEmbed, &enc, &dec,
		&res.Output)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Model", err)
	}
	if res.Encoder, err = blockSets(enc); err != nil {
		return nil, essentials.AddCtx("deserialize Model", err)
	}
	if res.Decoder, err = blockSets(dec); err != nil {
		return nil, essentials.AddCtx("deserialize Model", err)
	}
	return &res, nil
}

// NewModel creates a randomized Model.
//
// The encoder and decoder each have numSets ResBlockSets
// with an inner size of d, a maximum dilation of maxR and
// a kernel size of k.
func NewModel(c anyvec.Creator, srcVocab, tgtVocab, d, maxR, k, numSets int) *Model {
	res := &Model{
		SourceEmbed: NewPointwise(c, srcVocab, 2*d, true),
		TargetEmbed: NewPointwise(c, tgtVocab, 2*d, false),
		Output:      NewPointwise(c, 2*d, tgtVocab, true),
	}
	for i := 0; i < numSets; i++ {
		res.Encoder = append(res.Encoder, NewResBlockSet(c, d, maxR, k, false))
		res.Decoder = append(res.Decoder, NewResBlockSet(c, d, maxR, k, true))
	}
	return res
}

// SourceVocab returns the size of the source vocabulary.
func (m *Model) SourceVocab() int {
	return m.SourceEmbed.InDepth
}

// TargetVocab returns the size of the target vocabulary.
func (m *Model) TargetVocab() int {
	return m.Output.OutDepth
}

// Apply computes log probabilities for every target
// position.
//
// Both src and tgtIn are batches of one-hot sequences of
// the same length, where tgtIn is the target sequence
// shifted right by one position.
// The result has TargetVocab() components per position.
func (m *Model) Apply(src, tgtIn anydiff.Res, batch int) anydiff.Res {
	x := m.SourceEmbed.Apply(src, batch)
	for _, set := range m.Encoder {
		x = set.Apply(x, batch)
	}
	x = anydiff.Add(x, m.TargetEmbed.Apply(tgtIn, batch))
	for _, set := range m.Decoder {
		x = set.Apply(x, batch)
	}
	logits := m.Output.Apply(x, batch)
	positions := logits.Output().Len() / m.TargetVocab()
	return anynet.LogSoftmax.Apply(logits, positions)
}

// Translate greedily decodes a target sequence with the
// same length as src.
func (m *Model) Translate(src []int) []int {
	c := m.Output.Weights.Vector.Creator()
	srcVec := anydiff.NewConst(oneHotSeq(c, src, m.SourceVocab(), -1))
	var res []int
	for t := range src {
		tgtIn := anydiff.NewConst(shiftedOneHotSeq(c, res, len(src), m.TargetVocab()))
		out := m.Apply(srcVec, tgtIn, 1).Output()
		row := out.Slice(t*m.TargetVocab(), (t+1)*m.TargetVocab())
		res = append(res, anyvec.MaxIndex(row))
	}
	return res
}

// Parameters returns all of the model's parameters.
func (m *Model) Parameters() []*anydiff.Var {
	return m.net().Parameters()
}

// SerializerType returns the unique ID used to serialize
// a Model with the serializer package.
func (m *Model) SerializerType() string {
	return "github.com/py4/SFUTranslate/bytenet.Model"
}

// Serialize serializes the model.
func (m *Model) Serialize() ([]byte, error) {
	var enc, dec anynet.Net
	for _, s := range m.Encoder {
		enc = append(enc, s)
	}
	for _, s := range m.Decoder {
		dec = append(dec, s)
	}
	return serializer.SerializeAny(m.SourceEmbed, m.TargetEmbed, enc, dec, m.Output)
}

func (m *Model) net() anynet.Net {
	res := anynet.Net{m.SourceEmbed, m.TargetEmbed}
	for _, s := range m.Encoder {
		res = append(res, s)
	}
	for _, s := range m.Decoder {
		res = append(res, s)
	}
	return append(res, m.Output)
}

func blockSets(n anynet.Net) ([]*ResBlockSet, error) {
	var res []*ResBlockSet
	for _, l := range n {
		s, ok := l.(*ResBlockSet)
		if !ok {
			return nil, fmt.Errorf("not a *ResBlockSet: %T", l)
		}
		res = append(res, s)
	}
	return res, nil
}

// oneHotSeq encodes a sequence as one-hot vectors.
// Positions whose token equals skip are left as zero
// vectors.
func oneHotSeq(c anyvec.Creator, seq []int, vocab, skip int) anyvec.Vector {
	values := make([]float64, len(seq)*vocab)
	for i, tok := range seq {
		if tok != skip {
			values[i*vocab+tok] = 1
		}
	}
	return c.MakeVectorData(c.MakeNumericList(values))
}

// shiftedOneHotSeq encodes seq shifted right by one
// position, zero-padded or truncated to length.
// The first position is always a zero vector.
func shiftedOneHotSeq(c anyvec.Creator, seq []int, length, vocab int) anyvec.Vector {
	values := make([]float64, length*vocab)
	for i := 1; i < length && i-1 < len(seq); i++ {
		values[i*vocab+seq[i-1]] = 1
	}
	return c.MakeVectorData(c.MakeNumericList(values))
}
