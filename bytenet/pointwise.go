package bytenet

import (
	"errors"
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var p Pointwise
	serializer.RegisterTypedDeserializer(p.SerializerType(), DeserializePointwise)
}

// Pointwise is a convolution with a kernel size of 1.
// It applies the same linear map to every position of
// every sequence.
type Pointwise struct {
	InDepth  int
	OutDepth int

	// Weights is an OutDepth by InDepth matrix.
	Weights *anydiff.Var

	// Biases is nil if the layer has no biases.
	Biases *anydiff.Var
}

// DeserializePointwise deserializes a Pointwise.
func DeserializePointwise(d []byte) (*Pointwise, error) {
	var inDepth serializer.Int
	var weights, biases *anyvecsave.S
	if err := serializer.DeserializeAny(d, &inDepth, &weights, &biases); err != nil {
		return nil, essentials.AddCtx("deserialize Pointwise", err)
	}
	if inDepth <= 0 || weights.Vector.Len()%int(inDepth) != 0 {
		return nil, errors.New("deserialize Pointwise: invalid matrix dimensions")
	}
	res := &Pointwise{
		InDepth:  int(inDepth),
		OutDepth: weights.Vector.Len() / int(inDepth),
		Weights:  anydiff.NewVar(weights.Vector),
	}
	if biases.Vector.Len() > 0 {
		res.Biases = anydiff.NewVar(biases.Vector)
	}
	return res, nil
}

// NewPointwise creates a randomized Pointwise layer.
// The randomization scheme targets an output variance of
// 1, given that the input variance is 1.
func NewPointwise(c anyvec.Creator, in, out int, useBias bool) *Pointwise {
	res := &Pointwise{
		InDepth:  in,
		OutDepth: out,
		Weights:  anydiff.NewVar(c.MakeVector(in * out)),
	}
	anyvec.Rand(res.Weights.Vector, anyvec.Normal, nil)
	res.Weights.Vector.Scale(c.MakeNumeric(1 / math.Sqrt(float64(in))))
	if useBias {
		res.Biases = anydiff.NewVar(c.MakeVector(out))
	}
	return res
}

// Apply applies the layer to a batch of sequences.
func (p *Pointwise) Apply(in anydiff.Res, batch int) anydiff.Res {
	seqLen := seqLength(in, batch, p.InDepth)
	if in.Output().Len() == 0 {
		return anydiff.NewConst(in.Output().Creator().MakeVector(0))
	}
	weightMat := &anydiff.Matrix{
		Data: p.Weights,
		Rows: p.OutDepth,
		Cols: p.InDepth,
	}
	inMat := &anydiff.Matrix{
		Data: in,
		Rows: batch * seqLen,
		Cols: p.InDepth,
	}
	out := anydiff.MatMul(false, true, inMat, weightMat).Data
	if p.Biases != nil {
		out = anydiff.AddRepeated(out, p.Biases)
	}
	return out
}

// Parameters returns the weights, followed by the biases
// if there are any.
func (p *Pointwise) Parameters() []*anydiff.Var {
	if p.Biases == nil {
		return []*anydiff.Var{p.Weights}
	}
	return []*anydiff.Var{p.Weights, p.Biases}
}

// SerializerType returns the unique ID used to serialize
// a Pointwise with the serializer package.
func (p *Pointwise) SerializerType() string {
	return "github.com/py4/SFUTranslate/bytenet.Pointwise"
}

// Serialize serializes the layer.
func (p *Pointwise) Serialize() ([]byte, error) {
	if p.Weights == nil {
		return nil, errors.New("cannot serialize uninitialized Pointwise")
	}
	return serializer.SerializeAny(
		serializer.Int(p.InDepth),
		&anyvecsave.S{Vector: p.Weights.Vector},
		&anyvecsave.S{Vector: optionalVector(p.Weights.Vector.Creator(), p.Biases)},
	)
}

// optionalVector returns the vector of v, or an empty
// vector if v is nil.
func optionalVector(c anyvec.Creator, v *anydiff.Var) anyvec.Vector {
	if v == nil {
		return c.MakeVector(0)
	}
	return v.Vector
}
