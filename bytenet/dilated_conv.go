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
	var d DilatedConv
	serializer.RegisterTypedDeserializer(d.SerializerType(), DeserializeDilatedConv)
}

// DilatedConv is a one-dimensional convolution whose taps
// are Dilation positions apart.
//
// No padding is performed, so an input of length L yields
// an output of length L - Dilation*(KernelSize-1).
// Use a Padding layer to preserve the sequence length.
type DilatedConv struct {
	InDepth    int
	OutDepth   int
	KernelSize int
	Dilation   int

	// Filters stores one OutDepth by InDepth matrix per
	// kernel tap, starting with the leftmost tap.
	Filters *anydiff.Var

	// Biases is nil if the layer has no biases.
	Biases *anydiff.Var
}

// DeserializeDilatedConv deserializes a DilatedConv.
func DeserializeDilatedConv(d []byte) (*DilatedConv, error) {
	var inDepth, kernel, dilation serializer.Int
	var filters, biases *anyvecsave.S
	err := serializer.DeserializeAny(d, &inDepth, &kernel, &dilation, &filters, &biases)
	if err != nil {
		return nil, essentials.AddCtx("deserialize DilatedConv", err)
	}
	tapSize := int(inDepth * kernel)
	if tapSize <= 0 || filters.Vector.Len()%tapSize != 0 {
		return nil, errors.New("deserialize DilatedConv: invalid filter dimensions")
	}
	res := &DilatedConv{
		InDepth:    int(inDepth),
		OutDepth:   filters.Vector.Len() / tapSize,
		KernelSize: int(kernel),
		Dilation:   int(dilation),
		Filters:    anydiff.NewVar(filters.Vector),
	}
	if biases.Vector.Len() > 0 {
		res.Biases = anydiff.NewVar(biases.Vector)
	}
	return res, nil
}

// NewDilatedConv creates a randomized DilatedConv.
func NewDilatedConv(c anyvec.Creator, in, out, kernel, dilation int,
	useBias bool) *DilatedConv {
	res := &DilatedConv{
		InDepth:    in,
		OutDepth:   out,
		KernelSize: kernel,
		Dilation:   dilation,
		Filters:    anydiff.NewVar(c.MakeVector(kernel * in * out)),
	}
	normalizer := 1 / math.Sqrt(float64(kernel*in))
	anyvec.Rand(res.Filters.Vector, anyvec.Normal, nil)
	res.Filters.Vector.Scale(c.MakeNumeric(normalizer))
	if useBias {
		res.Biases = anydiff.NewVar(c.MakeVector(out))
	}
	return res
}

// Span returns the number of input positions covered by
// the kernel.
func (d *DilatedConv) Span() int {
	return d.Dilation*(d.KernelSize-1) + 1
}

// OutputLength returns the output sequence length for an
// input sequence length.
func (d *DilatedConv) OutputLength(inLen int) int {
	if l := inLen - d.Span() + 1; l > 0 {
		return l
	}
	return 0
}

// Apply applies the convolution to a batch of sequences.
func (d *DilatedConv) Apply(in anydiff.Res, batch int) anydiff.Res {
	inLen := seqLength(in, batch, d.InDepth)
	outLen := d.OutputLength(inLen)
	if outLen == 0 {
		return anydiff.NewConst(in.Output().Creator().MakeVector(0))
	}
	sampleSize := inLen * d.InDepth
	return anydiff.Pool(in, func(in anydiff.Res) anydiff.Res {
		outs := make([]anydiff.Res, batch)
		for i := range outs {
			sample := anydiff.Slice(in, i*sampleSize, (i+1)*sampleSize)
			outs[i] = d.applySample(sample, outLen)
		}
		res := anydiff.Concat(outs...)
		if d.Biases != nil {
			res = anydiff.AddRepeated(res, d.Biases)
		}
		return res
	})
}

// Parameters returns the filters, followed by the biases
// if there are any.
func (d *DilatedConv) Parameters() []*anydiff.Var {
	if d.Biases == nil {
		return []*anydiff.Var{d.Filters}
	}
	return []*anydiff.Var{d.Filters, d.Biases}
}

// SerializerType returns the unique ID used to serialize
// a DilatedConv with the serializer package.
func (d *DilatedConv) SerializerType() string {
	return "github.com/py4/SFUTranslate/bytenet.DilatedConv"
}

// Serialize serializes the layer.
func (d *DilatedConv) Serialize() ([]byte, error) {
	if d.Filters == nil {
		return nil, errors.New("cannot serialize uninitialized DilatedConv")
	}
	return serializer.SerializeAny(
		serializer.Int(d.InDepth),
		serializer.Int(d.KernelSize),
		serializer.Int(d.Dilation),
		&anyvecsave.S{Vector: d.Filters.Vector},
		&anyvecsave.S{Vector: optionalVector(d.Filters.Vector.Creator(), d.Biases)},
	)
}

// applySample sums, over every kernel tap, the product of
// the shifted input rows and the tap's filter matrix.
func (d *DilatedConv) applySample(sample anydiff.Res, outLen int) anydiff.Res {
	tapSize := d.InDepth * d.OutDepth
	return anydiff.Pool(sample, func(sample anydiff.Res) anydiff.Res {
		var sum anydiff.Res
		for tap := 0; tap < d.KernelSize; tap++ {
			start := tap * d.Dilation * d.InDepth
			rows := &anydiff.Matrix{
				Data: anydiff.Slice(sample, start, start+outLen*d.InDepth),
				Rows: outLen,
				Cols: d.InDepth,
			}
			filter := &anydiff.Matrix{
				Data: anydiff.Slice(d.Filters, tap*tapSize, (tap+1)*tapSize),
				Rows: d.OutDepth,
				Cols: d.InDepth,
			}
			prod := anydiff.MatMul(false, true, rows, filter).Data
			if sum == nil {
				sum = prod
			} else {
				sum = anydiff.Add(sum, prod)
			}
		}
		return sum
	})
}
