package bytenet

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

const defaultINStabilizer = 1e-5

func init() {
	var n InstanceNorm
	serializer.RegisterTypedDeserializer(n.SerializerType(), DeserializeInstanceNorm)
}

// InstanceNorm normalizes every channel of every sequence
// to zero mean and unit variance over the sequence's
// positions, then applies a learned affine transform.
//
// Unlike batch normalization, statistics are never shared
// between the sequences of a batch.
type InstanceNorm struct {
	Depth int

	Scalers *anydiff.Var
	Biases  *anydiff.Var

	// Stabilizer is added to variances to keep them from
	// being 0.
	//
	// If it is 0, a default is used.
	Stabilizer float64
}

// DeserializeInstanceNorm deserializes an InstanceNorm.
func DeserializeInstanceNorm(d []byte) (*InstanceNorm, error) {
	var s, b *anyvecsave.S
	var stab serializer.Float64
	if err := serializer.DeserializeAny(d, &s, &b, &stab); err != nil {
		return nil, essentials.AddCtx("deserialize InstanceNorm", err)
	}
	return &InstanceNorm{
		Depth:      s.Vector.Len(),
		Scalers:    anydiff.NewVar(s.Vector),
		Biases:     anydiff.NewVar(b.Vector),
		Stabilizer: float64(stab),
	}, nil
}

// NewInstanceNorm creates an InstanceNorm with an identity
// affine transform.
func NewInstanceNorm(c anyvec.Creator, depth int) *InstanceNorm {
	oneScaler := c.MakeVector(depth)
	oneScaler.AddScalar(c.MakeNumeric(1))
	return &InstanceNorm{
		Depth:   depth,
		Scalers: anydiff.NewVar(oneScaler),
		Biases:  anydiff.NewVar(c.MakeVector(depth)),
	}
}

// Apply applies the layer to a batch of sequences.
func (n *InstanceNorm) Apply(in anydiff.Res, batch int) anydiff.Res {
	if seqLength(in, batch, n.Depth) == 0 {
		return in
	}
	sampleSize := in.Output().Len() / batch
	return anydiff.Pool(in, func(in anydiff.Res) anydiff.Res {
		outs := make([]anydiff.Res, batch)
		for i := range outs {
			sample := anydiff.Slice(in, i*sampleSize, (i+1)*sampleSize)
			outs[i] = n.normalize(sample)
		}
		return anydiff.Concat(outs...)
	})
}

// Parameters returns a slice containing the scales and
// biases, in that order.
func (n *InstanceNorm) Parameters() []*anydiff.Var {
	return []*anydiff.Var{n.Scalers, n.Biases}
}

// SerializerType returns the unique ID used to serialize
// an InstanceNorm with the serializer package.
func (n *InstanceNorm) SerializerType() string {
	return "github.com/py4/SFUTranslate/bytenet.InstanceNorm"
}

// Serialize serializes the layer.
func (n *InstanceNorm) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		&anyvecsave.S{Vector: n.Scalers.Vector},
		&anyvecsave.S{Vector: n.Biases.Vector},
		serializer.Float64(n.Stabilizer),
	)
}

func (n *InstanceNorm) normalize(sample anydiff.Res) anydiff.Res {
	size := sample.Output().Len()
	if size%n.Depth != 0 {
		panic("sequence size must be divisible by depth")
	}
	positions := size / n.Depth
	return anydiff.Pool(sample, func(in anydiff.Res) anydiff.Res {
		c := in.Output().Creator()
		invCount := c.MakeNumeric(1 / float64(positions))

		mean := anydiff.Scale(channelSums(in, positions, n.Depth), invCount)
		secondMoment := anydiff.Scale(channelSums(anydiff.Square(in), positions, n.Depth),
			invCount)
		return anydiff.Pool(mean, func(mean anydiff.Res) anydiff.Res {
			variance := anydiff.Sub(secondMoment, anydiff.Square(mean))
			variance = anydiff.AddScalar(variance, c.MakeNumeric(n.stabilizer()))
			normalizer := anydiff.Pow(variance, c.MakeNumeric(-0.5))

			totalScaler := anydiff.Mul(n.Scalers, normalizer)
			return anydiff.Pool(totalScaler, func(totalScaler anydiff.Res) anydiff.Res {
				shift := anydiff.Sub(n.Biases, anydiff.Mul(mean, totalScaler))
				return anydiff.ScaleAddRepeated(in, totalScaler, shift)
			})
		})
	})
}

// channelSums sums a (positions x depth) sequence over its
// positions, producing one value per channel.
func channelSums(in anydiff.Res, positions, depth int) anydiff.Res {
	return anydiff.SumRows(&anydiff.Matrix{
		Data: in,
		Rows: positions,
		Cols: depth,
	})
}

func (n *InstanceNorm) stabilizer() float64 {
	if n.Stabilizer == 0 {
		return defaultINStabilizer
	}
	return n.Stabilizer
}
