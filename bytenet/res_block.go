package bytenet

import (
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyconv"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var r ResBlock
	serializer.RegisterTypedDeserializer(r.SerializerType(), DeserializeResBlock)
}

// SamePad returns the total padding needed to keep the
// sequence length unchanged through a stride-1 convolution
// with kernel size k and dilation r.
func SamePad(k, r int) int {
	return int(math.Ceil(float64(r * (k - 1))))
}

// PadAmounts splits SamePad(k, r) between the two ends of
// a sequence.
//
// Causal padding goes entirely on the left, so that no
// output depends on a later input.
// Otherwise, the padding is split evenly with any extra
// unit on the left.
func PadAmounts(k, r int, causal bool) (left, right int) {
	p := SamePad(k, r)
	if causal {
		return p, 0
	}
	return p/2 + p%2, p / 2
}

// ResBlock is a single ByteNet residual block.
//
// The block maps 2*Inner channels to 2*Inner channels,
// passing through a bottleneck of Inner channels in which
// the dilated (and possibly masked) convolution happens.
type ResBlock struct {
	Inner      int
	Dilation   int
	KernelSize int
	Causal     bool

	Norm1  *InstanceNorm
	Reduce *Pointwise
	Norm2  *InstanceNorm
	Pad    *Padding
	Conv   *DilatedConv
	Norm3  *InstanceNorm
	Expand *Pointwise
}

// DeserializeResBlock deserializes a ResBlock.
func DeserializeResBlock(d []byte) (*ResBlock, error) {
	var inner, dilation, kernel serializer.Int
	var res ResBlock
	err := serializer.DeserializeAny(d, &inner, &dilation, &kernel, &res.Causal,
		&res.Norm1, &res.Reduce, &res.Norm2, &res.Pad, &res.Conv, &res.Norm3,
		&res.Expand)
	if err != nil {
		return nil, essentials.AddCtx("deserialize ResBlock", err)
	}
	res.Inner = int(inner)
	res.Dilation = int(dilation)
	res.KernelSize = int(kernel)
	return &res, nil
}

// NewResBlock creates a randomized ResBlock.
//
// The inner size d and dilation r must be positive, and
// the kernel size k must be odd.
func NewResBlock(c anyvec.Creator, d, r, k int, causal, useBias bool) *ResBlock {
	left, right := PadAmounts(k, r, causal)
	return &ResBlock{
		Inner:      d,
		Dilation:   r,
		KernelSize: k,
		Causal:     causal,

		Norm1:  NewInstanceNorm(c, 2*d),
		Reduce: NewPointwise(c, 2*d, d, useBias),
		Norm2:  NewInstanceNorm(c, d),
		Pad:    &Padding{Depth: d, Left: left, Right: right},
		Conv:   NewDilatedConv(c, d, d, k, r, useBias),
		Norm3:  NewInstanceNorm(c, d),
		Expand: NewPointwise(c, d, 2*d, useBias),
	}
}

// Apply applies the block and adds the result to its
// input.
func (r *ResBlock) Apply(in anydiff.Res, batch int) anydiff.Res {
	residual := &anyconv.Residual{Layer: r.layers()}
	return residual.Apply(in, batch)
}

// Parameters returns the parameters of every layer in
// the block, in order.
func (r *ResBlock) Parameters() []*anydiff.Var {
	return r.layers().Parameters()
}

// SerializerType returns the unique ID used to serialize
// a ResBlock with the serializer package.
func (r *ResBlock) SerializerType() string {
	return "github.com/py4/SFUTranslate/bytenet.ResBlock"
}

// Serialize serializes the block.
func (r *ResBlock) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		serializer.Int(r.Inner),
		serializer.Int(r.Dilation),
		serializer.Int(r.KernelSize),
		r.Causal,
		r.Norm1,
		r.Reduce,
		r.Norm2,
		r.Pad,
		r.Conv,
		r.Norm3,
		r.Expand,
	)
}

func (r *ResBlock) layers() anynet.Net {
	return anynet.Net{
		r.Norm1,
		anynet.ReLU,
		r.Reduce,
		r.Norm2,
		anynet.ReLU,
		r.Pad,
		r.Conv,
		r.Norm3,
		anynet.ReLU,
		r.Expand,
	}
}
