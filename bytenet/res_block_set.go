package bytenet

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

// maxDilationPower bounds the dilations produced by
// Dilations to 1<<(maxDilationPower-1).
const maxDilationPower = 15

func init() {
	var r ResBlockSet
	serializer.RegisterTypedDeserializer(r.SerializerType(), DeserializeResBlockSet)
}

// Dilations returns the powers of two which do not exceed
// maxR, in increasing order.
func Dilations(maxR int) []int {
	var res []int
	for x := uint(0); x < maxDilationPower; x++ {
		if 1<<x <= maxR {
			res = append(res, 1<<x)
		}
	}
	return res
}

// A ResBlockSet is a stack of ResBlocks with exponentially
// increasing dilations.
// ByteNet encoders and decoders are made of several sets
// applied one after another.
type ResBlockSet struct {
	Blocks []*ResBlock
}

// DeserializeResBlockSet deserializes a ResBlockSet.
func DeserializeResBlockSet(d []byte) (*ResBlockSet, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, essentials.AddCtx("deserialize ResBlockSet", err)
	}
	res := &ResBlockSet{Blocks: make([]*ResBlock, len(slice))}
	for i, x := range slice {
		block, ok := x.(*ResBlock)
		if !ok {
			return nil, fmt.Errorf("deserialize ResBlockSet: not a *ResBlock: %T", x)
		}
		res.Blocks[i] = block
	}
	return res, nil
}

// NewResBlockSet creates one ResBlock for every dilation
// in Dilations(maxR).
//
// It panics if maxR is less than 1.
func NewResBlockSet(c anyvec.Creator, d, maxR, k int, causal bool) *ResBlockSet {
	if maxR < 1 {
		panic(fmt.Sprintf("invalid maximum dilation: %d", maxR))
	}
	res := &ResBlockSet{}
	for _, r := range Dilations(maxR) {
		res.Blocks = append(res.Blocks, NewResBlock(c, d, r, k, causal, false))
	}
	return res
}

// Apply applies the blocks in order.
func (r *ResBlockSet) Apply(in anydiff.Res, batch int) anydiff.Res {
	return r.net().Apply(in, batch)
}

// Parameters returns the parameters of every block.
func (r *ResBlockSet) Parameters() []*anydiff.Var {
	return r.net().Parameters()
}

// SerializerType returns the unique ID used to serialize
// a ResBlockSet with the serializer package.
func (r *ResBlockSet) SerializerType() string {
	return "github.com/py4/SFUTranslate/bytenet.ResBlockSet"
}

// Serialize serializes the blocks.
func (r *ResBlockSet) Serialize() ([]byte, error) {
	slice := make([]serializer.Serializer, len(r.Blocks))
	for i, b := range r.Blocks {
		slice[i] = b
	}
	return serializer.SerializeSlice(slice)
}

func (r *ResBlockSet) net() anynet.Net {
	res := make(anynet.Net, len(r.Blocks))
	for i, b := range r.Blocks {
		res[i] = b
	}
	return res
}
