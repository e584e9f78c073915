// Package bytenet implements the ByteNet architecture from
// "Neural Machine Translation in Linear Time", along with
// a reader wrapper and trainer for it.
//
// Sequences are packed row-major, depth-minor: a batch of
// n sequences of length L with D channels is a vector of
// n*L*D components.
// The sequence length is inferred from the input size, so
// every sequence in a batch must have the same length.
package bytenet

import (
	"fmt"
	"sync"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var p Padding
	serializer.RegisterTypedDeserializer(p.SerializerType(), DeserializePadding)
}

// A Padding layer adds zeros to the start and end of
// every sequence in a batch.
type Padding struct {
	Depth int
	Left  int
	Right int

	mapperLock sync.Mutex
	mappers    map[paddingShape]anyvec.Mapper
}

type paddingShape struct {
	Batch  int
	SeqLen int
}

// DeserializePadding deserializes a Padding.
func DeserializePadding(d []byte) (*Padding, error) {
	var depth, left, right serializer.Int
	if err := serializer.DeserializeAny(d, &depth, &left, &right); err != nil {
		return nil, essentials.AddCtx("deserialize Padding", err)
	}
	return &Padding{Depth: int(depth), Left: int(left), Right: int(right)}, nil
}

// Apply applies the layer.
func (p *Padding) Apply(in anydiff.Res, batch int) anydiff.Res {
	seqLen := seqLength(in, batch, p.Depth)
	if p.Left == 0 && p.Right == 0 {
		return in
	}
	c := in.Output().Creator()
	outLen := batch * (seqLen + p.Left + p.Right) * p.Depth
	mapper := p.mapper(c, batch, seqLen, outLen)
	out := c.MakeVector(outLen)
	mapper.MapTranspose(in.Output(), out)
	return &paddingRes{
		In:     in,
		Mapper: mapper,
		OutVec: out,
	}
}

// SerializerType returns the unique ID used to serialize
// a Padding with the serializer package.
func (p *Padding) SerializerType() string {
	return "github.com/py4/SFUTranslate/bytenet.Padding"
}

// Serialize serializes a Padding.
func (p *Padding) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		serializer.Int(p.Depth),
		serializer.Int(p.Left),
		serializer.Int(p.Right),
	)
}

// mapper returns a mapper from padded batches to their
// unpadded contents.
func (p *Padding) mapper(c anyvec.Creator, batch, seqLen, outLen int) anyvec.Mapper {
	p.mapperLock.Lock()
	defer p.mapperLock.Unlock()
	shape := paddingShape{Batch: batch, SeqLen: seqLen}
	if m, ok := p.mappers[shape]; ok && m.Creator() == c {
		return m
	}
	if p.mappers == nil {
		p.mappers = map[paddingShape]anyvec.Mapper{}
	}

	newLen := seqLen + p.Left + p.Right
	table := make([]int, 0, batch*seqLen*p.Depth)
	for i := 0; i < batch; i++ {
		for t := 0; t < seqLen; t++ {
			offset := (i*newLen + t + p.Left) * p.Depth
			for z := 0; z < p.Depth; z++ {
				table = append(table, offset+z)
			}
		}
	}
	m := c.MakeMapper(outLen, table)
	p.mappers[shape] = m
	return m
}

type paddingRes struct {
	In     anydiff.Res
	Mapper anyvec.Mapper
	OutVec anyvec.Vector
}

func (p *paddingRes) Output() anyvec.Vector {
	return p.OutVec
}

func (p *paddingRes) Vars() anydiff.VarSet {
	return p.In.Vars()
}

func (p *paddingRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	down := u.Creator().MakeVector(p.In.Output().Len())
	p.Mapper.Map(u, down)
	p.In.Propagate(down, g)
}

// seqLength computes the length of the sequences in a
// packed batch.
func seqLength(in anydiff.Res, batch, depth int) int {
	n := in.Output().Len()
	if batch == 0 || depth == 0 {
		if n != 0 {
			panic(fmt.Sprintf("input length %d for empty batch", n))
		}
		return 0
	}
	if n%(batch*depth) != 0 {
		panic(fmt.Sprintf("input length %d not divisible by batch %d * depth %d",
			n, batch, depth))
	}
	return n / (batch * depth)
}
