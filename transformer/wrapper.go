// Package transformer adapts dataset readers for
// Transformer models by adding attention masks to every
// instance.
package transformer

import (
	"log"

	translate "github.com/py4/SFUTranslate"
	"github.com/unixpickle/essentials"
)

// Wrapper decorates a translate.Reader with Transformer
// attention masks.
//
// For a reader which yields only source sequences, each
// instance becomes (source, source mask).
// For a reader which yields (source, target), each
// instance becomes
//
//	(source, target input, target output, source mask, target mask)
//
// where the target input starts with the begin token and
// the target output is the input shifted by one.
type Wrapper struct {
	reader   translate.Reader
	itemSize int

	srcPad   int
	tgtPad   int
	tgtBegin int
}

// NewWrapper creates a Wrapper around r.
//
// It fails with a *translate.UnsupportedSchemaError if r
// yields more than translate.MaxInstanceParts parts.
func NewWrapper(r translate.Reader) (*Wrapper, error) {
	if err := translate.CheckSchema("transformer wrapper", r); err != nil {
		return nil, err
	}
	w := &Wrapper{
		reader:   r,
		itemSize: len(r.Schema()),
		srcPad:   r.SourceVocabulary().PadIndex(),
	}
	if w.itemSize > 1 {
		w.tgtPad = r.TargetVocabulary().PadIndex()
		w.tgtBegin = r.TargetVocabulary().BeginIndex()
	}
	return w, nil
}

// Next reads the next instance from the wrapped reader and
// adds the masks to it.
func (w *Wrapper) Next() (translate.Instance, error) {
	inst, err := w.reader.Next()
	if err != nil {
		return nil, err
	}
	if w.itemSize == 1 {
		src := inst[0].Tokens
		return translate.Instance{
			inst[0],
			{Mask: [][]uint8{SourceMask(src, w.srcPad)}},
		}, nil
	}

	src := inst[0].Tokens
	tgt := append([]int{w.tgtBegin}, inst[1].Tokens...)
	tgtIn := append([]int{}, tgt[:len(tgt)-1]...)
	tgtOut := append([]int{}, tgt[1:]...)

	res := translate.Instance{
		inst[0],
		{Tokens: tgtIn},
		{Tokens: tgtOut},
	}
	res = append(res, inst[2:]...)
	return append(res,
		translate.Part{Mask: [][]uint8{SourceMask(src, w.srcPad)}},
		translate.Part{Mask: TargetMask(tgtIn, w.tgtPad)},
	), nil
}

// Get is equivalent to Next.
// The index is ignored, since the underlying readers are
// sequential.
func (w *Wrapper) Get(idx int) (translate.Instance, error) {
	return w.Next()
}

// Schema returns the part types of the instances produced
// by Next.
func (w *Wrapper) Schema() []translate.PartType {
	scm := w.reader.Schema()
	if w.itemSize == 1 {
		return []translate.PartType{scm[0], translate.TransformerSrcMask}
	}
	res := []translate.PartType{scm[0], scm[1], scm[1]}
	res = append(res, scm[2:]...)
	return append(res, translate.TransformerSrcMask, translate.TransformerTgtMask)
}

// Len returns the length of the wrapped reader.
func (w *Wrapper) Len() int {
	return w.reader.Len()
}

// SourceVocabulary returns the wrapped reader's source
// vocabulary.
func (w *Wrapper) SourceVocabulary() translate.Vocabulary {
	return w.reader.SourceVocabulary()
}

// TargetVocabulary returns the wrapped reader's target
// vocabulary.
func (w *Wrapper) TargetVocabulary() translate.Vocabulary {
	return w.reader.TargetVocabulary()
}

// Granularity returns the wrapped reader's granularity.
func (w *Wrapper) Granularity() (src, tgt translate.Granularity) {
	return w.reader.Granularity()
}

// Config returns the wrapped reader's configuration.
func (w *Wrapper) Config() (interface{}, string) {
	return w.reader.Config()
}

// SharedData returns the wrapped reader's shared data.
func (w *Wrapper) SharedData() interface{} {
	return w.reader.SharedData()
}

// LoadSharedData passes data to the wrapped reader.
// A nil data argument is ignored.
func (w *Wrapper) LoadSharedData(data interface{}) error {
	if data == nil {
		return nil
	}
	if w.reader == nil {
		log.Println("transformer wrapper: no reader to load shared data into")
		return nil
	}
	if err := w.reader.LoadSharedData(data); err != nil {
		return essentials.AddCtx("transformer wrapper", err)
	}
	return nil
}

// Allocate allocates the wrapped reader.
func (w *Wrapper) Allocate() error {
	return w.reader.Allocate()
}

// Deallocate deallocates the wrapped reader.
func (w *Wrapper) Deallocate() error {
	return w.reader.Deallocate()
}

// MaxSentenceLength returns the wrapped reader's maximum
// sentence length.
func (w *Wrapper) MaxSentenceLength() int {
	return w.reader.MaxSentenceLength()
}
