package bytenet

import (
	"fmt"
	"log"
	"math"

	translate "github.com/py4/SFUTranslate"
	"github.com/unixpickle/essentials"
)

// Default parameters for a Wrapper.
const (
	DefaultRelativeLength = 1.2
	DefaultMaxRejects     = 1000
)

const (
	minLengthRatio   = 0.3
	maxRatioFraction = 0.98

	// lengthEpsilon absorbs rounding error when computing
	// the number of padding tokens, so that 5*(1.2-1)
	// yields one token rather than zero.
	lengthEpsilon = 1e-9
)

// RejectLimitError is returned by Wrapper.Next when too
// many consecutive instances fall outside the accepted
// length ratio.
type RejectLimitError struct {
	Rejects int
}

// Error returns an error message.
func (r *RejectLimitError) Error() string {
	return fmt.Sprintf("bytenet wrapper: %d consecutive instances rejected", r.Rejects)
}

// Wrapper decorates a translate.Reader so that sources and
// targets are padded to a common length.
//
// Following Equation (2) of the ByteNet paper, the target
// is expected to be about A*len(source)+B tokens long.
// The source is padded to that length and then whichever
// sequence is shorter is padded to match the other.
// Instances whose padded length ratio falls outside
// (0.3, A*0.98] are dropped.
type Wrapper struct {
	// A is the relative length of the target sequence.
	// If it is 0, DefaultRelativeLength is used.
	A float64

	// B is the target sequence length intercept.
	B float64

	// MaxRejects bounds the number of consecutive rejected
	// instances before Next gives up.
	// If it is 0, DefaultMaxRejects is used.
	MaxRejects int

	reader   translate.Reader
	itemSize int
	srcPad   int
	tgtPad   int
	rejected int
}

// NewWrapper creates a Wrapper around r.
//
// It fails with a *translate.UnsupportedSchemaError if r
// yields more than translate.MaxInstanceParts parts.
func NewWrapper(r translate.Reader) (*Wrapper, error) {
	if err := translate.CheckSchema("bytenet wrapper", r); err != nil {
		return nil, err
	}
	w := &Wrapper{
		reader:   r,
		itemSize: len(r.Schema()),
		srcPad:   r.SourceVocabulary().PadIndex(),
	}
	if w.itemSize > 1 {
		w.tgtPad = r.TargetVocabulary().PadIndex()
	}
	return w, nil
}

// Next reads instances from the wrapped reader until one
// is accepted, and returns its padded form.
//
// Errors from the wrapped reader, including io.EOF, are
// returned as-is.
func (w *Wrapper) Next() (translate.Instance, error) {
	var rejects int
	for {
		inst, err := w.reader.Next()
		if err != nil {
			return nil, err
		}
		if w.itemSize == 1 {
			return inst, nil
		}
		src, tgt, ok := w.Pad(inst[0].Tokens, inst[1].Tokens)
		if ok {
			res := translate.Instance{{Tokens: src}, {Tokens: tgt}}
			return append(res, inst[2:]...), nil
		}
		w.rejected++
		rejects++
		if rejects >= w.maxRejects() {
			return nil, &RejectLimitError{Rejects: rejects}
		}
	}
}

// Pad pads a source and target sequence to the same
// length and reports whether the pair is acceptable.
// The arguments are not modified.
func (w *Wrapper) Pad(src, tgt []int) (srcPadded, tgtPadded []int, ok bool) {
	extra := int(math.Floor(float64(len(src))*(w.a()-1) + w.B + lengthEpsilon))
	srcPadded = padRight(src, w.srcPad, len(src)+essentials.MaxInt(extra, 0))
	tgtPadded = padRight(tgt, w.tgtPad, len(srcPadded))
	srcPadded = padRight(srcPadded, w.srcPad, len(tgtPadded))

	if len(srcPadded) == 0 {
		return srcPadded, tgtPadded, false
	}
	ratio := float64(len(tgtPadded)) / float64(len(srcPadded))
	ok = ratio > minLengthRatio && ratio <= w.a()*maxRatioFraction
	return
}

// Rejected returns the total number of instances dropped
// by Next so far.
func (w *Wrapper) Rejected() int {
	return w.rejected
}

// Get is equivalent to Next.
// The index is ignored, since the underlying readers are
// sequential.
func (w *Wrapper) Get(idx int) (translate.Instance, error) {
	return w.Next()
}

// Schema returns the wrapped reader's schema, which the
// wrapper preserves.
func (w *Wrapper) Schema() []translate.PartType {
	return w.reader.Schema()
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
		log.Println("bytenet wrapper: no reader to load shared data into")
		return nil
	}
	if err := w.reader.LoadSharedData(data); err != nil {
		return essentials.AddCtx("bytenet wrapper", err)
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

func (w *Wrapper) a() float64 {
	if w.A == 0 {
		return DefaultRelativeLength
	}
	return w.A
}

func (w *Wrapper) maxRejects() int {
	if w.MaxRejects == 0 {
		return DefaultMaxRejects
	}
	return w.MaxRejects
}

// padRight returns a copy of seq padded with pad up to
// length.
func padRight(seq []int, pad, length int) []int {
	res := append(make([]int, 0, essentials.MaxInt(length, len(seq))), seq...)
	for len(res) < length {
		res = append(res, pad)
	}
	return res
}
