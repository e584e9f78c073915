// Package translate defines the dataset reader contract
// shared by the model-specific reader wrappers.
//
// A Reader produces Instances, where each Instance is an
// ordered list of Parts described by the Reader's schema.
// Wrappers in sub-packages decorate a Reader to add the
// extra parts a particular architecture needs.
package translate

import "fmt"

// MaxInstanceParts is the largest schema a reader wrapper
// can decorate.
const MaxInstanceParts = 2

// A PartType tags the role of one part of an Instance.
type PartType int

// These are the part types produced by readers and
// wrappers.
const (
	SourceSequence PartType = iota
	TargetSequence
	TransformerSrcMask
	TransformerTgtMask
)

// String returns a human-readable name for the type.
func (p PartType) String() string {
	switch p {
	case SourceSequence:
		return "SourceSequence"
	case TargetSequence:
		return "TargetSequence"
	case TransformerSrcMask:
		return "TransformerSrcMask"
	case TransformerTgtMask:
		return "TransformerTgtMask"
	default:
		return fmt.Sprintf("PartType(%d)", int(p))
	}
}

// A Part is one component of an Instance.
// Sequence parts use Tokens, mask parts use Mask.
type Part struct {
	Tokens []int
	Mask   [][]uint8
}

// An Instance is a single training example.
type Instance []Part

// Granularity describes how a side of the corpus was
// split into tokens.
type Granularity int

const (
	WordGranularity Granularity = iota
	SubWordGranularity
	CharGranularity
)

// A Vocabulary maps tokens to indices.
type Vocabulary interface {
	Len() int
	PadIndex() int
	BeginIndex() int
}

// A Reader produces Instances one at a time.
//
// Next returns io.EOF once the underlying data is
// exhausted.
// Get is not random access; implementations may treat it
// as a call to Next.
type Reader interface {
	Next() (Instance, error)
	Get(idx int) (Instance, error)
	Len() int

	Schema() []PartType
	SourceVocabulary() Vocabulary
	TargetVocabulary() Vocabulary

	// Granularity returns the tokenization of the source
	// and target sides.
	Granularity() (src, tgt Granularity)

	// Config returns the opaque configuration and reader
	// type the reader was created with.
	Config() (configs interface{}, readerType string)

	// SharedData returns data (e.g. vocabulary statistics)
	// to be handed to other readers over the same corpus.
	SharedData() interface{}
	LoadSharedData(data interface{}) error

	// Allocate and Deallocate bracket an iteration session.
	Allocate() error
	Deallocate() error

	MaxSentenceLength() int
}

// CheckSchema returns an *UnsupportedSchemaError if r
// has no parts or more parts than a wrapper supports.
func CheckSchema(wrapper string, r Reader) error {
	if n := len(r.Schema()); n == 0 || n > MaxInstanceParts {
		return &UnsupportedSchemaError{Wrapper: wrapper, Parts: n}
	}
	return nil
}
