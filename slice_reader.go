package translate

import (
	"errors"
	"io"
)

// SliceReader is a Reader over in-memory instances.
//
// It is primarily useful for tests and small demos.
// A SliceReader must be allocated before it is read.
type SliceReader struct {
	Instances []Instance
	Parts     []PartType

	SourceVocab Vocabulary
	TargetVocab Vocabulary

	SourceGranularity Granularity
	TargetGranularity Granularity

	Configs    interface{}
	ReaderType string

	// Shared holds the data last passed to LoadSharedData.
	Shared interface{}

	// Loop, if set, makes the reader restart from the
	// first instance instead of returning io.EOF.
	Loop bool

	allocated bool
	idx       int
}

// Next returns the next instance.
func (s *SliceReader) Next() (Instance, error) {
	if !s.allocated {
		return nil, errors.New("next instance: reader is not allocated")
	}
	if s.idx >= len(s.Instances) {
		if !s.Loop || len(s.Instances) == 0 {
			return nil, io.EOF
		}
		s.idx = 0
	}
	inst := s.Instances[s.idx]
	s.idx++
	return copyInstance(inst), nil
}

// Get is equivalent to Next.
func (s *SliceReader) Get(idx int) (Instance, error) {
	return s.Next()
}

// Len returns the number of instances.
func (s *SliceReader) Len() int {
	return len(s.Instances)
}

// Schema returns s.Parts.
func (s *SliceReader) Schema() []PartType {
	return s.Parts
}

// SourceVocabulary returns s.SourceVocab.
func (s *SliceReader) SourceVocabulary() Vocabulary {
	return s.SourceVocab
}

// TargetVocabulary returns s.TargetVocab.
func (s *SliceReader) TargetVocabulary() Vocabulary {
	return s.TargetVocab
}

// Granularity returns the source and target granularity.
func (s *SliceReader) Granularity() (src, tgt Granularity) {
	return s.SourceGranularity, s.TargetGranularity
}

// Config returns s.Configs and s.ReaderType.
func (s *SliceReader) Config() (interface{}, string) {
	return s.Configs, s.ReaderType
}

// SharedData returns the source and target vocabularies.
func (s *SliceReader) SharedData() interface{} {
	return []Vocabulary{s.SourceVocab, s.TargetVocab}
}

// LoadSharedData stores data in s.Shared.
// If data came from SharedData, the vocabularies are
// replaced as well.
func (s *SliceReader) LoadSharedData(data interface{}) error {
	s.Shared = data
	if vocabs, ok := data.([]Vocabulary); ok {
		if len(vocabs) != 2 {
			return errors.New("load shared data: expected two vocabularies")
		}
		s.SourceVocab, s.TargetVocab = vocabs[0], vocabs[1]
	}
	return nil
}

// Allocate resets the reader to its first instance.
func (s *SliceReader) Allocate() error {
	s.allocated = true
	s.idx = 0
	return nil
}

// Deallocate ends the iteration session.
func (s *SliceReader) Deallocate() error {
	s.allocated = false
	return nil
}

// Allocated reports whether the reader is allocated.
func (s *SliceReader) Allocated() bool {
	return s.allocated
}

// MaxSentenceLength returns the length of the longest
// token sequence in any instance.
func (s *SliceReader) MaxSentenceLength() int {
	var res int
	for _, inst := range s.Instances {
		for _, part := range inst {
			if len(part.Tokens) > res {
				res = len(part.Tokens)
			}
		}
	}
	return res
}

func copyInstance(inst Instance) Instance {
	res := make(Instance, len(inst))
	for i, p := range inst {
		if p.Tokens != nil {
			res[i].Tokens = append([]int{}, p.Tokens...)
		}
		if p.Mask != nil {
			res[i].Mask = make([][]uint8, len(p.Mask))
			for j, row := range p.Mask {
				res[i].Mask[j] = append([]uint8{}, row...)
			}
		}
	}
	return res
}
