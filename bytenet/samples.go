package bytenet

import (
	"fmt"
	"io"

	translate "github.com/py4/SFUTranslate"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/essentials"
)

// A Sample is a padded source-target pair.
type Sample struct {
	Source []int
	Target []int
}

// A SampleList is an anysgd.SampleList that produces
// ByteNet samples.
type SampleList interface {
	anysgd.SampleList

	GetSample(idx int) (*Sample, error)
}

// A SliceSampleList is a concrete SampleList with
// predetermined samples.
type SliceSampleList []*Sample

// ReadSamples reads up to max samples from r, or every
// sample if max is 0.
//
// The reader should be allocated, and it should produce
// equal-length (source, target) pairs, as a Wrapper does.
func ReadSamples(r translate.Reader, max int) (SliceSampleList, error) {
	var res SliceSampleList
	for max == 0 || len(res) < max {
		inst, err := r.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return res, essentials.AddCtx("read samples", err)
		}
		if len(inst) < 2 {
			return res, fmt.Errorf("read samples: expected source and target but got %d parts",
				len(inst))
		}
		res = append(res, &Sample{Source: inst[0].Tokens, Target: inst[1].Tokens})
	}
	return res, nil
}

// Len returns the number of samples.
func (s SliceSampleList) Len() int {
	return len(s)
}

// Swap swaps two samples.
func (s SliceSampleList) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

// Slice copies a sub-slice of the list.
func (s SliceSampleList) Slice(i, j int) anysgd.SampleList {
	return append(SliceSampleList{}, s[i:j]...)
}

// GetSample returns the sample at the index.
func (s SliceSampleList) GetSample(idx int) (*Sample, error) {
	return s[idx], nil
}
