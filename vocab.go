package translate

import "github.com/unixpickle/essentials"

// Default special tokens for a Vocab.
const (
	PadToken   = "<pad>"
	BeginToken = "<s>"
	EndToken   = "</s>"
	UnkToken   = "<unk>"
)

// Vocab is a simple in-memory Vocabulary.
//
// Indices 0 through 3 are reserved for PadToken,
// BeginToken, EndToken and UnkToken.
type Vocab struct {
	tokens  []string
	indices map[string]int
}

// NewVocab creates a Vocab containing the special tokens
// followed by the given tokens.
// Duplicate tokens are ignored.
func NewVocab(tokens []string) *Vocab {
	v := &Vocab{indices: map[string]int{}}
	for _, t := range []string{PadToken, BeginToken, EndToken, UnkToken} {
		v.add(t)
	}
	for _, t := range tokens {
		v.add(t)
	}
	return v
}

// Len returns the number of tokens.
func (v *Vocab) Len() int {
	return len(v.tokens)
}

// PadIndex returns the index of PadToken.
func (v *Vocab) PadIndex() int {
	return v.indices[PadToken]
}

// BeginIndex returns the index of BeginToken.
func (v *Vocab) BeginIndex() int {
	return v.indices[BeginToken]
}

// EndIndex returns the index of EndToken.
func (v *Vocab) EndIndex() int {
	return v.indices[EndToken]
}

// Index returns the index of a token, or the index of
// UnkToken for unknown tokens.
func (v *Vocab) Index(token string) int {
	if idx, ok := v.indices[token]; ok {
		return idx
	}
	return v.indices[UnkToken]
}

// Token returns the token at an index.
func (v *Vocab) Token(idx int) string {
	if idx < 0 || idx >= len(v.tokens) {
		return UnkToken
	}
	return v.tokens[idx]
}

// Encode converts tokens to indices.
func (v *Vocab) Encode(tokens []string) []int {
	res := make([]int, len(tokens))
	for i, t := range tokens {
		res[i] = v.Index(t)
	}
	return res
}

// Decode converts indices to tokens.
func (v *Vocab) Decode(indices []int) []string {
	res := make([]string, len(indices))
	for i, idx := range indices {
		res[i] = v.Token(idx)
	}
	return res
}

// Tokens returns the non-special tokens, in index order.
func (v *Vocab) Tokens() []string {
	return append([]string{}, v.tokens[essentials.MinInt(4, len(v.tokens)):]...)
}

func (v *Vocab) add(t string) {
	if _, ok := v.indices[t]; ok {
		return
	}
	v.indices[t] = len(v.tokens)
	v.tokens = append(v.tokens, t)
}
