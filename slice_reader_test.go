package translate

import (
	"io"
	"reflect"
	"testing"
)

func TestSliceReaderNext(t *testing.T) {
	r := &SliceReader{
		Instances: []Instance{
			{{Tokens: []int{4, 5}}, {Tokens: []int{6}}},
			{{Tokens: []int{7}}, {Tokens: []int{8, 9, 10}}},
		},
		Parts: []PartType{SourceSequence, TargetSequence},
	}
	if _, err := r.Next(); err == nil {
		t.Fatal("expected error before Allocate")
	}
	if err := r.Allocate(); err != nil {
		t.Fatal(err)
	}
	first, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	first[0].Tokens[0] = 100
	if r.Instances[0][0].Tokens[0] != 4 {
		t.Error("instance was not copied")
	}
	second, err := r.Get(17)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(second, r.Instances[1]) {
		t.Errorf("unexpected instance: %v", second)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("expected io.EOF but got %v", err)
	}
	if r.MaxSentenceLength() != 3 {
		t.Errorf("unexpected max length: %d", r.MaxSentenceLength())
	}

	r.Loop = true
	inst, err := r.Next()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(inst, r.Instances[0]) {
		t.Errorf("loop did not restart: %v", inst)
	}
}

func TestSliceReaderSharedData(t *testing.T) {
	src := NewVocab([]string{"a"})
	tgt := NewVocab([]string{"b", "c"})
	r1 := &SliceReader{SourceVocab: src, TargetVocab: tgt}
	r2 := &SliceReader{}
	if err := r2.LoadSharedData(r1.SharedData()); err != nil {
		t.Fatal(err)
	}
	if r2.SourceVocabulary() != src || r2.TargetVocabulary() != tgt {
		t.Error("vocabularies were not shared")
	}
	if err := r2.LoadSharedData([]Vocabulary{src}); err == nil {
		t.Error("expected error for malformed shared data")
	}
}

func TestCheckSchema(t *testing.T) {
	r := &SliceReader{Parts: []PartType{SourceSequence, TargetSequence}}
	if err := CheckSchema("test", r); err != nil {
		t.Fatal(err)
	}
	r.Parts = append(r.Parts, TargetSequence)
	err := CheckSchema("test", r)
	if e, ok := err.(*UnsupportedSchemaError); !ok || e.Parts != 3 {
		t.Fatalf("unexpected error: %v", err)
	}
	r.Parts = nil
	err = CheckSchema("test", r)
	if e, ok := err.(*UnsupportedSchemaError); !ok || e.Parts != 0 {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVocab(t *testing.T) {
	v := NewVocab([]string{"hello", "world", "hello"})
	if v.Len() != 6 {
		t.Fatalf("unexpected length: %d", v.Len())
	}
	if v.PadIndex() != 0 || v.BeginIndex() != 1 || v.EndIndex() != 2 {
		t.Error("unexpected special indices")
	}
	encoded := v.Encode([]string{"world", "unseen"})
	if !reflect.DeepEqual(encoded, []int{5, 3}) {
		t.Errorf("unexpected encoding: %v", encoded)
	}
	if !reflect.DeepEqual(v.Decode(encoded), []string{"world", UnkToken}) {
		t.Errorf("unexpected decoding: %v", v.Decode(encoded))
	}
	if !reflect.DeepEqual(v.Tokens(), []string{"hello", "world"}) {
		t.Errorf("unexpected tokens: %v", v.Tokens())
	}
}
