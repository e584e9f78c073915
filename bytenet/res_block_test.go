package bytenet

import (
	"reflect"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/anyvec/anyvec64"
	"github.com/unixpickle/serializer"
)

func TestPadAmounts(t *testing.T) {
	for _, k := range []int{1, 3, 5, 7} {
		for _, r := range []int{1, 2, 3, 4, 16} {
			p := SamePad(k, r)
			if p != r*(k-1) {
				t.Errorf("k=%d r=%d: expected pad %d but got %d", k, r, r*(k-1), p)
			}
			left, right := PadAmounts(k, r, true)
			if left != p || right != 0 {
				t.Errorf("k=%d r=%d: bad causal padding (%d, %d)", k, r, left, right)
			}
			left, right = PadAmounts(k, r, false)
			if left+right != p || left-right != p%2 {
				t.Errorf("k=%d r=%d: bad same padding (%d, %d)", k, r, left, right)
			}
		}
	}
	if l, r := PadAmounts(2, 3, false); l != 2 || r != 1 {
		t.Errorf("odd padding should favor the left, got (%d, %d)", l, r)
	}
}

func TestDilations(t *testing.T) {
	cases := map[int][]int{
		16: {1, 2, 4, 8, 16},
		20: {1, 2, 4, 8, 16},
		1:  {1},
		0:  nil,
	}
	for maxR, expected := range cases {
		if actual := Dilations(maxR); !reflect.DeepEqual(actual, expected) {
			t.Errorf("maxR=%d: expected %v but got %v", maxR, expected, actual)
		}
	}
	if last := Dilations(1 << 20); last[len(last)-1] != 1<<14 {
		t.Errorf("dilations should stop at %d", 1<<14)
	}
}

func TestResBlockSetStructure(t *testing.T) {
	set := NewResBlockSet(anyvec32.CurrentCreator(), 3, 16, 3, true)
	var dilations []int
	for _, b := range set.Blocks {
		dilations = append(dilations, b.Dilation)
		if !b.Causal || b.Pad.Right != 0 || b.Pad.Left != 2*b.Dilation {
			t.Errorf("dilation %d: unexpected padding %+v", b.Dilation, b.Pad)
		}
		if b.Conv.Biases != nil || b.Reduce.Biases != nil || b.Expand.Biases != nil {
			t.Error("blocks in a set should not use biases")
		}
	}
	if !reflect.DeepEqual(dilations, []int{1, 2, 4, 8, 16}) {
		t.Errorf("unexpected dilations: %v", dilations)
	}
	if len(set.Parameters()) != 5*9 {
		t.Errorf("unexpected parameter count: %d", len(set.Parameters()))
	}
}

func TestResBlockSetInvalid(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewResBlockSet(anyvec32.CurrentCreator(), 3, 0, 3, false)
}

func TestResBlockSetShape(t *testing.T) {
	c := anyvec32.CurrentCreator()
	for _, causal := range []bool{false, true} {
		set := NewResBlockSet(c, 3, 8, 3, causal)
		in := c.MakeVector(2 * 7 * 6)
		anyvec.Rand(in, anyvec.Normal, nil)
		out := set.Apply(anydiff.NewConst(in), 2).Output()
		if out.Len() != in.Len() {
			t.Errorf("causal=%v: expected length %d but got %d", causal, in.Len(), out.Len())
		}
	}
}

func TestResBlockProp(t *testing.T) {
	c := anyvec64.CurrentCreator()
	for _, causal := range []bool{false, true} {
		block := NewResBlock(c, 2, 2, 3, causal, true)
		inVar := anydiff.NewVar(c.MakeVector(2 * 5 * 4))
		anyvec.Rand(inVar.Vector, anyvec.Normal, nil)
		checker := anydifftest.ResChecker{
			F: func() anydiff.Res {
				return block.Apply(inVar, 2)
			},
			V:     append([]*anydiff.Var{inVar}, block.Parameters()...),
			Delta: 1e-6,
			Prec:  1e-3,
		}
		checker.FullCheck(t)
	}
}

func TestResBlockSerialize(t *testing.T) {
	set := NewResBlockSet(anyvec32.CurrentCreator(), 2, 4, 3, true)
	data, err := serializer.SerializeAny(set)
	if err != nil {
		t.Fatal(err)
	}
	var decoded *ResBlockSet
	if err := serializer.DeserializeAny(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(decoded, set) {
		t.Error("sets differ")
	}
}
