package bytenet

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/anyvec/anyvec64"
	"github.com/unixpickle/serializer"
)

func TestPaddingOutput(t *testing.T) {
	layer := &Padding{Depth: 2, Left: 2, Right: 1}
	in := anyvec32.MakeVectorData([]float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
	})
	expected := []float32{
		0, 0, 0, 0, 1, 2, 3, 4, 0, 0,
		0, 0, 0, 0, 5, 6, 7, 8, 0, 0,
	}
	actual := layer.Apply(anydiff.NewConst(in), 2).Output().Data().([]float32)
	checkOutput(t, actual, expected)
}

func TestPaddingProp(t *testing.T) {
	layer := &Padding{Depth: 3, Left: 1, Right: 2}
	inVar := anydiff.NewVar(anyvec32.MakeVector(3 * 4 * 2))
	anyvec.Rand(inVar.Vector, anyvec.Uniform, nil)
	checker := anydifftest.ResChecker{
		F: func() anydiff.Res {
			return layer.Apply(inVar, 2)
		},
		V: []*anydiff.Var{inVar},
	}
	checker.FullCheck(t)
}

func TestInstanceNormOutput(t *testing.T) {
	layer := &InstanceNorm{
		Depth:   1,
		Scalers: anydiff.NewVar(anyvec32.MakeVectorData([]float32{2})),
		Biases:  anydiff.NewVar(anyvec32.MakeVectorData([]float32{0.5})),
	}
	in := anyvec32.MakeVectorData([]float32{1, 3, 10, 10})
	actual := layer.Apply(anydiff.NewConst(in), 2).Output().Data().([]float32)
	checkOutput(t, actual, []float32{-1.5, 2.5, 0.5, 0.5})
}

func TestInstanceNormBadSize(t *testing.T) {
	layer := NewInstanceNorm(anyvec32.CurrentCreator(), 2)
	defer func() {
		if recover() == nil {
			t.Error("expected panic for input not divisible by depth")
		}
	}()
	layer.Apply(anydiff.NewConst(anyvec32.MakeVector(5)), 1)
}

func TestInstanceNormProp(t *testing.T) {
	c := anyvec64.CurrentCreator()
	layer := NewInstanceNorm(c, 2)
	anyvec.Rand(layer.Scalers.Vector, anyvec.Normal, nil)
	anyvec.Rand(layer.Biases.Vector, anyvec.Normal, nil)
	inVar := anydiff.NewVar(c.MakeVector(2 * 5 * 2))
	anyvec.Rand(inVar.Vector, anyvec.Normal, nil)
	checker := anydifftest.ResChecker{
		F: func() anydiff.Res {
			return layer.Apply(inVar, 2)
		},
		V:     append([]*anydiff.Var{inVar}, layer.Parameters()...),
		Delta: 1e-5,
		Prec:  1e-3,
	}
	checker.FullCheck(t)
}

func TestPointwiseOutput(t *testing.T) {
	layer := &Pointwise{
		InDepth:  2,
		OutDepth: 1,
		Weights:  anydiff.NewVar(anyvec32.MakeVectorData([]float32{2, -1})),
	}
	in := anyvec32.MakeVectorData([]float32{1, 2, 3, 4, 5, 7})
	actual := layer.Apply(anydiff.NewConst(in), 1).Output().Data().([]float32)
	checkOutput(t, actual, []float32{0, 2, 3})
	if len(layer.Parameters()) != 1 {
		t.Error("bias-free layer should have one parameter")
	}

	layer.Biases = anydiff.NewVar(anyvec32.MakeVectorData([]float32{1}))
	actual = layer.Apply(anydiff.NewConst(in), 3).Output().Data().([]float32)
	checkOutput(t, actual, []float32{1, 3, 4})
}

func TestDilatedConvOutput(t *testing.T) {
	layer := &DilatedConv{
		InDepth:    1,
		OutDepth:   1,
		KernelSize: 2,
		Dilation:   2,
		Filters:    anydiff.NewVar(anyvec32.MakeVectorData([]float32{1, 10})),
		Biases:     anydiff.NewVar(anyvec32.MakeVectorData([]float32{0.5})),
	}
	in := anyvec32.MakeVectorData([]float32{1, 2, 3, 4, 5})
	actual := layer.Apply(anydiff.NewConst(in), 1).Output().Data().([]float32)
	checkOutput(t, actual, []float32{31.5, 42.5, 53.5})
}

func TestDilatedConvBatch(t *testing.T) {
	layer := &DilatedConv{
		InDepth:    2,
		OutDepth:   1,
		KernelSize: 2,
		Dilation:   1,
		Filters:    anydiff.NewVar(anyvec32.MakeVectorData([]float32{1, -1, 2, 0.5})),
	}
	in := anyvec32.MakeVectorData([]float32{
		1, 2, 3, 4, 5, 6,
		0, 1, 1, 0, 2, 2,
	})
	actual := layer.Apply(anydiff.NewConst(in), 2).Output().Data().([]float32)
	checkOutput(t, actual, []float32{7, 12, 1, 6})
	if layer.OutputLength(1) != 0 {
		t.Error("short inputs should produce empty outputs")
	}
}

func TestDilatedConvProp(t *testing.T) {
	c := anyvec64.CurrentCreator()
	layer := NewDilatedConv(c, 3, 2, 3, 2, true)
	anyvec.Rand(layer.Biases.Vector, anyvec.Normal, nil)
	inVar := anydiff.NewVar(c.MakeVector(2 * 7 * 3))
	anyvec.Rand(inVar.Vector, anyvec.Normal, nil)
	checker := anydifftest.ResChecker{
		F: func() anydiff.Res {
			return layer.Apply(inVar, 2)
		},
		V:     append([]*anydiff.Var{inVar}, layer.Parameters()...),
		Delta: 1e-5,
		Prec:  1e-3,
	}
	checker.FullCheck(t)
}

func TestCausalConvolution(t *testing.T) {
	c := anyvec64.CurrentCreator()
	for _, r := range []int{1, 2, 4} {
		left, right := PadAmounts(3, r, true)
		net := anynet.Net{
			&Padding{Depth: 2, Left: left, Right: right},
			NewDilatedConv(c, 2, 2, 3, r, false),
		}
		data := make([]float64, 10*2)
		for i := range data {
			data[i] = rand.NormFloat64()
		}
		in := c.MakeVectorData(data)
		out1 := net.Apply(anydiff.NewConst(in), 1).Output().Data().([]float64)

		for i := 12; i < len(data); i++ {
			data[i] = rand.NormFloat64()
		}
		changed := c.MakeVectorData(data)
		out2 := net.Apply(anydiff.NewConst(changed), 1).Output().Data().([]float64)

		if len(out1) != 20 {
			t.Fatalf("dilation %d: expected length 20 but got %d", r, len(out1))
		}
		for i := 0; i < 12; i++ {
			if out1[i] != out2[i] {
				t.Errorf("dilation %d: output %d depends on the future", r, i)
			}
		}
	}
}

func TestLayerSerialize(t *testing.T) {
	c := anyvec32.CurrentCreator()
	layers := []serializer.Serializer{
		&Padding{Depth: 3, Left: 2, Right: 1},
		NewInstanceNorm(c, 4),
		NewPointwise(c, 3, 2, false),
		NewPointwise(c, 3, 2, true),
		NewDilatedConv(c, 3, 2, 3, 4, false),
		NewDilatedConv(c, 3, 2, 3, 4, true),
	}
	for i, layer := range layers {
		data, err := serializer.SerializeAny(layer)
		if err != nil {
			t.Fatal(err)
		}
		var decoded serializer.Serializer
		if err := serializer.DeserializeAny(data, &decoded); err != nil {
			t.Fatalf("layer %d: %s", i, err)
		}
		if !reflect.DeepEqual(decoded, layer) {
			t.Errorf("layer %d: layers differ", i)
		}
	}
}

func checkOutput(t *testing.T, actual, expected []float32) {
	t.Helper()
	if len(actual) != len(expected) {
		t.Fatalf("expected length %d but got %d", len(expected), len(actual))
	}
	for i, x := range expected {
		a := actual[i]
		if math.IsNaN(float64(a)) || math.Abs(float64(a-x)) > 1e-3 {
			t.Errorf("value %d: expected %f but got %f", i, x, a)
		}
	}
}
