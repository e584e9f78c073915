// Command bytenet trains a small ByteNet to reverse
// random words, reading its corpus through the ByteNet
// reader wrapper.
package main

import (
	"flag"
	"log"
	"math/rand"
	"strings"

	translate "github.com/py4/SFUTranslate"
	"github.com/py4/SFUTranslate/bytenet"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/rip"
)

const alphabet = "abcdefghij"

func main() {
	var numSamples int
	var batchSize int
	var inner int
	var maxDilation int
	var numSets int
	var stepSize float64
	flag.IntVar(&numSamples, "samples", 2000, "number of training samples")
	flag.IntVar(&batchSize, "batch", 16, "mini-batch size")
	flag.IntVar(&inner, "inner", 16, "inner size of residual blocks")
	flag.IntVar(&maxDilation, "dilation", 8, "maximum dilation")
	flag.IntVar(&numSets, "sets", 1, "residual block sets per encoder/decoder")
	flag.Float64Var(&stepSize, "step", 0.001, "Adam step size")
	flag.Parse()

	log.Println("Setting up...")

	vocab := translate.NewVocab(strings.Split(alphabet, ""))
	reader := &translate.SliceReader{
		Instances:   reversalCorpus(vocab, numSamples),
		Parts:       []translate.PartType{translate.SourceSequence, translate.TargetSequence},
		SourceVocab: vocab,
		TargetVocab: vocab,
		ReaderType:  "train",
	}
	wrapper, err := bytenet.NewWrapper(reader)
	if err != nil {
		log.Fatal(err)
	}
	if err := wrapper.Allocate(); err != nil {
		log.Fatal(err)
	}
	samples, err := bytenet.ReadSamples(wrapper, 0)
	wrapper.Deallocate()
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Read %d samples (%d rejected).", len(samples), wrapper.Rejected())

	creator := anyvec32.CurrentCreator()
	model := bytenet.NewModel(creator, vocab.Len(), vocab.Len(), inner, maxDilation, 3,
		numSets)
	t := &bytenet.Trainer{
		Model:     model,
		Params:    model.Parameters(),
		SourcePad: vocab.PadIndex(),
		TargetPad: vocab.PadIndex(),
	}

	var iterNum int
	s := &anysgd.SGD{
		Fetcher:     t,
		Gradienter:  t,
		Transformer: &anysgd.Adam{},
		Samples:     samples,
		Rater:       anysgd.ConstRater(stepSize),
		StatusFunc: func(b anysgd.Batch) {
			log.Printf("iter %d: cost=%v", iterNum, t.LastCost)
			iterNum++
		},
		BatchSize: batchSize,
	}

	log.Println("Press ctrl+c once to stop...")
	s.Run(rip.NewRIP().Chan())

	log.Println("Sample translations:")
	for i, sample := range samples {
		if i == 5 {
			break
		}
		out := model.Translate(sample.Source)
		log.Printf("%s -> %s", strings.Join(vocab.Decode(sample.Source), " "),
			strings.Join(vocab.Decode(out), " "))
	}
}

func reversalCorpus(v *translate.Vocab, n int) []translate.Instance {
	res := make([]translate.Instance, n)
	for i := range res {
		word := make([]string, 2+rand.Intn(8))
		for j := range word {
			word[j] = string(alphabet[rand.Intn(len(alphabet))])
		}
		reversed := make([]string, len(word))
		for j, x := range word {
			reversed[len(word)-1-j] = x
		}
		res[i] = translate.Instance{
			{Tokens: v.Encode(word)},
			{Tokens: append(v.Encode(reversed), v.EndIndex())},
		}
	}
	return res
}
