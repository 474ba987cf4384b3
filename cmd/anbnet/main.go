// Command anbnet preprocesses molecular datasets and trains the
// semi-supervised junction-tree generator/predictor.
//
// Modes:
//
//	preprocess        decompose the dataset, write the vocabulary and index map
//	train             semi-supervised training (labelled + unlabelled objective)
//	train-supervised  labelled-only training
//	sample            draw structures from the prior of a trained checkpoint
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tsa87/anb-net/internal/config"
	"github.com/tsa87/anb-net/pkg/checkpoint"
	"github.com/tsa87/anb-net/pkg/chem"
	"github.com/tsa87/anb-net/pkg/loader"
	"github.com/tsa87/anb-net/pkg/model"
	"github.com/tsa87/anb-net/pkg/moltree"
	"github.com/tsa87/anb-net/pkg/pipeline"
	"github.com/tsa87/anb-net/pkg/train"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML run configuration")
	dataPath := flag.String("data", "", "Path to the SMILES dataset, one structure per line")
	labelsPath := flag.String("labels", "", "Path to the property labels, one float per line, aligned with -data")
	mode := flag.String("mode", "train", "One of: train, train-supervised, preprocess, sample")
	resume := flag.Int("resume", 0, "Global step of the checkpoint to resume from (0 starts fresh)")
	outDir := flag.String("out", "processed", "Output directory for preprocess mode")
	numSamples := flag.Int("num-samples", 100, "Number of structures to draw in sample mode")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("cannot load configuration: %v", err)
	}

	if cfg.MetricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil {
				slog.Error("metrics endpoint failed", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
	}

	if *dataPath == "" {
		log.Fatal("-data is required")
	}
	raws, err := readLines(*dataPath)
	if err != nil {
		log.Fatalf("cannot load dataset: %v", err)
	}
	slog.Info("dataset loaded", "path", *dataPath, "structures", len(raws))

	dec := chem.NewDecomposer()
	opts := pipeline.Options{NumWorkers: cfg.NumWorkers, ChunkSize: cfg.ChunkSize}

	vocab := pipeline.NewVocabBuilder(dec, opts).Build(raws)
	slog.Info("vocabulary built", "symbols", vocab.Size())

	trees, indexMap := pipeline.NewPreprocessor(dec, opts).Preprocess(raws)
	slog.Info("preprocessing done", "processed", len(trees), "dropped", len(raws)-len(trees))

	switch *mode {
	case "preprocess":
		if err := writePreprocessed(*outDir, vocab, indexMap); err != nil {
			log.Fatalf("cannot write preprocess output: %v", err)
		}

	case "train", "train-supervised":
		supervised := *mode == "train-supervised"
		if *labelsPath == "" {
			log.Fatal("-labels is required for training")
		}
		labels, err := readFloats(*labelsPath)
		if err != nil {
			log.Fatalf("cannot load labels: %v", err)
		}
		processed, err := indexMap.Apply(labels)
		if err != nil {
			log.Fatalf("cannot re-index labels: %v", err)
		}

		mdl := model.NewBaseline(vocab, cfg)
		trainer, err := train.New(cfg, mdl, train.Options{Resume: *resume, SupervisedOnly: supervised})
		if err != nil {
			log.Fatalf("cannot construct trainer: %v", err)
		}

		trainLoader, valLoader, testLoader, err := buildLoaders(cfg, trees, processed, supervised)
		if err != nil {
			log.Fatalf("cannot build loaders: %v", err)
		}
		if err := trainer.Train(trainLoader, valLoader, testLoader); err != nil {
			log.Fatalf("training failed: %v", err)
		}

	case "sample":
		if *resume <= 0 {
			log.Fatal("-resume is required for sample mode")
		}
		mdl := model.NewBaseline(vocab, cfg)
		path := checkpoint.Path(cfg.SaveDir, "model", *resume)
		if err := checkpoint.Load(path, mdl.Params()); err != nil {
			log.Fatalf("cannot load checkpoint: %v", err)
		}
		mdl.SetTraining(false)
		rng := rand.New(rand.NewSource(int64(cfg.Seed)))
		for i := 0; i < *numSamples; i++ {
			s, err := mdl.SamplePrior(rng)
			if err != nil {
				log.Fatalf("sampling failed: %v", err)
			}
			fmt.Println(s)
		}

	default:
		log.Fatalf("unknown mode %q", *mode)
	}
}

// buildLoaders splits the processed dataset into train/validation/test and
// wraps each split in a Folder. Evaluation folders are fully labelled and
// unshuffled, per the evaluation protocol.
func buildLoaders(cfg *config.Config, trees []*moltree.MolTree, labels []float64, supervised bool) (trainL, valL, testL loader.Loader, err error) {
	rng := rand.New(rand.NewSource(int64(cfg.Seed)))
	order := rng.Perm(len(trees))

	nTest := int(float64(len(trees)) * cfg.TestPct)
	nVal := int(float64(len(trees)) * cfg.ValPct)

	pick := func(idxs []int) ([]*moltree.MolTree, []float64) {
		ts := make([]*moltree.MolTree, len(idxs))
		ls := make([]float64, len(idxs))
		for i, j := range idxs {
			ts[i], ls[i] = trees[j], labels[j]
		}
		return ts, ls
	}

	testTrees, testLabels := pick(order[:nTest])
	valTrees, valLabels := pick(order[nTest : nTest+nVal])
	trainTrees, trainLabels := pick(order[nTest+nVal:])

	labelPct := cfg.LabelPct
	if supervised {
		labelPct = 1
	}
	trainL, err = loader.NewFolder(trainTrees, trainLabels, loader.FolderOptions{
		BatchSize: cfg.BatchSize,
		LabelPct:  labelPct,
		Seed:      cfg.Seed,
		Shuffle:   true,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	valL, err = loader.NewFolder(valTrees, valLabels, loader.FolderOptions{
		BatchSize: cfg.BatchSize,
		LabelPct:  1,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	testL, err = loader.NewFolder(testTrees, testLabels, loader.FolderOptions{
		BatchSize: cfg.BatchSize,
		LabelPct:  1,
	})
	return trainL, valL, testL, err
}

// writePreprocessed stores the vocabulary (one symbol per line) and the index
// map (one original-dataset position per line) under dir.
func writePreprocessed(dir string, vocab *moltree.Vocab, indexMap pipeline.IndexMap) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	var vb strings.Builder
	for _, s := range vocab.Symbols() {
		vb.WriteString(s)
		vb.WriteByte('\n')
	}
	if err := os.WriteFile(filepath.Join(dir, "vocab.txt"), []byte(vb.String()), 0644); err != nil {
		return err
	}
	var ib strings.Builder
	for _, idx := range indexMap {
		ib.WriteString(strconv.Itoa(idx))
		ib.WriteByte('\n')
	}
	return os.WriteFile(filepath.Join(dir, "index_map.txt"), []byte(ib.String()), 0644)
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}

func readFloats(path string) ([]float64, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(lines))
	for i, line := range lines {
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		out[i] = v
	}
	return out, nil
}
