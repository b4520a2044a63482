package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"go.uber.org/zap"

	"hospitalpredict/dataset"
	"hospitalpredict/diagnosis"
	"hospitalpredict/logger"
)

type options struct {
	dataPath string
	encoding string
	train    diagnosis.Options
	vitals   dataset.Vitals
	predict  bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run returns the process exit code so deferred log flushing happens before exit.
func run(args []string, out io.Writer) int {
	opts := parseFlags(args)

	log, err := logger.New(logger.Config{Level: "warn", Console: true})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer log.Sync()

	if err := evaluate(context.Background(), out, opts); err != nil {
		log.Error("evaluation failed", zap.String("data", opts.dataPath), zap.Error(err))
		return 1
	}
	return 0
}

func parseFlags(args []string) options {
	defaults := diagnosis.DefaultOptions()
	fs := flag.NewFlagSet("evaluate", flag.ExitOnError)

	dataPath := fs.String("data", "data/hospital_data.csv", "patient CSV path")
	encoding := fs.String("encoding", dataset.DefaultEncoding, "CSV character encoding")
	testSize := fs.Float64("test_size", defaults.TestSize, "held-out fraction")
	seed := fs.Int64("seed", defaults.RandomSeed, "split seed")
	maxDepth := fs.Int("max_depth", defaults.MaxDepth, "max tree depth, 0 for unlimited")
	age := fs.Float64("age", dataset.AgeBound.Default, "patient age")
	fever := fs.Float64("fever", dataset.FeverBound.Default, "body temperature in °F")
	bp := fs.Float64("bp", dataset.BPBound.Default, "blood pressure")
	sugar := fs.Float64("sugar", dataset.SugarBound.Default, "sugar level")
	_ = fs.Parse(args)

	train := defaults
	train.TestSize = *testSize
	train.RandomSeed = *seed
	train.MaxDepth = *maxDepth

	opts := options{
		dataPath: *dataPath,
		encoding: *encoding,
		train:    train,
		vitals:   dataset.Vitals{Age: *age, Fever: *fever, BP: *bp, Sugar: *sugar},
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "age", "fever", "bp", "sugar":
			opts.predict = true
		}
	})
	return opts
}

func evaluate(ctx context.Context, out io.Writer, opts options) error {
	table, err := dataset.FileSource{Path: opts.dataPath, Encoding: opts.encoding}.Load(ctx)
	if err != nil {
		return err
	}
	model, err := diagnosis.Fit(table, opts.train)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "rows=%d train=%d test=%d classes=%v\n", model.Rows, model.TrainRows, model.TestRows, model.Classes)
	fmt.Fprintln(out, model.AccuracyText())
	fmt.Fprintf(out, "precision=%.2f recall=%.2f depth=%d leaves=%d\n", model.Precision, model.Recall, model.Depth, model.Leaves)

	names := make([]string, 0, len(model.Importances))
	for name := range model.Importances {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if model.Importances[names[i]] != model.Importances[names[j]] {
			return model.Importances[names[i]] > model.Importances[names[j]]
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		fmt.Fprintf(out, "  %-6s %.3f\n", name, model.Importances[name])
	}

	if !opts.predict {
		return nil
	}
	outcome, err := model.Predict(opts.vitals)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, outcome.Message)
	return nil
}
