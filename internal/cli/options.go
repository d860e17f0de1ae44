package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/happyhackingspace/nbsvm/estimator"
	"github.com/happyhackingspace/nbsvm/internal/config"
	"github.com/happyhackingspace/nbsvm/internal/vectorizer"
)

// modelFlags are the hyperparameter flags shared by train and evaluate.
// Flags given on the command line override the configuration file.
type modelFlags struct {
	configPath string
	numWords   int
	base       string
	c          float64
	dual       string
}

func (f *modelFlags) register(cmd *cobra.Command) {
	d := config.DefaultConfig()
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to a YAML configuration file")
	cmd.Flags().IntVar(&f.numWords, "num-words", d.Vectorizer.NumWords, "Vocabulary size")
	cmd.Flags().StringVar(&f.base, "base", d.Classifier.Base, "Base classifier: svc or logit")
	cmd.Flags().Float64Var(&f.c, "c", d.Classifier.C, "Inverse regularization strength")
	cmd.Flags().StringVar(&f.dual, "dual", d.Classifier.Dual.String(), "Dual formulation: auto, true or false")
}

// load reads the configuration file and applies explicitly set flags.
func (f *modelFlags) load(cmd *cobra.Command, verbose bool) (*config.Config, error) {
	cfg, err := config.LoadConfig(f.configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("num-words") {
		cfg.Vectorizer.NumWords = f.numWords
	}
	if flags.Changed("base") {
		cfg.Classifier.Base = f.base
	}
	if flags.Changed("c") {
		cfg.Classifier.C = f.c
	}
	if flags.Changed("dual") {
		d, err := estimator.ParseDual(f.dual)
		if err != nil {
			return nil, err
		}
		cfg.Classifier.Dual = d
	}
	if verbose && cfg.Verbose == 0 {
		cfg.Verbose = 1
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// vocabHint points a too-large vocabulary at the flag that controls it. The
// default of 10000 words exceeds what small folders, and most
// cross-validation folds of them, contain.
func vocabHint(err error) error {
	if errors.Is(err, vectorizer.ErrSmallVocabulary) {
		return fmt.Errorf("%w (lower --num-words or vectorizer.num_words)", err)
	}
	return err
}
