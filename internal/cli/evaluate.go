package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/happyhackingspace/nbsvm"
)

func (c *CLI) newEvaluateCommand() *cobra.Command {
	var dataFolder string
	var cvFolds int
	var mf modelFlags

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate model accuracy via cross-validation",
		Long: `Evaluate model accuracy via k-fold cross-validation.

Every fold fits its own vocabulary on its training documents, so --num-words
must not exceed the distinct words of any training fold. Small folders need a
value well below the default of 10000.`,
		Example: `  nbsvm evaluate --data-folder data --cv 10
  nbsvm evaluate --data-folder small --num-words 500
  nbsvm evaluate --base logit --config nbsvm.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := mf.load(cmd, c.verbose)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("cv") {
				cfg.Evaluate.Folds = cvFolds
			}
			slog.Info("Evaluating", "folds", cfg.Evaluate.Folds, "data-folder", dataFolder)
			start := time.Now()
			result, err := nbsvm.Evaluate(dataFolder, &nbsvm.EvalConfig{
				Pipeline: cfg.Pipeline(),
				Folds:    cfg.Evaluate.Folds,
				Verbose:  c.verbose,
			})
			if err != nil {
				return vocabHint(err)
			}
			slog.Debug("Evaluation completed", "duration", time.Since(start))
			printEvalResult(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataFolder, "data-folder", "data", "Path to labelled data folder")
	cmd.Flags().IntVar(&cvFolds, "cv", 10, "Number of cross-validation folds")
	mf.register(cmd)
	return cmd
}

func printEvalResult(r *nbsvm.EvalResult) {
	fmt.Printf("Accuracy:  %.1f%% (%d/%d)\n", r.Accuracy*100, r.Correct, r.Total)
	fmt.Printf("Precision: %.1f%%\n", r.Precision*100)
	fmt.Printf("Recall:    %.1f%%\n", r.Recall*100)
	fmt.Printf("F1:        %.1f%%\n", r.F1*100)
	if r.SkippedFolds > 0 {
		fmt.Printf("Skipped %d of %d folds with a single training class\n", r.SkippedFolds, r.Folds)
	}
}
