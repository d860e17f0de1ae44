package cli

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/happyhackingspace/nbsvm"
)

func (c *CLI) newTrainCommand() *cobra.Command {
	var dataFolder string
	var mf modelFlags

	cmd := &cobra.Command{
		Use:   "train <modelfile>",
		Short: "Train a model on a labelled document folder",
		Args:  cobra.ExactArgs(1),
		Example: `  nbsvm train model.json --data-folder data
  nbsvm train model.json --base logit --num-words 2000
  nbsvm train model.json --config nbsvm.yaml -v`,
		RunE: func(cmd *cobra.Command, args []string) error {
			modelPath := args[0]
			cfg, err := mf.load(cmd, c.verbose)
			if err != nil {
				return err
			}
			slog.Info("Training classifier", "data-folder", dataFolder, "output", modelPath,
				"base", cfg.Classifier.Base, "num-words", cfg.Vectorizer.NumWords)
			start := time.Now()
			p, err := nbsvm.Train(dataFolder, &nbsvm.TrainConfig{
				Pipeline: cfg.Pipeline(),
				Verbose:  c.verbose,
			})
			if err != nil {
				return vocabHint(err)
			}
			slog.Debug("Training completed", "duration", time.Since(start))
			if err := p.Save(modelPath); err != nil {
				return err
			}
			slog.Info("Model saved", "path", modelPath, "id", p.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataFolder, "data-folder", "data", "Path to labelled data folder")
	mf.register(cmd)
	return cmd
}
