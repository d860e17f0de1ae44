package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/happyhackingspace/nbsvm"
)

func (c *CLI) newInspectCommand() *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:     "inspect <modelfile>",
		Short:   "Show model metadata and its most indicative words",
		Args:    cobra.ExactArgs(1),
		Example: `  nbsvm inspect model.json --top 30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := nbsvm.Load(args[0])
			if err != nil {
				return err
			}
			pos, neg, err := p.TopWords(top)
			if err != nil {
				return err
			}
			cfg := p.Config()
			fmt.Printf("Model:      %s (created %s)\n", p.ID, p.Created.Format("2006-01-02 15:04:05"))
			fmt.Printf("Classifier: %s, C=%g, dual=%s\n", cfg.Base, cfg.C, cfg.Dual)
			fmt.Printf("Vocabulary: %d words\n", len(p.Vocabulary()))
			printWords(p.Labels[1], pos)
			printWords(p.Labels[0], neg)
			return nil
		},
	}

	cmd.Flags().IntVar(&top, "top", 20, "Number of words to show per class")
	return cmd
}

func printWords(label string, words []nbsvm.WordWeight) {
	fmt.Printf("\nMost indicative of %q:\n", label)
	for _, w := range words {
		fmt.Printf("  %+8.4f  %s\n", w.Ratio, w.Word)
	}
}
