package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	"github.com/happyhackingspace/nbsvm"
)

const repoSlug = "happyhackingspace/nbsvm"

func (c *CLI) newUpCommand() *cobra.Command {
	var modelPath string
	var checkOnly bool

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Self-update to the latest version",
		Example: `  nbsvm up
  nbsvm up --check
  nbsvm up --model model.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if modelPath != "" {
				if err := checkModel(modelPath); err != nil {
					return err
				}
			}
			exe, updated, err := c.selfUpdate(checkOnly)
			if err != nil || !updated || modelPath == "" {
				return err
			}
			return verifyModelWith(exe, modelPath)
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", "", "Model file to re-validate with the updated binary")
	cmd.Flags().BoolVar(&checkOnly, "check", false, "Only report whether a newer release exists")
	return cmd
}

// checkModel loads a model file with the running binary.
func checkModel(path string) error {
	p, err := nbsvm.Load(path)
	if err != nil {
		return fmt.Errorf("model %s: %w", path, err)
	}
	slog.Debug("Model loads with current binary", "path", path, "id", p.ID,
		"base", p.Config().Base, "words", len(p.Vocabulary()))
	return nil
}

// verifyModelWith asks the binary at exe to load the model, so a model
// format change in the new release is reported right after the update.
func verifyModelWith(exe, path string) error {
	out, err := exec.Command(exe, "inspect", path, "--top", "0", "-s").CombinedOutput()
	if err != nil {
		slog.Warn("Updated binary cannot read the model, retrain it", "model", path, "output", string(out))
		return fmt.Errorf("verify model %s: %w", path, err)
	}
	slog.Info("Model verified with updated binary", "model", path)
	return nil
}

// selfUpdate replaces the running executable with the latest release and
// returns its path and whether an update was installed.
func (c *CLI) selfUpdate(checkOnly bool) (string, bool, error) {
	v := c.version
	if v == "dev" {
		v = "0.0.0"
	}

	updater, err := selfupdate.NewUpdater(selfupdate.Config{})
	if err != nil {
		return "", false, err
	}

	latest, found, err := updater.DetectLatest(context.Background(), selfupdate.ParseSlug(repoSlug))
	if err != nil {
		return "", false, fmt.Errorf("detect latest version: %w", err)
	}
	if !found {
		return "", false, fmt.Errorf("no release found")
	}

	if latest.LessOrEqual(v) {
		fmt.Printf("Already up to date (%s)\n", c.version)
		return "", false, nil
	}
	if checkOnly {
		fmt.Printf("Update available: %s -> %s\n", c.version, latest.Version())
		return "", false, nil
	}

	slog.Info("Updating", "from", c.version, "to", latest.Version())

	exe, err := os.Executable()
	if err != nil {
		return "", false, err
	}

	if err := updater.UpdateTo(context.Background(), latest, exe); err != nil {
		return "", false, fmt.Errorf("update: %w", err)
	}

	fmt.Printf("Updated to %s\n", latest.Version())
	return exe, true, nil
}
