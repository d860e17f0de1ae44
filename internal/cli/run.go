package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/happyhackingspace/nbsvm"
	"github.com/happyhackingspace/nbsvm/internal/storage"
)

// runResult is one classified input as printed by the run command.
type runResult struct {
	Source string `json:"source"`
	nbsvm.Result
}

func (c *CLI) newRunCommand() *cobra.Command {
	var modelPath string
	var proba bool

	cmd := &cobra.Command{
		Use:   "run [url-or-file...]",
		Short: "Classify text or HTML documents from URLs, files, or stdin",
		Example: `  # Classify local files
  nbsvm run review1.txt page.html --model model.json

  # Classify a URL directly
  nbsvm run https://example.com/article

  # Pipe text from stdin
  echo "free money, click now" | nbsvm run

  # Show probability scores (NB-Logit models only)
  nbsvm run review.txt --proba`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var sources, texts []string
			if len(args) == 0 {
				if isStdinTerminal() {
					return cmd.Help()
				}
				text, err := readFromStdin(os.Stdin)
				if err != nil {
					return err
				}
				sources, texts = []string{"stdin"}, []string{text}
			} else {
				for _, target := range args {
					slog.Debug("Reading document", "target", target)
					text, err := fetchText(target)
					if err != nil {
						return err
					}
					sources = append(sources, target)
					texts = append(texts, text)
				}
			}

			start := time.Now()
			p, err := nbsvm.Load(modelPath)
			if err != nil {
				return err
			}
			slog.Debug("Model loaded", "id", p.ID, "duration", time.Since(start))
			if proba && !p.SupportsProba() {
				slog.Warn("Model has no probability support, printing labels only", "base", p.Config().Base)
			}

			results, err := p.Classify(texts, proba)
			if err != nil {
				return err
			}
			out := make([]runResult, len(results))
			for i, r := range results {
				out[i] = runResult{Source: sources[i], Result: r}
			}
			output, _ := json.MarshalIndent(out, "", "  ")
			fmt.Println(string(output))
			return nil
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "model.json", "Path to model file")
	cmd.Flags().BoolVar(&proba, "proba", false, "Show probabilities")
	return cmd
}

func isStdinTerminal() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// fetchText returns the document text of a URL or file. HTML is reduced to
// its visible text.
func fetchText(target string) (string, error) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		resp, err := http.Get(target)
		if err != nil {
			return "", fmt.Errorf("fetch URL: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("fetch URL: HTTP %d", resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("read response: %w", err)
		}
		return storage.ExtractText(target, string(body))
	}
	return storage.ReadText(target)
}

func readFromStdin(r io.Reader) (string, error) {
	slog.Debug("Reading from stdin")
	body, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	content := strings.TrimSpace(string(body))
	if content == "" {
		return "", fmt.Errorf("stdin is empty")
	}
	if strings.HasPrefix(content, "http://") || strings.HasPrefix(content, "https://") {
		slog.Debug("Stdin contains URL", "url", content)
		return fetchText(content)
	}
	return storage.ExtractText("stdin", content)
}
