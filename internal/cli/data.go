package cli

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/happyhackingspace/nbsvm/internal/collect"
	"github.com/happyhackingspace/nbsvm/internal/storage"
)

func (c *CLI) newDataCommand() *cobra.Command {
	dataCmd := &cobra.Command{
		Use:   "data",
		Short: "Inspect, download and archive labelled data folders",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	var statsFolder string
	statsCmd := &cobra.Command{
		Use:     "stats",
		Short:   "Show label and domain counts of a data folder",
		Example: `  nbsvm data stats --data-folder data`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dataStats(os.Stdout, statsFolder, c.verbose)
		},
	}
	statsCmd.Flags().StringVar(&statsFolder, "data-folder", "data", "Path to labelled data folder")

	var downloadFolder string
	downloadCmd := &cobra.Command{
		Use:     "download <url>",
		Short:   "Download and extract a data folder archive (.tar.gz)",
		Args:    cobra.ExactArgs(1),
		Example: `  nbsvm data download https://example.com/data.tar.gz --data-folder data`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dataDownload(args[0], downloadFolder)
		},
	}
	downloadCmd.Flags().StringVar(&downloadFolder, "data-folder", "data", "Destination folder for training data")

	var packFolder, packOutput string
	packCmd := &cobra.Command{
		Use:     "pack",
		Short:   "Archive a data folder as .tar.gz",
		Example: `  nbsvm data pack --data-folder data --output data.tar.gz`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dataPack(packFolder, packOutput)
		},
	}
	packCmd.Flags().StringVar(&packFolder, "data-folder", "data", "Source folder for training data")
	packCmd.Flags().StringVar(&packOutput, "output", "data.tar.gz", "Archive path")

	dataCmd.AddCommand(statsCmd, downloadCmd, packCmd, newCollectCommand(), newCrawlCommand())
	return dataCmd
}

// fetchOptions are the flags shared by the collect and crawl commands.
type fetchOptions struct {
	dataFolder string
	negative   string
	positive   string
	timeout    time.Duration
	delay      time.Duration
	userAgent  string
	maxPages   int
	insecure   bool
}

func (o *fetchOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.dataFolder, "data-folder", "data", "Data folder to add pages to")
	cmd.Flags().StringVar(&o.negative, "negative", "negative", "Negative label name for a new data folder")
	cmd.Flags().StringVar(&o.positive, "positive", "positive", "Positive label name for a new data folder")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 30*time.Second, "HTTP timeout")
	cmd.Flags().DurationVar(&o.delay, "delay", time.Second, "Delay between requests")
	cmd.Flags().StringVar(&o.userAgent, "user-agent", "", "User-Agent header")
	cmd.Flags().IntVar(&o.maxPages, "max", 0, "Max pages to collect (0=unlimited)")
	cmd.Flags().BoolVar(&o.insecure, "insecure", false, "Skip TLS certificate verification")
}

func (o *fetchOptions) collector() (*collect.Collector, error) {
	if err := collect.InitFolder(o.dataFolder, o.negative, o.positive, "?"); err != nil {
		return nil, fmt.Errorf("init data folder: %w", err)
	}
	col, err := collect.NewCollector(o.dataFolder, collect.NewHTTPClient(o.timeout, o.insecure))
	if err != nil {
		return nil, err
	}
	col.Delay = o.delay
	col.MaxPages = o.maxPages
	if o.userAgent != "" {
		col.UserAgent = o.userAgent
	}
	return col, nil
}

func newCollectCommand() *cobra.Command {
	var opts fetchOptions
	var seedFile string

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Fetch labelled pages from a seed file into a data folder",
		Example: `  nbsvm data collect --seed seeds.jsonl --data-folder data --negative ham --positive spam

  # seeds.jsonl
  {"url": "https://example.com/offer", "label": "spam"}`,
		RunE: func(cmd *cobra.Command, args []string) error {
			seeds, err := collect.LoadSeeds(seedFile)
			if err != nil {
				return fmt.Errorf("load seeds: %w", err)
			}
			slog.Info("Loaded seeds", "count", len(seeds))
			col, err := opts.collector()
			if err != nil {
				return err
			}
			n, err := col.Collect(seeds)
			if err != nil {
				return err
			}
			slog.Info("Collection complete", "collected", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&seedFile, "seed", "", "Path to seed file (JSONL)")
	opts.register(cmd)
	_ = cmd.MarkFlagRequired("seed")
	return cmd
}

func newCrawlCommand() *cobra.Command {
	var opts fetchOptions
	var sitesFile, label string
	var maxPerSite int

	cmd := &cobra.Command{
		Use:     "crawl",
		Short:   "Crawl sites and add all their pages with one label",
		Example: `  nbsvm data crawl --sites news.txt --label ham --data-folder data --max-per-site 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sites, err := collect.LoadLines(sitesFile)
			if err != nil {
				return fmt.Errorf("load sites: %w", err)
			}
			col, err := opts.collector()
			if err != nil {
				return err
			}
			for _, site := range sites {
				n, err := col.Crawl(site, label, maxPerSite)
				if err != nil {
					slog.Warn("Failed to crawl site", "site", site, "error", err)
					continue
				}
				slog.Info("Finished site", "site", site, "collected", n, "total", col.Collected())
			}
			if err := col.Save(); err != nil {
				return err
			}
			slog.Info("Crawl complete", "total", col.Collected())
			return nil
		},
	}
	cmd.Flags().StringVar(&sitesFile, "sites", "", "File with site URLs or domains (one per line)")
	cmd.Flags().StringVar(&label, "label", "", "Label for every crawled page")
	cmd.Flags().IntVar(&maxPerSite, "max-per-site", 20, "Max pages per site")
	opts.register(cmd)
	_ = cmd.MarkFlagRequired("sites")
	_ = cmd.MarkFlagRequired("label")
	return cmd
}

func dataStats(w io.Writer, dataFolder string, verbose bool) error {
	opts := storage.DefaultIterOptions()
	opts.Verbose = verbose
	docs, schema, err := storage.NewStorage(dataFolder).IterDocuments(opts)
	if err != nil {
		return err
	}

	var perLabel [2]int
	domains := make(map[string]int)
	for _, d := range docs {
		perLabel[d.Label]++
		domains[storage.GetDomain(d.URL)]++
	}
	fmt.Fprintf(w, "Documents: %d\n", len(docs))
	fmt.Fprintf(w, "  %-12s %d\n", schema.Positive, perLabel[1])
	fmt.Fprintf(w, "  %-12s %d\n", schema.Negative, perLabel[0])
	fmt.Fprintf(w, "Domains:   %d\n", len(domains))

	names := make([]string, 0, len(domains))
	for d := range domains {
		names = append(names, d)
	}
	sort.Slice(names, func(i, j int) bool {
		if domains[names[i]] != domains[names[j]] {
			return domains[names[i]] > domains[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > 10 {
		names = names[:10]
	}
	for _, d := range names {
		fmt.Fprintf(w, "  %-30s %d\n", d, domains[d])
	}
	return nil
}

func dataDownload(url, dataFolder string) error {
	slog.Info("Downloading training data", "url", url)
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("download data: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download data: HTTP %d", resp.StatusCode)
	}

	if err := os.RemoveAll(dataFolder); err != nil {
		return fmt.Errorf("remove existing %s: %w", dataFolder, err)
	}
	count, err := extractArchive(resp.Body, dataFolder)
	if err != nil {
		return err
	}
	slog.Info("Training data extracted", "files", count, "folder", dataFolder)
	return nil
}

// extractArchive unpacks a gzipped tar stream into dataFolder. A leading
// "data/" directory in entry names is replaced by dataFolder.
func extractArchive(r io.Reader, dataFolder string) (int, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("gzip reader: %w", err)
	}
	defer func() { _ = gr.Close() }()

	root := filepath.Clean(dataFolder)
	tr := tar.NewReader(gr)
	count := 0
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("read tar: %w", err)
		}

		name := filepath.ToSlash(hdr.Name)
		if name == "data" || name == "data/" {
			name = ""
		}
		name = strings.TrimPrefix(name, "data/")
		target := filepath.Join(root, filepath.FromSlash(name))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return count, fmt.Errorf("archive entry %q escapes %s", hdr.Name, dataFolder)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return count, fmt.Errorf("create dir %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return count, fmt.Errorf("create parent dir: %w", err)
			}
			f, err := os.Create(target)
			if err != nil {
				return count, fmt.Errorf("create file %s: %w", target, err)
			}
			if _, err := io.Copy(f, tr); err != nil {
				_ = f.Close()
				return count, fmt.Errorf("write file %s: %w", target, err)
			}
			_ = f.Close()
			count++
		}
	}
	return count, nil
}

func dataPack(dataFolder, tarPath string) error {
	slog.Info("Creating archive", "source", dataFolder, "dest", tarPath)

	tf, err := os.Create(tarPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", tarPath, err)
	}

	gw := gzip.NewWriter(tf)
	tw := tar.NewWriter(gw)

	err = filepath.Walk(dataFolder, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dataFolder, path)
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(filepath.Join("data", rel))
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		_ = tw.Close()
		_ = gw.Close()
		_ = tf.Close()
		return fmt.Errorf("create archive: %w", err)
	}
	if err := tw.Close(); err != nil {
		_ = gw.Close()
		_ = tf.Close()
		return fmt.Errorf("close tar: %w", err)
	}
	if err := gw.Close(); err != nil {
		_ = tf.Close()
		return fmt.Errorf("close gzip: %w", err)
	}
	_ = tf.Close()
	slog.Info("Archive created", "path", tarPath)
	return nil
}
