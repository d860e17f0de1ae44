package nbsvm

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/happyhackingspace/nbsvm/estimator"
	"github.com/happyhackingspace/nbsvm/internal/storage"
)

// TrainConfig holds configuration for training.
type TrainConfig struct {
	Pipeline Config
	Verbose  bool
}

// EvalConfig holds configuration for evaluation.
type EvalConfig struct {
	Pipeline Config
	Folds    int
	Verbose  bool
}

// EvalResult holds cross-validation evaluation results. Precision, recall
// and F1 are computed for the positive class.
type EvalResult struct {
	Accuracy     float64
	Precision    float64
	Recall       float64
	F1           float64
	Correct      int
	Total        int
	Folds        int
	SkippedFolds int
}

// Train fits a pipeline on the labeled documents of a data folder.
func Train(dataDir string, config *TrainConfig) (*Pipeline, error) {
	pc := DefaultConfig()
	verbose := false
	if config != nil {
		pc = config.Pipeline
		verbose = config.Verbose
	}

	docs, schema, err := loadDocuments(dataDir, verbose)
	if err != nil {
		return nil, err
	}
	corpus, labels := trainingData(docs)

	p, err := New(pc)
	if err != nil {
		return nil, err
	}
	p.Labels = [2]string{schema.Negative, schema.Positive}
	if err := p.Fit(corpus, labels); err != nil {
		return nil, err
	}
	slog.Info("Trained model", "id", p.ID, "documents", len(docs), "words", len(p.Vocabulary()))
	return p, nil
}

// Evaluate runs grouped k-fold cross-validation on a data folder. Documents
// from the same domain always land in the same fold.
func Evaluate(dataDir string, config *EvalConfig) (*EvalResult, error) {
	pc := DefaultConfig()
	nFolds := 10
	verbose := false
	if config != nil {
		pc = config.Pipeline
		if config.Folds > 0 {
			nFolds = config.Folds
		}
		verbose = config.Verbose
	}
	if _, err := New(pc); err != nil {
		return nil, err
	}

	docs, _, err := loadDocuments(dataDir, verbose)
	if err != nil {
		return nil, err
	}
	corpus, labels := trainingData(docs)
	folds := groupKFold(domainGroups(docs), nFolds)

	result := &EvalResult{Folds: len(folds)}
	var yTrue, yPred []int
	for i, testIdx := range folds {
		testSet := makeTestSet(len(corpus), testIdx)
		trainCorpus, trainLabels := filterByIndex(corpus, labels, testSet, false)
		testCorpus, testLabels := filterByIndex(corpus, labels, testSet, true)

		if !hasBothClasses(trainLabels) {
			slog.Warn("Skipping fold with a single training class", "fold", i)
			result.SkippedFolds++
			continue
		}
		p, err := New(pc)
		if err != nil {
			return nil, err
		}
		if err := p.Fit(trainCorpus, trainLabels); err != nil {
			return nil, fmt.Errorf("nbsvm: fold %d: %w", i, err)
		}
		pred, err := p.Predict(testCorpus)
		if err != nil {
			return nil, fmt.Errorf("nbsvm: fold %d: %w", i, err)
		}
		if verbose {
			slog.Info("Fold evaluated", "fold", i, "train", len(trainCorpus), "test", len(testCorpus),
				"accuracy", estimator.Accuracy(testLabels, pred))
		}
		yTrue = append(yTrue, testLabels...)
		yPred = append(yPred, pred...)
	}

	result.Total = len(yTrue)
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			result.Correct++
		}
	}
	if result.Total > 0 {
		result.Accuracy = float64(result.Correct) / float64(result.Total)
		result.Precision, result.Recall, result.F1 = estimator.PrecisionRecallF1(yTrue, yPred)
	}
	return result, nil
}

func loadDocuments(dataDir string, verbose bool) ([]storage.Document, *storage.LabelSchema, error) {
	store := storage.NewStorage(dataDir)
	opts := storage.DefaultIterOptions()
	opts.Verbose = verbose
	docs, schema, err := store.IterDocuments(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("nbsvm: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil, fmt.Errorf("nbsvm: no labeled documents found in %s", dataDir)
	}
	return docs, schema, nil
}

func trainingData(docs []storage.Document) ([][]string, []int) {
	corpus := make([][]string, len(docs))
	labels := make([]int, len(docs))
	for i, d := range docs {
		corpus[i] = d.Tokens
		labels[i] = d.Label
	}
	return corpus, labels
}

func hasBothClasses(y []int) bool {
	var seen [2]bool
	for _, v := range y {
		if v == 0 || v == 1 {
			seen[v] = true
		}
	}
	return seen[0] && seen[1]
}

// groupKFold assigns whole groups to folds round-robin, in group id order.
func groupKFold(groups []int, nFolds int) [][]int {
	uniqueGroups := make(map[int]bool)
	for _, g := range groups {
		uniqueGroups[g] = true
	}
	sortedGroups := make([]int, 0, len(uniqueGroups))
	for g := range uniqueGroups {
		sortedGroups = append(sortedGroups, g)
	}
	sort.Ints(sortedGroups)

	if nFolds > len(sortedGroups) {
		nFolds = len(sortedGroups)
	}

	groupToFold := make(map[int]int)
	for i, g := range sortedGroups {
		groupToFold[g] = i % nFolds
	}

	folds := make([][]int, nFolds)
	for i, g := range groups {
		fold := groupToFold[g]
		folds[fold] = append(folds[fold], i)
	}
	return folds
}

func domainGroups(docs []storage.Document) []int {
	groups := make([]int, len(docs))
	domainMap := make(map[string]int)
	for i, d := range docs {
		domain := storage.GetDomain(d.URL)
		if _, ok := domainMap[domain]; !ok {
			domainMap[domain] = len(domainMap)
		}
		groups[i] = domainMap[domain]
	}
	return groups
}

func makeTestSet(n int, testIdx []int) []bool {
	set := make([]bool, n)
	for _, i := range testIdx {
		set[i] = true
	}
	return set
}

func filterByIndex(corpus [][]string, labels []int, testSet []bool, isTest bool) ([][]string, []int) {
	var outCorpus [][]string
	var outLabels []int
	for i := range corpus {
		if testSet[i] == isTest {
			outCorpus = append(outCorpus, corpus[i])
			outLabels = append(outLabels, labels[i])
		}
	}
	return outCorpus, outLabels
}
