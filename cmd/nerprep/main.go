// nerprep prepares a token classification (NER) dataset for training: it tokenizes pre-split
// sentences with a HuggingFace tokenizer, aligns the word tags to the subword tokens and writes
// the padded model inputs and labels to a parquet file.
//
// Usage:
//
//	nerprep -model=dslim/bert-base-NER -tags=model -input=train.txt -output=train.parquet
//
// Configuration can also be given in a file (-config) or NERPREP_* environment variables; flags
// take precedence.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gomlx/tokenclass/align"
	"github.com/gomlx/tokenclass/collate"
	"github.com/gomlx/tokenclass/datasets"
	"github.com/gomlx/tokenclass/hub"
	"github.com/gomlx/tokenclass/internal/config"
	"github.com/gomlx/tokenclass/tagset"
	"github.com/gomlx/tokenclass/tokenizers"
	"github.com/gomlx/tokenclass/tokenizers/api"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	flagConfig       = flag.String("config", "", "Configuration file (YAML, JSON or TOML).")
	flagModel        = flag.String("model", "", "HuggingFace Hub model id, whose tokenizer is used.")
	flagRevision     = flag.String("revision", "", "Revision of the model repository.")
	flagCacheDir     = flag.String("cache_dir", "", "HuggingFace Hub cache directory.")
	flagTokenizerDir = flag.String("tokenizer_dir", "", "Local directory with the tokenizer files, used instead of -model.")
	flagTags         = flag.String("tags", "", "JSON file with the tag to id mapping, or \"model\" to use the label2id of the model config.")
	flagInput        = flag.String("input", "", "Input dataset: CoNLL text file or parquet file with tokens and ner_tags columns.")
	flagFormat       = flag.String("format", "", "Input format: \"conll\" or \"parquet\". Guessed from the extension if empty.")
	flagOutput       = flag.String("output", "", "Output parquet file. If empty only the summary is printed.")
	flagMaxLen       = flag.Int("max_len", 0, "Length of the encoded sequences, including special tokens.")
	flagBatchSize    = flag.Int("batch_size", 0, "Number of sentences collated together.")
	flagParallelism  = flag.Int("parallelism", 0, "Number of sentences aligned in parallel.")
	flagStrategy     = flag.String("strategy", "", "Word start detection: \"auto\", \"word_index\" or \"offsets\".")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		klog.Fatalf("Failed to load configuration: %+v", err)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		klog.Fatalf("Invalid configuration: %v", err)
	}

	summary, err := run(cfg)
	if err != nil {
		klog.Fatalf("Failed: %+v", err)
	}
	fmt.Fprintln(os.Stdout, summary.Render())
}

// applyFlags overrides the configuration with the flags explicitly set.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "model":
			cfg.Model = *flagModel
		case "revision":
			cfg.Revision = *flagRevision
		case "cache_dir":
			cfg.CacheDir = *flagCacheDir
		case "tokenizer_dir":
			cfg.TokenizerDir = *flagTokenizerDir
		case "tags":
			cfg.Tags = *flagTags
		case "input":
			cfg.Input = *flagInput
		case "format":
			cfg.Format = *flagFormat
		case "output":
			cfg.Output = *flagOutput
		case "max_len":
			cfg.MaxLen = *flagMaxLen
		case "batch_size":
			cfg.BatchSize = *flagBatchSize
		case "parallelism":
			cfg.Parallelism = *flagParallelism
		case "strategy":
			cfg.Strategy = *flagStrategy
		}
	})
}

// run executes the data preparation described by cfg, which must be valid.
func run(cfg *config.Config) (*Summary, error) {
	var repo *hub.Repo
	if cfg.Model != "" {
		repo = hub.New(cfg.Model).WithRevision(cfg.Revision)
		if cfg.CacheDir != "" {
			repo = repo.WithCacheDir(cfg.CacheDir)
		}
	}

	encoder, err := loadEncoder(cfg, repo)
	if err != nil {
		return nil, err
	}
	vocab, err := loadTags(cfg, repo)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("tags: %s", vocab)
	examples, err := loadExamples(cfg, vocab)
	if err != nil {
		return nil, err
	}

	strategy, err := align.ParseStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}
	aligner, err := align.New(encoder, vocab, align.WithStrategy(strategy))
	if err != nil {
		return nil, err
	}
	collator := collate.New(aligner, collate.WithParallelism(cfg.Parallelism))

	summary := newSummary(cfg, len(examples))
	var batches []*collate.Collated
	for batchIdx, collated := range collator.CollateAll(datasets.Batches(examples, cfg.BatchSize)) {
		summary.add(batchIdx, collated)
		if cfg.Output != "" {
			batches = append(batches, collated)
		}
		klog.V(1).Infof("batch #%d: %d examples, %d failed", batchIdx, collated.Len(), len(collated.Errors))
	}
	if cfg.Output != "" {
		if err := datasets.WriteEncodedParquet(cfg.Output, batches...); err != nil {
			return nil, err
		}
	}
	return summary, nil
}

// loadEncoder creates the fixed length encoder from the local tokenizer directory, or from the repo.
func loadEncoder(cfg *config.Config, repo *hub.Repo) (*tokenizers.FixedLength, error) {
	var (
		tok api.Tokenizer
		err error
	)
	if cfg.TokenizerDir != "" {
		tok, err = tokenizers.NewFromDir(cfg.TokenizerDir)
	} else {
		tok, err = tokenizers.New(repo)
	}
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create tokenizer")
	}
	wordsTok, ok := tok.(api.WordsTokenizer)
	if !ok {
		return nil, errors.Errorf("tokenizer %T can't encode pre-split words", tok)
	}
	return tokenizers.NewFixedLength(wordsTok, cfg.MaxLen)
}

// ModelConfigFile holds the model configuration, including its label2id mapping.
const ModelConfigFile = "config.json"

func loadTags(cfg *config.Config, repo *hub.Repo) (*tagset.Vocabulary, error) {
	switch cfg.Tags {
	case "":
		return tagset.FromNames(cfg.TagNames)
	case config.TagsFromModel:
		configPath, err := repo.DownloadFile(ModelConfigFile)
		if err != nil {
			return nil, errors.WithMessagef(err, "failed to download the tag mapping of %s", repo)
		}
		return tagset.Load(configPath)
	default:
		return tagset.Load(cfg.Tags)
	}
}

func loadExamples(cfg *config.Config, vocab *tagset.Vocabulary) ([]datasets.Example, error) {
	if cfg.InputFormat() == config.FormatParquet {
		return datasets.ReadParquet(cfg.Input, vocab)
	}
	return datasets.ReadCoNLLFile(cfg.Input, datasets.WithTagColumn(cfg.TagColumn))
}
