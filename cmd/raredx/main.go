package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/ewa/raredx/internal/models"
	"github.com/ewa/raredx/internal/types"
	cfgPkg "github.com/ewa/raredx/pkg/config"
	"github.com/ewa/raredx/pkg/dataset"
	"github.com/ewa/raredx/pkg/engine"
	"github.com/ewa/raredx/pkg/fetch"
	"github.com/ewa/raredx/pkg/llm"
	"github.com/ewa/raredx/pkg/store"
	"github.com/ewa/raredx/server"
)

type options struct {
	ConfigPath   string
	DatasetPath  string
	BaseURL      string
	Model        string
	EmbedModel   string
	Backend      string
	PersistDir   string
	DBUrl        string
	Serve        bool
	Port         string
	FetchPMIDs   string
	FetchDisease string
}

func main() {
	opts := parseFlags()

	if err := run(opts); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() options {
	var opts options

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to config file")
	flag.StringVar(&opts.DatasetPath, "dataset", "", "Path to the rare-disease dataset JSON")
	flag.StringVar(&opts.BaseURL, "ollama-url", os.Getenv("OLLAMA_BASE_URL"), "Ollama server URL")
	flag.StringVar(&opts.Model, "model", "", "LLM model for answer synthesis")
	flag.StringVar(&opts.EmbedModel, "embed-model", "", "Embedding model")
	flag.StringVar(&opts.Backend, "backend", "", "Vector store backend (local or postgres)")
	flag.StringVar(&opts.PersistDir, "persist-dir", "", "Persistence directory for the local backend")
	flag.StringVar(&opts.DBUrl, "db-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	flag.BoolVar(&opts.Serve, "serve", false, "Serve the HTTP/WebSocket interface instead of the chat loop")
	flag.StringVar(&opts.Port, "port", "", "Server port")
	flag.StringVar(&opts.FetchPMIDs, "fetch-pmids", "", "Comma-separated PubMed IDs to fetch before indexing")
	flag.StringVar(&opts.FetchDisease, "fetch-disease", "", "Disease the fetched papers belong to")
	flag.Parse()

	return opts
}

func loadConfig(opts options) (*cfgPkg.Config, error) {
	cfg, err := cfgPkg.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	// Command line flags win over file values
	if opts.DatasetPath != "" {
		cfg.Dataset.Path = opts.DatasetPath
	}
	if opts.BaseURL != "" {
		cfg.LLM.BaseURL = opts.BaseURL
	}
	if opts.Model != "" {
		cfg.LLM.Model = opts.Model
	}
	if opts.EmbedModel != "" {
		cfg.Embedder.Model = opts.EmbedModel
	}
	if opts.Backend != "" {
		cfg.Store.Backend = opts.Backend
	}
	if opts.PersistDir != "" {
		cfg.Store.PersistDir = opts.PersistDir
	}
	if opts.DBUrl != "" {
		cfg.Store.URL = opts.DBUrl
	}
	if opts.Port != "" {
		cfg.UI.Port = opts.Port
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		return nil, fmt.Errorf("invalid configuration")
	}

	return cfg, nil
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	records, err := dataset.Load(cfg.Dataset.Path)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	diseases := dataset.DiseaseNames(records)
	color.Blue("Loaded %d diseases from %s", len(diseases), cfg.Dataset.Path)

	if opts.FetchPMIDs != "" {
		if err := enrichDataset(records, opts); err != nil {
			return err
		}
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:     cfg.Embedder.Model,
		BatchSize: cfg.Embedder.BatchSize,
		BaseURL:   cfg.LLM.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}

	synth, err := llm.NewWithConfig(llm.SynthesizerConfig{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		BaseURL:     cfg.LLM.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize synthesizer: %w", err)
	}

	splitter := textsplitter.NewTokenSplitter(
		textsplitter.WithChunkSize(cfg.Splitter.ChunkSize),
		textsplitter.WithChunkOverlap(cfg.Splitter.ChunkOverlap),
	)

	storeConfig := store.StoreConfig{
		Backend:    cfg.Store.Backend,
		Collection: cfg.Store.Collection,
		VectorDim:  cfg.Embedder.VectorDim,
		PersistDir: cfg.Store.PersistDir,
		ConnString: cfg.Store.URL,
		TableName:  cfg.Store.TableName,
	}

	var bar *progressbar.ProgressBar
	pipeline, err := engine.NewWithConfig(engine.PipelineConfig{
		Records:     records,
		Splitter:    splitter,
		Embedder:    embedder,
		Synthesizer: synth,
		Collection: func(ctx context.Context) (types.Collection, error) {
			return store.ResetAndCreate(ctx, storeConfig)
		},
		TopK: cfg.Query.TopK,
		OnProgress: func(done, total int) {
			if bar == nil {
				bar = getProgressBar(total, "Indexing documents...")
			}
			bar.Set(done)
		},
	})
	if err != nil {
		return err
	}
	defer pipeline.Close()

	color.Blue("\nBuilding the clinical knowledge index")
	if err := pipeline.Build(context.Background()); err != nil {
		// Keep serving: queries will get the not-ready message.
		color.Red("\nInitialization failed: %v", err)
	} else {
		color.Green("\n✓ Index ready")
	}

	if opts.Serve {
		srv := server.New(pipeline, diseases)
		return srv.ListenAndServe(cfg.UI.Port)
	}

	return chatLoop(pipeline, diseases)
}

// enrichDataset fetches extra PubMed papers and attaches them to the given
// disease before the index is built.
func enrichDataset(records map[string]models.DiseaseRecord, opts options) error {
	if opts.FetchDisease == "" {
		return fmt.Errorf("-fetch-pmids requires -fetch-disease")
	}
	record, ok := records[opts.FetchDisease]
	if !ok {
		return fmt.Errorf("unknown disease %q", opts.FetchDisease)
	}

	fetcher, err := fetch.NewWithConfig(fetch.FetcherConfig{
		OnProgress: func(paperID string) {
			color.Blue("  fetched %s", paperID)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize fetcher: %w", err)
	}

	pmids := strings.Split(opts.FetchPMIDs, ",")
	for i := range pmids {
		pmids[i] = strings.TrimSpace(pmids[i])
	}

	papers, err := fetcher.FetchPapers(context.Background(), pmids)
	if err != nil {
		return fmt.Errorf("failed to fetch papers: %w", err)
	}

	record.Papers = append(record.Papers, papers...)
	records[opts.FetchDisease] = record
	color.Green("✓ Added %d papers to %s", len(papers), opts.FetchDisease)
	return nil
}

func chatLoop(pipeline *engine.Pipeline, diseases []string) error {
	color.Cyan("\nClinical Rare Disease Information System (type 'exit' to quit)")
	color.Cyan("Commands: /diseases, /disease <name>, /all, /examples")

	scope := types.AllDiseases
	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	answerPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\n[%s] You: ", scope)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch {
		case input == "":
			continue
		case strings.EqualFold(input, "exit"):
			return nil
		case input == "/diseases":
			for _, name := range diseases {
				fmt.Println("  " + name)
			}
			continue
		case input == "/all":
			scope = types.AllDiseases
			continue
		case strings.HasPrefix(input, "/disease "):
			scope = strings.TrimSpace(strings.TrimPrefix(input, "/disease "))
			continue
		case input == "/examples":
			for _, example := range server.Examples {
				fmt.Printf("  [%s] %s\n", example.Disease, example.Question)
			}
			continue
		}

		resp := pipeline.Query(context.Background(), types.QueryRequest{
			Question: input,
			Disease:  scope,
		})
		answerPrompt("\nAssistant: %s\n", resp.Answer)
	}

	return nil
}
