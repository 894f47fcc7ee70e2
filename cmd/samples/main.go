package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/conversation-insights/internal/aiclient"
	"github.com/codebuildervaibhav/conversation-insights/internal/config"
	"github.com/codebuildervaibhav/conversation-insights/internal/logging"
	"github.com/codebuildervaibhav/conversation-insights/internal/samples"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	outDir := flag.String("out", "", "output directory (defaults to storage.sample_dir)")
	only := flag.String("only", "", "generate a single scenario by id")
	multiVoice := flag.Bool("voices", false, "give each speaker in bidirectional scenarios its own voice")
	force := flag.Bool("force", false, "regenerate files that already exist")
	dryRun := flag.Bool("dry-run", false, "print the plan and estimated cost without calling the API")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		logrus.Fatalf("Failed to load .env: %v", err)
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		logrus.Fatal(err)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, nil)

	dir := *outDir
	if dir == "" {
		dir = cfg.Storage.SampleDir
	}

	scenarios := samples.Scenarios()
	if *only != "" {
		s, ok := samples.Find(*only)
		if !ok {
			log.Fatalf("Unknown scenario %q", *only)
		}
		scenarios = []samples.Scenario{s}
	}

	var todo []samples.Scenario
	for _, s := range scenarios {
		if _, err := os.Stat(filepath.Join(dir, s.Filename)); err == nil && !*force {
			log.WithField("file", s.Filename).Info("Already exists, skipping")
			continue
		}
		todo = append(todo, s)
	}

	fmt.Printf("Creating %d sample audio files in %s\n", len(todo), dir)
	fmt.Printf("Estimated cost: $%.4f\n", samples.EstimatedCost(todo))
	if *dryRun || len(todo) == 0 {
		return
	}

	apiKey, err := cfg.ResolveAPIKey()
	if errors.Is(err, config.ErrMissingAPIKey) {
		log.Fatal("OpenAI API key not found. Add OPENAI_API_KEY to .env or config/secrets.yaml")
	} else if err != nil {
		log.Fatalf("Failed to read API key: %v", err)
	}

	client := aiclient.New(apiKey, cfg.OpenAI.BaseURL, time.Duration(cfg.OpenAI.TimeoutSeconds)*time.Second)
	gen := samples.NewGenerator(client, cfg.OpenAI.SpeechModel, cfg.OpenAI.SpeechVoice, log)

	created := 0
	for _, s := range todo {
		if err := gen.Generate(context.Background(), s, filepath.Join(dir, s.Filename), *multiVoice); err != nil {
			log.WithError(err).WithField("scenario", s.Name).Error("Failed to create sample")
			continue
		}
		created++
	}

	fmt.Printf("Created %d of %d sample files\n", created, len(todo))
	if created < len(todo) {
		os.Exit(1)
	}
}

// loadConfig reads and validates the config so a bad speech model or voice
// fails before any API call
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
