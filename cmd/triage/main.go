// Command triage runs one batch triage invocation: it pulls recent
// conversations from the configured mail accounts, classifies them
// through the oracle, and writes the resulting digest report as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/sfioritto/inbox-triage/pkg/config"
	"github.com/sfioritto/inbox-triage/pkg/logging"
	"github.com/sfioritto/inbox-triage/pkg/mail"
	"github.com/sfioritto/inbox-triage/pkg/oracle"
	"github.com/sfioritto/inbox-triage/pkg/report"
	"github.com/sfioritto/inbox-triage/pkg/triage"
)

func main() {
	configPath := flag.String("config", "triage.yaml", "path to the configuration file")
	out := flag.String("out", "", "write the report JSON here instead of stdout")
	logLevel := flag.String("log-level", "", "override the configured log level")
	dryRun := flag.Bool("dry-run", false, "fetch and print the conversation pool without classifying")
	flag.Parse()

	if err := run(*configPath, *out, *logLevel, *dryRun); err != nil {
		fmt.Fprintf(os.Stderr, "triage: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, outPath, logLevel string, dryRun bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := setupLogging(cfg.Logging); err != nil {
		return err
	}

	ctx := context.Background()
	logger := logging.GetLogger()

	var retrievers []mail.Retriever
	for _, account := range cfg.Accounts {
		r, err := mail.NewGmailRetriever(ctx, mail.GmailOptions{
			AccountName:     account.Name,
			CredentialsFile: account.CredentialsFile,
			TokenFile:       account.TokenFile,
			BodyLimit:       cfg.Retrieval.BodyLimit,
		})
		if err != nil {
			// A broken account degrades to an empty contribution.
			logger.Warn(ctx, "account %s unavailable: %v", account.Name, err)
			continue
		}
		retrievers = append(retrievers, r)
	}

	pool := mail.FetchPool(ctx, retrievers, cfg.Retrieval.Query, cfg.Retrieval.Limit)

	if dryRun {
		return writeJSON(outPath, pool)
	}

	o, err := oracle.NewAnthropicOracle(oracle.AnthropicOptions{
		APIKey:      cfg.Oracle.APIKey,
		Model:       cfg.Oracle.ModelID,
		MaxTokens:   cfg.Oracle.MaxTokens,
		Temperature: cfg.Oracle.Temperature,
		Retry: oracle.RetryPolicy{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  cfg.Retry.BaseDelay(),
		},
	})
	if err != nil {
		return err
	}

	batcher := triage.Batcher{Size: cfg.Batch.Size, Stagger: cfg.Batch.Stagger()}

	var opts []triage.Option
	if cfg.Checkpoint.Path != "" {
		store, err := triage.OpenCheckpointStore(cfg.Checkpoint.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, triage.WithCheckpoints(store))
	}

	pipeline := triage.New(o, batcher, opts...)
	digest, err := pipeline.Run(ctx, pool)
	if err != nil {
		return err
	}

	return writeJSON(outPath, report.Build(*digest, pool))
}

func setupLogging(cfg config.LoggingConfig) error {
	outputs := []logging.Output{logging.NewConsoleOutput(true)}
	if cfg.File != "" {
		fileOut, err := logging.NewFileOutput(cfg.File)
		if err != nil {
			return err
		}
		outputs = append(outputs, fileOut)
	}
	logging.SetLogger(logging.NewLogger(logging.Config{
		Severity: logging.ParseSeverity(cfg.Level),
		Outputs:  outputs,
	}))
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
