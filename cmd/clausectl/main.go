package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/app"
	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/clause"
	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/events"
	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/partition"
	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/logger"
)

// clausectl is an operator tool for ClauseCop.
//
// Usage:
//
//	clausectl migrate
//	clausectl process   --id 42
//	clausectl reprocess --id 42
//	clausectl clauses   --id 42
//	clausectl documents [--limit 20]
//	clausectl drafts    --file elements.json
func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// drafts works offline on a saved partition response.
	if args[0] == "drafts" {
		cmdDrafts(args[1:])
		return
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, nil)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	switch args[0] {
	case "migrate":
		cmdMigrate(ctx, a)
	case "process":
		cmdProcess(ctx, a, args[1:])
	case "reprocess":
		cmdReprocess(ctx, a, args[1:])
	case "clauses":
		cmdClauses(ctx, a, args[1:])
	case "documents":
		cmdDocuments(ctx, a, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func cmdMigrate(ctx context.Context, a *app.App) {
	if err := a.Store.Migrate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Schema is up to date.")
}

func documentIDFlag(name string, args []string) int64 {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	id := fs.Int64("id", 0, "document id")
	fs.Parse(args)
	if *id <= 0 {
		fmt.Fprintln(os.Stderr, "error: --id is required")
		os.Exit(1)
	}
	return *id
}

// cmdProcess runs the pipeline in this process and waits for it.
func cmdProcess(ctx context.Context, a *app.App, args []string) {
	id := documentIDFlag("process", args)
	if err := a.Store.MarkProcessing(ctx, id); err != nil {
		fmt.Fprintf(os.Stderr, "failed to reset document: %v\n", err)
		os.Exit(1)
	}

	start := time.Now()
	if err := a.Processor.Process(ctx, id); err != nil {
		fmt.Fprintf(os.Stderr, "processing failed: %v\n", err)
		var pe *pipeline.ProcessError
		if errors.As(err, &pe) && !pe.StateRecorded() {
			fmt.Fprintln(os.Stderr, "warning: the failed state could not be recorded")
		}
		os.Exit(1)
	}

	doc, err := a.Store.GetDocument(ctx, id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to reload document: %v\n", err)
		os.Exit(1)
	}
	clauses, err := a.Store.ListClauses(ctx, id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list clauses: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document %d is %s with %d clause(s) in %s.\n",
		doc.ID, doc.Status, len(clauses), time.Since(start).Round(time.Millisecond))
}

// cmdReprocess queues the document for a worker.
func cmdReprocess(ctx context.Context, a *app.App, args []string) {
	id := documentIDFlag("reprocess", args)
	if !a.Config.Kafka.Enabled {
		fmt.Fprintln(os.Stderr, "error: kafka is disabled; use 'process' to run inline")
		os.Exit(1)
	}
	if _, err := a.Store.GetDocument(ctx, id); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	producer := kafka.NewProducer(a.Config.Kafka, a.Config.Kafka.Topics.DocumentReprocess)
	defer producer.Close()
	if err := events.RequestReprocess(ctx, producer, id); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Reprocess of document %d queued on %s.\n", id, a.Config.Kafka.Topics.DocumentReprocess)
}

func cmdClauses(ctx context.Context, a *app.App, args []string) {
	id := documentIDFlag("clauses", args)
	clauses, err := a.Store.ListClauses(ctx, id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list clauses: %v\n", err)
		os.Exit(1)
	}
	if len(clauses) == 0 {
		fmt.Println("No clauses.")
		return
	}

	fmt.Printf("%-5s  %-8s  %-40s  %s\n", "Index", "Section", "Title", "Pages")
	fmt.Println("-----  --------  ----------------------------------------  -------")
	for _, c := range clauses {
		fmt.Printf("%-5d  %-8s  %-40s  %d-%d\n",
			c.ClauseIndex, deref(c.SectionNumber), truncate(deref(c.Title), 40), c.PageStart, c.PageEnd)
	}
	fmt.Printf("\nTotal: %d clause(s)\n", len(clauses))
}

func cmdDocuments(ctx context.Context, a *app.App, args []string) {
	fs := flag.NewFlagSet("documents", flag.ExitOnError)
	limit := fs.Int("limit", 20, "number of documents to show")
	fs.Parse(args)

	docs, err := a.Store.ListDocuments(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list documents: %v\n", err)
		os.Exit(1)
	}
	if len(docs) == 0 {
		fmt.Println("No documents.")
		return
	}

	fmt.Printf("%-8s  %-10s  %-5s  %-32s  %s\n", "ID", "Status", "Pages", "Filename", "Error")
	fmt.Println("--------  ----------  -----  --------------------------------  -----")
	for _, d := range docs {
		pages := "-"
		if d.PageCount != nil {
			pages = strconv.Itoa(*d.PageCount)
		}
		fmt.Printf("%-8d  %-10s  %-5s  %-32s  %s\n",
			d.ID, d.Status, pages, truncate(d.Filename, 32), truncate(deref(d.ErrorMessage), 60))
	}
}

// cmdDrafts prints the clause drafts a saved partition response would yield.
func cmdDrafts(args []string) {
	fs := flag.NewFlagSet("drafts", flag.ExitOnError)
	file := fs.String("file", "", "path to a partition response (JSON array of elements)")
	fs.Parse(args)
	if *file == "" {
		fmt.Fprintln(os.Stderr, "error: --file is required")
		os.Exit(1)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reading %s: %v\n", *file, err)
		os.Exit(1)
	}
	var elements []partition.Element
	if err := json.Unmarshal(data, &elements); err != nil {
		fmt.Fprintf(os.Stderr, "parsing %s: %v\n", *file, err)
		os.Exit(1)
	}

	res := clause.Build(elements)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res.Drafts); err != nil {
		fmt.Fprintf(os.Stderr, "writing drafts: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "%d element(s), %d heading(s), %d draft(s), %d discarded, %d orphan(s)\n",
		len(elements), res.Headings, len(res.Drafts), res.Discarded, res.Orphans)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: clausectl [-config path] <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  migrate     Create the documents and clauses tables")
	fmt.Fprintln(os.Stderr, "  process     Run the pipeline for a document and wait")
	fmt.Fprintln(os.Stderr, "  reprocess   Queue a document for the worker")
	fmt.Fprintln(os.Stderr, "  clauses     List a document's clauses")
	fmt.Fprintln(os.Stderr, "  documents   List recent documents")
	fmt.Fprintln(os.Stderr, "  drafts      Build clause drafts from a saved partition response")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Examples:")
	fmt.Fprintln(os.Stderr, `  clausectl process --id 42`)
	fmt.Fprintln(os.Stderr, `  clausectl drafts --file testdata/msa-elements.json`)
}
