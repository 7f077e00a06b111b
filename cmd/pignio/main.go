package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/octospacc/Pignio/internal/logger"
	"github.com/octospacc/Pignio/pkg/config"
	"github.com/octospacc/Pignio/pkg/identifier"
	"github.com/octospacc/Pignio/pkg/media"
	"github.com/octospacc/Pignio/pkg/moderation"
	"github.com/octospacc/Pignio/pkg/scrape"
	"github.com/octospacc/Pignio/pkg/store/cache"
	"github.com/octospacc/Pignio/pkg/store/collection"
	"github.com/octospacc/Pignio/pkg/store/item"
	"github.com/octospacc/Pignio/pkg/store/user"
)

const usage = `Usage: pignio [flags] <command>

Commands:
  stats                 print item and user counts
  walk [subtree]        list stored items (top-level)
  comments [subtree]    list stored comments
  folders [subtree]     list item folders
  prune <username>      remove the user's empty named collections
  scrape <url>          print the page metadata a URL save would pre-fill
  report <id> <user>    append a user report to the moderation log
  events                print the moderation event log

Flags:
`

func main() {
	configPath := flag.String("config", "", "Path to config file")
	logLevel := flag.String("log-level", "", "Override log level (DEBUG, INFO, WARN, ERROR)")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	logger.SetLevel(cfg.Logging.Level)
	switch cfg.Logging.Output {
	case "stdout", "":
	case "stderr":
		logger.SetOutput(os.Stderr)
	default:
		f, err := os.OpenFile(cfg.Logging.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Fatalf("Failed to open log output: %v", err)
		}
		defer f.Close()
		logger.SetOutput(f)
	}

	ids, err := identifier.NewService(cfg.Identifier.Node)
	if err != nil {
		log.Fatalf("Failed to create identifier service: %v", err)
	}

	ingest := media.NewIngestor(media.Options{
		FetchTimeout:   cfg.Media.FetchTimeout,
		FetchRate:      cfg.Media.FetchRate,
		FetchBurst:     cfg.Media.FetchBurst,
		OCRCommand:     cfg.Media.OCRCommand,
		FFprobeCommand: cfg.Media.FFprobeCommand,
	})

	users := user.NewStore(cfg.UsersRoot(), cfg.Storage.BackupOnWrite)
	pins := collection.NewIndex(users, cfg.Storage.BackupOnWrite)
	artifacts := cache.New(cfg.CacheRoot(), cfg.Media.ProxyCache)
	items := item.NewStore(cfg.ItemsRoot(), ids, ingest, artifacts, pins, cfg.Storage.BackupOnWrite)
	modlog := moderation.New(cfg.ModerationLogPath(), cfg.Moderation.QueueSize)

	ctx := context.Background()

	if err := run(ctx, flag.Args(), items, users, pins, ingest, modlog); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, args []string, items *item.Store, users *user.Store, pins *collection.Index, ingest *media.Ingestor, modlog *moderation.Log) error {
	command := args[0]

	switch command {
	case "stats":
		itemCount, err := items.Count(ctx)
		if err != nil {
			return fmt.Errorf("failed to count items: %w", err)
		}
		userCount, err := users.Count()
		if err != nil {
			return fmt.Errorf("failed to count users: %w", err)
		}
		fmt.Printf("items: %d\nusers: %d\n", itemCount, userCount)

	case "walk", "comments":
		subtree := ""
		if len(args) > 1 {
			subtree = args[1]
		}
		records, err := items.Walk(ctx, item.WalkOptions{Path: subtree, Comments: command == "comments"})
		if err != nil {
			return fmt.Errorf("failed to walk items: %w", err)
		}
		item.SortRecords(records, "datetime", false)
		for _, rec := range records {
			fmt.Printf("%s\t%s\t%s\n", rec.ID, rec.Creator, rec.Title)
		}

	case "folders":
		subtree := ""
		if len(args) > 1 {
			subtree = args[1]
		}
		folders, err := items.ListFolders(ctx, subtree)
		if err != nil {
			return fmt.Errorf("failed to list folders: %w", err)
		}
		for _, folder := range folders {
			fmt.Println(folder)
		}

	case "prune":
		if len(args) < 2 {
			return fmt.Errorf("prune requires a username")
		}
		username := args[1]
		all, err := pins.WalkAll(ctx, username)
		if err != nil {
			return fmt.Errorf("failed to walk collections: %w", err)
		}
		for id, coll := range all {
			if id == "" || len(coll.Items) > 0 {
				continue
			}
			if err := pins.Delete(username, id); err != nil {
				return fmt.Errorf("failed to delete collection %q: %w", id, err)
			}
			logger.Info("Removed empty collection %s/%s", username, id)
		}

	case "scrape":
		if len(args) < 2 {
			return fmt.Errorf("scrape requires a URL")
		}
		data, err := scrape.Fetch(ctx, ingest, args[1])
		if err != nil {
			return fmt.Errorf("failed to scrape %q: %w", args[1], err)
		}
		fmt.Printf("title: %s\ndescription: %s\nlink: %s\n", data.Title, data.Description, data.Link)
		for kind, ref := range data.Media {
			fmt.Printf("%s: %s\n", kind, ref)
		}

	case "report":
		if len(args) < 3 {
			return fmt.Errorf("report requires an item ID and a reporter username")
		}
		if err := modlog.Start(); err != nil {
			return fmt.Errorf("failed to start moderation log: %w", err)
		}
		err := modlog.Report(args[1], args[2])
		modlog.Stop()
		if err != nil {
			return fmt.Errorf("failed to record report: %w", err)
		}

	case "events":
		events, err := modlog.ReadAll()
		if err != nil {
			return fmt.Errorf("failed to read moderation log: %w", err)
		}
		for _, event := range events {
			fmt.Println(event.Line())
		}

	default:
		return fmt.Errorf("unknown command %q", command)
	}

	return nil
}
