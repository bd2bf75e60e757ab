package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/config"
	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/db"
	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/gbfs"
	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/genai"
	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/pipeline"
	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/snapshot"
)

type flags struct {
	noGenAI  bool
	noMap    bool
	noDB     bool
	feedName string
	replay   string
	ask      string
}

func main() {
	var f flags
	flag.BoolVar(&f.noGenAI, "no-genai", false, "skip the AI analysis step")
	flag.BoolVar(&f.noMap, "no-map", false, "skip the GeoJSON map export")
	flag.BoolVar(&f.noDB, "no-db", false, "skip storing the snapshot in Postgres")
	flag.StringVar(&f.feedName, "feed", "", "fetch and archive a single feed, print a summary and exit (one of: "+feedNames()+")")
	flag.StringVar(&f.replay, "replay", "", "run the pipeline over an archived snapshot CSV instead of the live feeds")
	flag.StringVar(&f.ask, "ask", "", "question to put to the AI model with the snapshot summary as context")
	flag.Parse()

	if err := run(f); err != nil {
		log.Fatalf("watcher failed: %v", err)
	}
}

func feedNames() string {
	names := make([]string, 0, len(gbfs.Feeds()))
	for _, f := range gbfs.Feeds() {
		names = append(names, f.String())
	}
	return strings.Join(names, ", ")
}

func run(f flags) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	archiveDir := ""
	if cfg.ArchiveRaw {
		archiveDir = cfg.DataDir
	}
	client := gbfs.NewClient(&http.Client{Timeout: cfg.RequestTimeout}, gbfs.Options{
		BaseURL:    cfg.GBFSBaseURL,
		Language:   cfg.Language,
		ArchiveDir: archiveDir,
	})

	if f.feedName != "" {
		return inspectFeed(ctx, client, f.feedName)
	}

	if f.replay == "" {
		if sys, err := client.SystemInformation(ctx); err != nil {
			log.Printf("system_information unavailable: %v", err)
		} else if sys.Data != nil {
			log.Printf("system %s (%s, tz=%s)", sys.Data.Name, sys.Data.SystemID, sys.Data.Timezone)
		}
	}

	pcfg := pipeline.Config{
		Builder:    snapshot.NewBuilder(client, cfg.DataDir),
		OutputDir:  cfg.OutputDir,
		MapName:    cfg.MapName,
		MapClasses: cfg.MapClasses,
	}

	useGenAI := !f.noGenAI
	switch {
	case !useGenAI:
	case !cfg.GenAIEnabled():
		log.Printf("warning: %v; continuing without genai", genai.ErrMissingAPIKey)
	default:
		ai, err := genai.New(genai.Config{APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel, BaseURL: cfg.OpenAIBaseURL})
		if err != nil {
			return err
		}
		pcfg.Analyst = ai
	}
	if f.ask != "" && pcfg.Analyst == nil {
		log.Printf("warning: -ask ignored without genai")
	}

	storeDB := !f.noDB && cfg.StorageEnabled()
	if storeDB {
		dbCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout+10*time.Second)
		defer cancel()

		pool, err := pgxpool.New(dbCtx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		if !cfg.DryRun {
			if err := db.EnsureSchema(dbCtx, pool); err != nil {
				return err
			}
		}
		pcfg.Store = db.NewWriter(pool, cfg.DryRun)
	}

	res, err := pipeline.New(pcfg).Run(ctx, pipeline.Options{
		UseGenAI:  useGenAI,
		CreateMap: !f.noMap,
		StoreDB:   storeDB,
		ReplayCSV: f.replay,
		Question:  f.ask,
	})
	if err != nil {
		return err
	}
	if step := res.Steps[pipeline.StepDataFetch]; step == nil || !step.Success {
		return errors.New("data fetch failed; see " + res.ResultsPath)
	}
	return nil
}

// inspectFeed fetches one feed, archives it and logs a short summary.
func inspectFeed(ctx context.Context, client *gbfs.Client, name string) error {
	feed, err := gbfs.ParseFeed(name)
	if err != nil {
		return err
	}

	switch feed {
	case gbfs.SystemInformation:
		sys, err := client.SystemInformation(ctx)
		if err != nil {
			return err
		}
		if sys.Data != nil {
			log.Printf("%s: %s operated by %s", feed, sys.Data.Name, sys.Data.Operator)
		}
		return nil
	case gbfs.SystemAlerts:
		alerts, err := client.SystemAlerts(ctx)
		if err != nil {
			return err
		}
		if alerts.Data != nil {
			log.Printf("%s: %d active alerts", feed, len(alerts.Data.Alerts))
			for _, a := range alerts.Data.Alerts {
				log.Printf("  [%s] %s (%d stations)", a.Type, a.Summary, len(a.StationIDs))
			}
		}
		return nil
	}

	body, err := client.Fetch(ctx, feed)
	if err != nil {
		return err
	}
	var envelope struct {
		Data struct {
			Stations     []json.RawMessage `json:"stations"`
			VehicleTypes []json.RawMessage `json:"vehicle_types"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return &gbfs.MalformedFeedError{Feed: feed, Reason: "unexpected envelope", Err: err}
	}
	log.Printf("%s: %d stations, %d vehicle types, %d bytes from %s",
		feed, len(envelope.Data.Stations), len(envelope.Data.VehicleTypes), len(body), client.URL(feed))
	return nil
}
