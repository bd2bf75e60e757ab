// Package pipeline runs one watcher cycle: snapshot, storage, AI analysis and
// map export, recording the outcome of every step.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/geo"
	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/snapshot"
	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/utils"
)

// Step names used as keys in Results.Steps.
const (
	StepDataFetch     = "data_fetch"
	StepStorage       = "storage"
	StepGenAIAnalysis = "genai_analysis"
	StepMapCreation   = "map_creation"
)

const topStations = 5

// SnapshotBuilder produces a snapshot from the live feeds.
type SnapshotBuilder interface {
	Build(ctx context.Context) (*snapshot.Result, error)
}

// Analyst produces the AI analysis texts.
type Analyst interface {
	Analyze(ctx context.Context, summary string) (string, error)
	MapDesign(ctx context.Context, analysis, summary string) (string, error)
	Summarize(ctx context.Context, stats any) (string, error)
	Chat(ctx context.Context, message, background string) (string, error)
	Model() string
}

// Store persists a snapshot and reports how many stations reported since
// the previous stored snapshot.
type Store interface {
	SaveSnapshot(ctx context.Context, snap *snapshot.Snapshot, csvPath string) (fresh int, err error)
}

// Options toggles the optional steps of a run.
type Options struct {
	UseGenAI  bool
	CreateMap bool
	StoreDB   bool
	// ReplayCSV, when set, loads a previously written snapshot CSV instead
	// of fetching the live feeds.
	ReplayCSV string
	// Question is sent to the analyst with the snapshot summary as context.
	Question string
}

// StepResult is the outcome of one step.
type StepResult struct {
	Success bool           `json:"success"`
	Skipped bool           `json:"skipped,omitempty"`
	Error   string         `json:"error,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Results is the record of a run written to pipeline_results_<ts>.json.
type Results struct {
	RunID       uuid.UUID              `json:"run_id"`
	StartedAt   time.Time              `json:"started_at"`
	FinishedAt  time.Time              `json:"finished_at"`
	SnapshotID  string                 `json:"snapshot_id,omitempty"`
	Stats       *snapshot.Stats        `json:"stats,omitempty"`
	Steps       map[string]*StepResult `json:"steps"`
	ResultsPath string                 `json:"-"`
}

// Failed reports whether any step that ran did not succeed.
func (r *Results) Failed() bool {
	for _, s := range r.Steps {
		if !s.Success && !s.Skipped {
			return true
		}
	}
	return false
}

// Config wires the collaborators of a Pipeline. Analyst and Store may be nil,
// in which case the matching steps are skipped.
type Config struct {
	Builder    SnapshotBuilder
	Analyst    Analyst
	Store      Store
	OutputDir  string
	MapName    string
	MapClasses int
}

// Pipeline runs watcher cycles.
type Pipeline struct {
	cfg Config
	now func() time.Time
}

// New returns a Pipeline.
func New(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg, now: time.Now}
}

// Run executes one cycle. Steps after a failed data fetch are not run. The
// returned error is reserved for failures writing the results file; step
// failures are reported in Results.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Results, error) {
	started := p.now().UTC().Truncate(time.Second)
	res := &Results{
		RunID:     uuid.New(),
		StartedAt: started,
		Steps:     make(map[string]*StepResult, 4),
	}
	ts := utils.FileTimestamp(started)
	log.Printf("pipeline run %s started", res.RunID)

	snap, csvPath, ok := p.fetch(ctx, opts, res)
	if ok {
		stats := snapshot.Summarize(snap.Records(), topStations)
		res.SnapshotID = snap.ID().String()
		res.Stats = &stats

		p.store(ctx, opts, res, snap, csvPath)
		p.analyze(ctx, opts, res, stats, ts)
		p.createMap(opts, res, snap)
	}

	res.FinishedAt = p.now().UTC().Truncate(time.Second)
	path, err := p.writeResults(res, ts)
	if err != nil {
		return res, err
	}
	res.ResultsPath = path
	log.Printf("pipeline run %s complete; results saved to %s", res.RunID, path)
	return res, nil
}

func (p *Pipeline) fetch(ctx context.Context, opts Options, res *Results) (*snapshot.Snapshot, string, bool) {
	step := &StepResult{Details: map[string]any{}}
	res.Steps[StepDataFetch] = step

	var (
		snap    *snapshot.Snapshot
		csvPath string
	)
	if opts.ReplayCSV != "" {
		records, err := snapshot.ReadCSVFile(opts.ReplayCSV)
		if err != nil {
			return nil, "", fail(step, StepDataFetch, err)
		}
		snap = snapshot.New(p.now(), records)
		csvPath = opts.ReplayCSV
		step.Details["replayed"] = true
	} else {
		built, err := p.cfg.Builder.Build(ctx)
		if err != nil {
			return nil, "", fail(step, StepDataFetch, err)
		}
		snap = built.Snapshot
		csvPath = built.CSVPath
		step.Details["information_stations"] = built.InformationStations
		step.Details["status_stations"] = built.StatusStations
		step.Details["skipped"] = built.Skipped
		step.Details["duplicates"] = built.Duplicates
		if built.PersistErr != nil {
			step.Details["csv_error"] = built.PersistErr.Error()
		}
	}

	if snap.Empty() {
		return nil, "", fail(step, StepDataFetch, errors.New("snapshot contains no stations"))
	}

	step.Success = true
	step.Details["num_stations"] = snap.Len()
	step.Details["columns"] = snapshot.Columns
	if csvPath != "" {
		step.Details["csv_path"] = csvPath
	}
	log.Printf("fetched %d stations", snap.Len())
	return snap, csvPath, true
}

func (p *Pipeline) store(ctx context.Context, opts Options, res *Results, snap *snapshot.Snapshot, csvPath string) {
	step := &StepResult{}
	res.Steps[StepStorage] = step
	if !opts.StoreDB || p.cfg.Store == nil {
		skip(step, StepStorage, "storage disabled or not configured")
		return
	}

	fresh, err := p.cfg.Store.SaveSnapshot(ctx, snap, csvPath)
	if err != nil {
		fail(step, StepStorage, err)
		return
	}
	step.Success = true
	step.Details = map[string]any{"stations": snap.Len(), "fresh_stations": fresh}
}

func (p *Pipeline) analyze(ctx context.Context, opts Options, res *Results, stats snapshot.Stats, ts string) {
	step := &StepResult{}
	res.Steps[StepGenAIAnalysis] = step
	if !opts.UseGenAI || p.cfg.Analyst == nil {
		skip(step, StepGenAIAnalysis, "genai not configured or disabled")
		return
	}

	summary := stats.String()
	analysis, err := p.cfg.Analyst.Analyze(ctx, summary)
	if err != nil {
		fail(step, StepGenAIAnalysis, err)
		return
	}
	step.Success = true
	step.Details = map[string]any{"model": p.cfg.Analyst.Model(), "analysis": analysis}
	p.saveText(step, "file_path", "genai_analysis_"+ts+".txt", analysis)

	if design, err := p.cfg.Analyst.MapDesign(ctx, analysis, summary); err != nil {
		log.Printf("map design recommendations failed: %v", err)
		step.Details["design_error"] = err.Error()
	} else {
		step.Details["design_recommendations"] = design
		p.saveText(step, "design_file_path", "map_design_recommendations_"+ts+".txt", design)
	}

	if text, err := p.cfg.Analyst.Summarize(ctx, stats); err != nil {
		log.Printf("genai summary failed: %v", err)
		step.Details["summary_error"] = err.Error()
	} else {
		step.Details["summary"] = text
		p.saveText(step, "summary_file_path", "genai_summary_"+ts+".txt", text)
	}

	if opts.Question != "" {
		answer, err := p.cfg.Analyst.Chat(ctx, opts.Question, summary)
		step.Details["question"] = opts.Question
		if err != nil {
			log.Printf("genai chat failed: %v", err)
			step.Details["chat_error"] = err.Error()
		} else {
			step.Details["answer"] = answer
			p.saveText(step, "chat_file_path", "genai_chat_"+ts+".txt", "Q: "+opts.Question+"\n\nA: "+answer+"\n")
		}
	}
	log.Printf("genai analysis complete")
}

// saveText writes content to the output directory and records its path
// under key. A write failure is logged and leaves the step successful.
func (p *Pipeline) saveText(step *StepResult, key, name, content string) {
	path, err := p.writeText(name, content)
	if err != nil {
		log.Printf("save %s failed: %v", name, err)
		return
	}
	step.Details[key] = path
}

func (p *Pipeline) createMap(opts Options, res *Results, snap *snapshot.Snapshot) {
	step := &StepResult{}
	res.Steps[StepMapCreation] = step
	if !opts.CreateMap {
		skip(step, StepMapCreation, "map creation disabled")
		return
	}

	records := snap.Records()
	breaks := geo.UtilizationBreaks(records, p.cfg.MapClasses)
	fc := geo.FeatureCollection(records, breaks)
	path, err := geo.Save(p.cfg.OutputDir, p.cfg.MapName, snap.TakenAt(), fc)
	if err != nil {
		fail(step, StepMapCreation, err)
		return
	}
	step.Success = true
	step.Details = map[string]any{"output_path": path, "features": len(fc.Features), "class_breaks": breaks}
	log.Printf("map written to %s (%d features)", path, len(fc.Features))
}

func (p *Pipeline) writeText(name, content string) (string, error) {
	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(p.cfg.OutputDir, name)
	return path, os.WriteFile(path, []byte(content), 0o644)
}

func (p *Pipeline) writeResults(res *Results, ts string) (string, error) {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode results: %w", err)
	}
	path, err := p.writeText("pipeline_results_"+ts+".json", string(data))
	if err != nil {
		return "", fmt.Errorf("write results: %w", err)
	}
	return path, nil
}

func fail(step *StepResult, name string, err error) bool {
	step.Success = false
	step.Error = err.Error()
	log.Printf("%s failed: %v", name, err)
	return false
}

func skip(step *StepResult, name, reason string) {
	step.Skipped = true
	step.Details = map[string]any{"reason": reason}
	log.Printf("skipping %s: %s", name, reason)
}
