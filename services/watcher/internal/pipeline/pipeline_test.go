package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/models"
	"github.com/02loveslollipop/bixi-station-insights/services/watcher/internal/snapshot"
)

func f64(v float64) *float64 { return &v }

var fixedNow = time.Date(2024, 6, 1, 14, 3, 9, 0, time.UTC)

func records() []models.StationRecord {
	return []models.StationRecord{
		{StationID: "42", Name: "Parc", Lon: f64(-73.5), Lat: f64(45.5), NumBikesAvailable: 3, NumDocksAvailable: 7, TotalCapacity: 10, UtilizationRate: 0.3},
		{StationID: "43", Name: "Mont-Royal", Lon: f64(-73.58), Lat: f64(45.52), NumBikesAvailable: 9, NumDocksAvailable: 1, TotalCapacity: 10, UtilizationRate: 0.9},
	}
}

type fakeBuilder struct {
	result *snapshot.Result
	err    error
}

func (f *fakeBuilder) Build(context.Context) (*snapshot.Result, error) { return f.result, f.err }

type fakeAnalyst struct {
	summaries  []string
	stats      []any
	questions  []string
	background []string
	designErr  error
	summaryErr error
	chatErr    error
	err        error
}

func (f *fakeAnalyst) Analyze(_ context.Context, summary string) (string, error) {
	f.summaries = append(f.summaries, summary)
	return "analysis text", f.err
}

func (f *fakeAnalyst) MapDesign(context.Context, string, string) (string, error) {
	return "design text", f.designErr
}

func (f *fakeAnalyst) Summarize(_ context.Context, stats any) (string, error) {
	f.stats = append(f.stats, stats)
	return "summary text", f.summaryErr
}

func (f *fakeAnalyst) Chat(_ context.Context, message, background string) (string, error) {
	f.questions = append(f.questions, message)
	f.background = append(f.background, background)
	return "answer text", f.chatErr
}

func (f *fakeAnalyst) Model() string { return "test-model" }

type fakeStore struct {
	saved []string
	err   error
}

func (f *fakeStore) SaveSnapshot(_ context.Context, snap *snapshot.Snapshot, csvPath string) (int, error) {
	f.saved = append(f.saved, snap.ID().String()+"|"+csvPath)
	return snap.Len(), f.err
}

func newPipeline(t *testing.T, b SnapshotBuilder, a Analyst, s Store) (*Pipeline, string) {
	t.Helper()
	out := t.TempDir()
	p := New(Config{Builder: b, Analyst: a, Store: s, OutputDir: out, MapName: "BIXI_Analysis_Map", MapClasses: 3})
	p.now = func() time.Time { return fixedNow }
	return p, out
}

func builtResult() *snapshot.Result {
	return &snapshot.Result{
		Snapshot:            snapshot.New(fixedNow, records()),
		CSVPath:             "data/combined_stations_20240601_140309.csv",
		InformationStations: 3,
		StatusStations:      2,
	}
}

func TestRunAllSteps(t *testing.T) {
	analyst := &fakeAnalyst{}
	store := &fakeStore{}
	p, out := newPipeline(t, &fakeBuilder{result: builtResult()}, analyst, store)

	res, err := p.Run(context.Background(), Options{UseGenAI: true, CreateMap: true, StoreDB: true})
	require.NoError(t, err)

	assert.False(t, res.Failed())
	for _, name := range []string{StepDataFetch, StepStorage, StepGenAIAnalysis, StepMapCreation} {
		require.Contains(t, res.Steps, name)
		assert.True(t, res.Steps[name].Success, name)
	}
	assert.Equal(t, 2, res.Steps[StepDataFetch].Details["num_stations"])
	assert.Equal(t, 2, res.Stats.Stations)
	require.Len(t, store.saved, 1)
	assert.Contains(t, store.saved[0], "combined_stations_20240601_140309.csv")

	require.Len(t, analyst.summaries, 1)
	assert.Contains(t, analyst.summaries[0], "Total Stations: 2")
	require.Len(t, analyst.stats, 1)
	assert.Equal(t, *res.Stats, analyst.stats[0])
	assert.Empty(t, analyst.questions)
	assert.Equal(t, "summary text", res.Steps[StepGenAIAnalysis].Details["summary"])
	assert.NotContains(t, res.Steps[StepGenAIAnalysis].Details, "question")

	for _, name := range []string{
		"genai_analysis_20240601_140309.txt",
		"map_design_recommendations_20240601_140309.txt",
		"genai_summary_20240601_140309.txt",
		"BIXI_Analysis_Map_20240601_140309.geojson",
		"pipeline_results_20240601_140309.json",
	} {
		assert.FileExists(t, filepath.Join(out, name))
	}

	data, err := os.ReadFile(res.ResultsPath)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, res.RunID.String(), decoded["run_id"])
	assert.Contains(t, decoded["steps"], StepMapCreation)
}

func TestRunFetchFailureStopsPipeline(t *testing.T) {
	analyst := &fakeAnalyst{}
	store := &fakeStore{}
	p, out := newPipeline(t, &fakeBuilder{err: errors.New("feed down")}, analyst, store)

	res, err := p.Run(context.Background(), Options{UseGenAI: true, CreateMap: true, StoreDB: true})
	require.NoError(t, err)

	assert.True(t, res.Failed())
	assert.Equal(t, "feed down", res.Steps[StepDataFetch].Error)
	assert.Len(t, res.Steps, 1)
	assert.Empty(t, analyst.summaries)
	assert.Empty(t, store.saved)
	assert.FileExists(t, filepath.Join(out, "pipeline_results_20240601_140309.json"))
}

func TestRunEmptySnapshotFails(t *testing.T) {
	empty := &snapshot.Result{Snapshot: snapshot.New(fixedNow, nil)}
	p, _ := newPipeline(t, &fakeBuilder{result: empty}, nil, nil)

	res, err := p.Run(context.Background(), Options{CreateMap: true})
	require.NoError(t, err)

	assert.False(t, res.Steps[StepDataFetch].Success)
	assert.NotContains(t, res.Steps, StepMapCreation)
}

func TestRunSkipsUnconfiguredSteps(t *testing.T) {
	p, out := newPipeline(t, &fakeBuilder{result: builtResult()}, nil, nil)

	res, err := p.Run(context.Background(), Options{UseGenAI: true, StoreDB: true})
	require.NoError(t, err)

	assert.False(t, res.Failed())
	assert.True(t, res.Steps[StepStorage].Skipped)
	assert.True(t, res.Steps[StepGenAIAnalysis].Skipped)
	assert.True(t, res.Steps[StepMapCreation].Skipped)
	assert.NoFileExists(t, filepath.Join(out, "genai_analysis_20240601_140309.txt"))
}

func TestRunStepFailuresAreIsolated(t *testing.T) {
	analyst := &fakeAnalyst{err: errors.New("quota")}
	store := &fakeStore{err: errors.New("db down")}
	p, out := newPipeline(t, &fakeBuilder{result: builtResult()}, analyst, store)

	res, err := p.Run(context.Background(), Options{UseGenAI: true, CreateMap: true, StoreDB: true})
	require.NoError(t, err)

	assert.True(t, res.Failed())
	assert.Equal(t, "db down", res.Steps[StepStorage].Error)
	assert.Equal(t, "quota", res.Steps[StepGenAIAnalysis].Error)
	assert.True(t, res.Steps[StepMapCreation].Success)
	assert.FileExists(t, filepath.Join(out, "BIXI_Analysis_Map_20240601_140309.geojson"))
}

func TestRunMapDesignFailureKeepsAnalysis(t *testing.T) {
	analyst := &fakeAnalyst{designErr: errors.New("timeout")}
	p, out := newPipeline(t, &fakeBuilder{result: builtResult()}, analyst, nil)

	res, err := p.Run(context.Background(), Options{UseGenAI: true})
	require.NoError(t, err)

	step := res.Steps[StepGenAIAnalysis]
	assert.True(t, step.Success)
	assert.Equal(t, "timeout", step.Details["design_error"])
	assert.FileExists(t, filepath.Join(out, "genai_analysis_20240601_140309.txt"))
	assert.NoFileExists(t, filepath.Join(out, "map_design_recommendations_20240601_140309.txt"))
}

func TestRunReplayCSV(t *testing.T) {
	csvPath, err := snapshot.SaveCSV(t.TempDir(), fixedNow, records())
	require.NoError(t, err)

	p, _ := newPipeline(t, &fakeBuilder{err: errors.New("must not be called")}, nil, nil)

	res, err := p.Run(context.Background(), Options{CreateMap: true, ReplayCSV: csvPath})
	require.NoError(t, err)

	fetch := res.Steps[StepDataFetch]
	assert.True(t, fetch.Success)
	assert.Equal(t, true, fetch.Details["replayed"])
	assert.Equal(t, 2, res.Steps[StepMapCreation].Details["features"])
}

func TestRunCorruptReplayCSVFailsFetch(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "combined_stations_20240601_140309.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("station_id,name\n\"42,Parc\n"), 0o644))

	p, out := newPipeline(t, &fakeBuilder{err: errors.New("must not be called")}, nil, nil)

	var (
		res *Results
		err error
	)
	require.NotPanics(t, func() {
		res, err = p.Run(context.Background(), Options{CreateMap: true, ReplayCSV: csvPath})
	})
	require.NoError(t, err)

	fetch := res.Steps[StepDataFetch]
	assert.False(t, fetch.Success)
	assert.Contains(t, fetch.Error, "read row")
	assert.NotContains(t, res.Steps, StepMapCreation)
	assert.FileExists(t, filepath.Join(out, "pipeline_results_20240601_140309.json"))
}

func TestRunAsksQuestionWithSummaryContext(t *testing.T) {
	analyst := &fakeAnalyst{}
	p, out := newPipeline(t, &fakeBuilder{result: builtResult()}, analyst, nil)

	res, err := p.Run(context.Background(), Options{UseGenAI: true, Question: "Which stations need rebalancing?"})
	require.NoError(t, err)

	require.Equal(t, []string{"Which stations need rebalancing?"}, analyst.questions)
	assert.Contains(t, analyst.background[0], "Total Stations: 2")

	details := res.Steps[StepGenAIAnalysis].Details
	assert.Equal(t, "Which stations need rebalancing?", details["question"])
	assert.Equal(t, "answer text", details["answer"])

	data, err := os.ReadFile(filepath.Join(out, "genai_chat_20240601_140309.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "A: answer text")
}

func TestRunSummaryAndChatFailuresKeepAnalysis(t *testing.T) {
	analyst := &fakeAnalyst{summaryErr: errors.New("rate limited"), chatErr: errors.New("timeout")}
	p, out := newPipeline(t, &fakeBuilder{result: builtResult()}, analyst, nil)

	res, err := p.Run(context.Background(), Options{UseGenAI: true, Question: "How busy is downtown?"})
	require.NoError(t, err)

	step := res.Steps[StepGenAIAnalysis]
	assert.True(t, step.Success)
	assert.Equal(t, "rate limited", step.Details["summary_error"])
	assert.Equal(t, "timeout", step.Details["chat_error"])
	assert.NotContains(t, step.Details, "answer")
	assert.FileExists(t, filepath.Join(out, "genai_analysis_20240601_140309.txt"))
	assert.NoFileExists(t, filepath.Join(out, "genai_summary_20240601_140309.txt"))
	assert.NoFileExists(t, filepath.Join(out, "genai_chat_20240601_140309.txt"))
}
