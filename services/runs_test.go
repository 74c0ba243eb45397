package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/znavezz/ASD-ADAR-Correction/models"
	assid "github.com/znavezz/ASD-ADAR-Correction/models/constants/assembly-id"
	"github.com/znavezz/ASD-ADAR-Correction/models/runs"
	"github.com/znavezz/ASD-ADAR-Correction/repositories/artifacts"
	"github.com/znavezz/ASD-ADAR-Correction/services/merge"
	"github.com/znavezz/ASD-ADAR-Correction/services/postprocess"
	"github.com/znavezz/ASD-ADAR-Correction/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStore struct {
	mux  sync.Mutex
	keys []string
}

func (s *recordingStore) PutFile(_ context.Context, runId string, localPath string) (string, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, err := os.Stat(localPath); err != nil {
		return "", err
	}
	key := artifacts.ObjectKey(runId, filepath.Base(localPath))
	s.keys = append(s.keys, key)
	return key, nil
}

func (s *recordingStore) List(_ context.Context, runId string) ([]string, error) {
	return nil, nil
}

func (s *recordingStore) GetURL(_ context.Context, runId string, name string) (string, error) {
	return "", nil
}

func testConfig(t *testing.T) *models.Config {
	cfg := testutil.InitConfig()
	dir := t.TempDir()

	cfg.Merge.DbsPath = filepath.Join(dir, "DBs")
	cfg.Merge.OutputPath = filepath.Join(dir, "Results", "extended_table.tsv")
	cfg.PostProcess.OutputDirectory = filepath.Join(dir, "Results")
	cfg.PostProcess.FastaPath = filepath.Join(dir, "hg38.fa")

	testutil.WriteFile(t, cfg.PostProcess.FastaPath, ">chr1\nACGTACGTAC\nGGGGTTTTCC\n")
	testutil.WriteSource(t, filepath.Join(cfg.Merge.DbsPath, "hg38"), testutil.Source{
		Name: "db1",
		Instructions: testutil.VariantInstructions("db1", `
annotation "STRAND" {
  function = "copy_column"
}`),
		Input: "chr\tpos\tref\talt\tSTRAND\nchr1\t1\tA\tG\t+\nchr1\t4\tT\tC\t-\n",
	})
	return cfg
}

func newService(t *testing.T, cfg *models.Config, store artifacts.Store) *RunService {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewRunService(ctx, nil, store, cfg)
}

func waitFinished(t *testing.T, rs *RunService, id uuid.UUID) runs.RunRequest {
	var req runs.RunRequest
	require.Eventually(t, func() bool {
		var ok bool
		req, ok = rs.GetRequest(id.String())
		return ok && req.Finished()
	}, 10*time.Second, 10*time.Millisecond)
	return req
}

func TestRunServiceMergeThenPostProcess(t *testing.T) {
	cfg := testConfig(t)
	store := &recordingStore{}
	rs := newService(t, cfg, store)

	queued, err := rs.Submit(rs.NewMergeRequest(assid.GRCh38))
	require.NoError(t, err)
	assert.Equal(t, runs.Queued, queued.State)
	assert.Equal(t, filepath.Join(cfg.Merge.DbsPath, "hg38"), queued.Input)

	done := waitFinished(t, rs, queued.Id)
	require.Equal(t, runs.Done, done.State, done.Message)
	assert.FileExists(t, cfg.Merge.OutputPath)
	assert.Len(t, done.Artifacts, 3)

	summary, ok := done.Summary.(*merge.RunSummary)
	require.True(t, ok)
	assert.Equal(t, 2, summary.Rows)
	assert.Equal(t, []string{"db1"}, summary.SourcesMerged)

	queued, err = rs.Submit(rs.NewPostProcessRequest(assid.GRCh38, ""))
	require.NoError(t, err)
	assert.Equal(t, cfg.Merge.OutputPath, queued.Input)

	done = waitFinished(t, rs, queued.Id)
	require.Equal(t, runs.Done, done.State, done.Message)
	assert.True(t, strings.HasSuffix(done.Output, postprocess.OutputSuffix+".tsv"))
	assert.FileExists(t, done.Output)

	pp, ok := done.Summary.(*postprocess.Summary)
	require.True(t, ok)
	assert.Equal(t, 2, pp.Rows)
	assert.Empty(t, pp.LookupErrors)

	assert.Len(t, rs.GetRequests(), 2)
}

func TestRunServiceRejectsConcurrentWritesToOneOutput(t *testing.T) {
	cfg := testConfig(t)
	rs := newService(t, cfg, nil)

	// hold the only run slot so the first request stays queued
	rs.ConcurrentRunQueue <- true

	first, err := rs.Submit(rs.NewMergeRequest(assid.GRCh38))
	require.NoError(t, err)
	assert.True(t, rs.OutputAlreadyRunning(cfg.Merge.OutputPath))

	_, err = rs.Submit(rs.NewMergeRequest(assid.GRCh38))
	assert.Error(t, err)

	<-rs.ConcurrentRunQueue
	done := waitFinished(t, rs, first.Id)
	assert.Equal(t, runs.Done, done.State, done.Message)
	assert.False(t, rs.OutputAlreadyRunning(cfg.Merge.OutputPath))
}

func TestRunServiceReportsFailures(t *testing.T) {
	cfg := testConfig(t)
	cfg.Merge.DbsPath = filepath.Join(t.TempDir(), "missing")
	rs := newService(t, cfg, nil)

	queued, err := rs.Submit(rs.NewMergeRequest(assid.GRCh38))
	require.NoError(t, err)

	done := waitFinished(t, rs, queued.Id)
	assert.Equal(t, runs.Error, done.State)
	assert.NotEmpty(t, done.Message)
}

func TestExecutePostProcessWithoutReference(t *testing.T) {
	cfg := testConfig(t)
	cfg.PostProcess.FastaPath = ""
	rs := newService(t, cfg, nil)

	req := rs.NewPostProcessRequest(assid.GRCh38, "")
	assert.Error(t, rs.Execute(context.Background(), &req))

	req.Kind = "unknown"
	assert.Error(t, rs.Execute(context.Background(), &req))
}

func TestPruneFinished(t *testing.T) {
	rs := newService(t, testConfig(t), nil)

	old := time.Now().Add(-48 * time.Hour).UTC().Format(timeLayout)
	recent := time.Now().UTC().Format(timeLayout)
	for _, req := range []*runs.RunRequest{
		{Id: uuid.New(), State: runs.Done, UpdatedAt: old},
		{Id: uuid.New(), State: runs.Error, UpdatedAt: old},
		{Id: uuid.New(), State: runs.Running, UpdatedAt: old},
		{Id: uuid.New(), State: runs.Done, UpdatedAt: recent},
	} {
		rs.RunRequestMap[req.Id.String()] = req
	}

	removed := rs.PruneFinished(time.Now().Add(-24 * time.Hour))
	assert.Equal(t, 2, removed)
	assert.Len(t, rs.GetRequests(), 2)
}
