package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/znavezz/ASD-ADAR-Correction/models"
	"github.com/znavezz/ASD-ADAR-Correction/models/constants"
	assid "github.com/znavezz/ASD-ADAR-Correction/models/constants/assembly-id"
	"github.com/znavezz/ASD-ADAR-Correction/models/runs"
	"github.com/znavezz/ASD-ADAR-Correction/models/table"
	"github.com/znavezz/ASD-ADAR-Correction/registry"
	"github.com/znavezz/ASD-ADAR-Correction/registry/builtin"
	"github.com/znavezz/ASD-ADAR-Correction/repositories/artifacts"
	esRepo "github.com/znavezz/ASD-ADAR-Correction/repositories/elasticsearch"
	"github.com/znavezz/ASD-ADAR-Correction/repositories/tsv"
	"github.com/znavezz/ASD-ADAR-Correction/services/discovery"
	"github.com/znavezz/ASD-ADAR-Correction/services/merge"
	"github.com/znavezz/ASD-ADAR-Correction/services/postprocess"
	"github.com/znavezz/ASD-ADAR-Correction/services/reference"
	"github.com/znavezz/ASD-ADAR-Correction/utils"
	"github.com/znavezz/ASD-ADAR-Correction/utils/ctxlog"

	es7 "github.com/elastic/go-elasticsearch/v7"
	"github.com/google/uuid"
)

// timestamps on run requests
const timeLayout = time.RFC3339Nano

type (
	RunService struct {
		Initialized         bool
		RunRequestChan      chan *runs.RunRequest
		RunRequestMap       map[string]*runs.RunRequest
		RunRequestMapMux    sync.RWMutex
		ConcurrentRunQueue  chan bool
		ElasticsearchClient *es7.Client
		Artifacts           artifacts.Store
		Registry            *registry.Registry
		Config              *models.Config

		// base context of the background runs, carries the logger
		ctx context.Context
	}
)

// NewRunService wires the run listener. es and store may be nil, in which
// case the index and artifact sinks are skipped.
func NewRunService(ctx context.Context, es *es7.Client, store artifacts.Store, cfg *models.Config) *RunService {
	rs := &RunService{
		Initialized:         false,
		RunRequestChan:      make(chan *runs.RunRequest),
		RunRequestMap:       map[string]*runs.RunRequest{},
		RunRequestMapMux:    sync.RWMutex{},
		ConcurrentRunQueue:  make(chan bool, 1),
		ElasticsearchClient: es,
		Artifacts:           store,
		Registry:            builtin.NewRegistry(),
		Config:              cfg,
		ctx:                 ctx,
	}

	rs.Init()

	return rs
}

func (rs *RunService) Init() {
	// safeguard to prevent multiple initilizations
	if !rs.Initialized {
		// spin up a go routine acting as a listener for run request updates
		go func() {
			for {
				select {
				case <-rs.ctx.Done():
					return
				case req := <-rs.RunRequestChan:
					if req.Finished() {
						ctxlog.FromContext(rs.ctx).Info("Run request finished.", "id", req.Id.String(), "state", string(req.State))
					}

					req.UpdatedAt = time.Now().UTC().Format(timeLayout)
					rs.RunRequestMapMux.Lock()
					rs.RunRequestMap[req.Id.String()] = req
					rs.RunRequestMapMux.Unlock()
				}
			}
		}()
		rs.Initialized = true
	}
}

// update publishes a snapshot of the request to the listener.
func (rs *RunService) update(req runs.RunRequest) {
	select {
	case rs.RunRequestChan <- &req:
	case <-rs.ctx.Done():
	}
}

// NewMergeRequest describes a merge of the configured DBs tree for an
// assembly into the configured output table.
func (rs *RunService) NewMergeRequest(assembly constants.AssemblyId) runs.RunRequest {
	return runs.RunRequest{
		Id:         uuid.New(),
		Kind:       runs.Merge,
		AssemblyId: assembly,
		Input:      discovery.ResolveRoot(rs.Config.Merge.DbsPath, assembly),
		Output:     rs.Config.Merge.OutputPath,
		State:      runs.Queued,
		CreatedAt:  time.Now().UTC().Format(timeLayout),
	}
}

// NewPostProcessRequest describes a post-processing pass over a persisted
// table; an empty input means the configured merge output.
func (rs *RunService) NewPostProcessRequest(assembly constants.AssemblyId, input string) runs.RunRequest {
	if input == "" {
		input = rs.Config.Merge.OutputPath
	}
	return runs.RunRequest{
		Id:         uuid.New(),
		Kind:       runs.PostProcess,
		AssemblyId: assembly,
		Input:      input,
		Output:     postprocess.OutputPath(input, rs.Config.PostProcess.OutputDirectory),
		State:      runs.Queued,
		CreatedAt:  time.Now().UTC().Format(timeLayout),
	}
}

// OutputAlreadyRunning reports whether a queued or running request writes
// the given output.
func (rs *RunService) OutputAlreadyRunning(output string) bool {
	rs.RunRequestMapMux.RLock()
	defer rs.RunRequestMapMux.RUnlock()
	for _, req := range rs.RunRequestMap {
		if req.Output == output && !req.Finished() {
			return true
		}
	}
	return false
}

// Submit queues the request and executes it in the background, one run at
// a time.
func (rs *RunService) Submit(req runs.RunRequest) (runs.RunRequest, error) {
	rs.RunRequestMapMux.Lock()
	for _, other := range rs.RunRequestMap {
		if other.Output == req.Output && !other.Finished() {
			rs.RunRequestMapMux.Unlock()
			return req, fmt.Errorf("a run writing %s is already queued or running", req.Output)
		}
	}
	req.UpdatedAt = req.CreatedAt
	queued := req
	rs.RunRequestMap[req.Id.String()] = &queued
	rs.RunRequestMapMux.Unlock()
	ctxlog.FromContext(rs.ctx).Info("Queueing a new run request.", "id", req.Id.String(), "kind", string(req.Kind), "assembly", string(req.AssemblyId))

	go func(req runs.RunRequest) {
		// take a spot in the queue
		rs.ConcurrentRunQueue <- true
		// free up a spot in the queue
		defer func() {
			<-rs.ConcurrentRunQueue
		}()

		req.State = runs.Running
		rs.update(req)

		if err := rs.Execute(rs.ctx, &req); err != nil {
			req.State = runs.Error
			req.Message = err.Error()
		} else {
			req.State = runs.Done
			req.Message = "Successfully finished.."
		}
		rs.update(req)
	}(req)

	return req, nil
}

// Execute runs a request synchronously and fills in its summary, artifacts
// and index counts.
func (rs *RunService) Execute(ctx context.Context, req *runs.RunRequest) error {
	ctx, logger := ctxlog.With(ctx, "run", req.Id.String(), "kind", string(req.Kind))

	var (
		outputs []string
		err     error
	)
	switch req.Kind {
	case runs.Merge:
		outputs, err = rs.executeMerge(ctx, req)
	case runs.PostProcess:
		outputs, err = rs.executePostProcess(ctx, req)
	default:
		err = fmt.Errorf("unknown run kind %q", req.Kind)
	}
	if err != nil {
		logger.Error("Run failed.", "error", err)
		return err
	}

	if rs.Artifacts != nil {
		for _, path := range outputs {
			key, err := rs.Artifacts.PutFile(ctx, req.Id.String(), path)
			if err != nil {
				// the local outputs are complete; a failed upload is reported only
				logger.Warn("Artifact upload failed.", "path", path, "error", err)
				continue
			}
			req.Artifacts = append(req.Artifacts, key)
		}
	}
	return nil
}

func (rs *RunService) executeMerge(ctx context.Context, req *runs.RunRequest) ([]string, error) {
	var seed *table.Master
	if path := rs.Config.Merge.SeedTablePath; path != "" {
		m, err := tsv.ReadMaster(path)
		if err != nil {
			return nil, fmt.Errorf("loading seed table: %w", err)
		}
		seed = m
	}

	master, summary, err := merge.Run(ctx, merge.Options{
		Root:        req.Input,
		Assembly:    req.AssemblyId,
		Registry:    rs.Registry,
		Seed:        seed,
		Annotations: utils.SplitCommaSep(rs.Config.Merge.AnnotationsCommaSep),
		Concurrency: rs.Config.Merge.AnnotationConcurrency,
	})
	if err != nil {
		return nil, err
	}
	if err := merge.Persist(req.Output, master, summary); err != nil {
		return nil, err
	}
	req.Summary = summary

	if rs.ElasticsearchClient != nil {
		index := esRepo.IndexName(assid.ToGenomeVersion(req.AssemblyId))
		stats, err := esRepo.IndexMaster(ctx, rs.ElasticsearchClient, index, req.AssemblyId, master, rs.Config.Elasticsearch.Workers)
		if err != nil {
			ctxlog.FromContext(ctx).Warn("Indexing the master table failed.", "index", index, "error", err)
		} else {
			req.Indexed = int(stats.Indexed)
		}
	}

	return []string{req.Output, req.Output + tsv.SchemaSuffix, req.Output + tsv.SummarySuffix}, nil
}

func (rs *RunService) executePostProcess(ctx context.Context, req *runs.RunRequest) ([]string, error) {
	if rs.Config.PostProcess.FastaPath == "" {
		return nil, fmt.Errorf("no reference FASTA configured")
	}
	ref, err := reference.Open(rs.Config.PostProcess.FastaPath, rs.Config.PostProcess.CacheSize)
	if err != nil {
		return nil, err
	}
	defer ref.Close()

	summary, err := postprocess.Run(ctx, req.Input, rs.Config.PostProcess.OutputDirectory, ref, postprocess.Options{
		Genome:           assid.ToGenomeVersion(req.AssemblyId),
		IndicatorColumns: utils.SplitCommaSep(rs.Config.PostProcess.IndicatorColumnsCommaSep),
		Workers:          rs.Config.PostProcess.Workers,
	})
	if err != nil {
		return nil, err
	}
	req.Output = summary.Output
	req.Summary = summary

	outputs := []string{summary.Output, summary.Output + tsv.SummarySuffix}
	if _, ok, _ := tsv.ReadSchema(summary.Output); ok {
		outputs = append(outputs, summary.Output+tsv.SchemaSuffix)
	}
	return outputs, nil
}

// GetRequests returns snapshots of every tracked request, oldest first.
func (rs *RunService) GetRequests() []runs.RunRequest {
	rs.RunRequestMapMux.RLock()
	defer rs.RunRequestMapMux.RUnlock()

	m := make([]runs.RunRequest, 0, len(rs.RunRequestMap))
	for _, val := range rs.RunRequestMap {
		m = append(m, *val)
	}
	sort.Slice(m, func(i, j int) bool { return m[i].CreatedAt < m[j].CreatedAt })
	return m
}

func (rs *RunService) GetRequest(id string) (runs.RunRequest, bool) {
	rs.RunRequestMapMux.RLock()
	defer rs.RunRequestMapMux.RUnlock()

	req, ok := rs.RunRequestMap[id]
	if !ok {
		return runs.RunRequest{}, false
	}
	return *req, true
}

// PruneFinished forgets finished requests last updated before the cutoff and
// returns how many were removed.
func (rs *RunService) PruneFinished(cutoff time.Time) int {
	rs.RunRequestMapMux.Lock()
	defer rs.RunRequestMapMux.Unlock()

	removed := 0
	for id, req := range rs.RunRequestMap {
		if !req.Finished() {
			continue
		}
		updated, err := time.Parse(timeLayout, req.UpdatedAt)
		if err != nil || updated.Before(cutoff) {
			delete(rs.RunRequestMap, id)
			removed++
		}
	}
	return removed
}
