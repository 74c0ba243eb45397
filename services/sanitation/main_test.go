package sanitation

import (
	"context"
	"testing"
	"time"

	"github.com/znavezz/ASD-ADAR-Correction/models/runs"
	"github.com/znavezz/ASD-ADAR-Correction/services"
	"github.com/znavezz/ASD-ADAR-Correction/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPruneRunRequests(t *testing.T) {
	cfg := testutil.InitConfig()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rs := services.NewRunService(ctx, nil, nil, cfg)
	ss := NewSanitationService(ctx, rs, cfg)
	assert.True(t, ss.Initialized)

	stale := time.Now().Add(-time.Duration(cfg.Merge.RequestRetentionHours+1) * time.Hour).UTC().Format(time.RFC3339Nano)
	fresh := time.Now().UTC().Format(time.RFC3339Nano)
	rs.RunRequestMapMux.Lock()
	for _, req := range []*runs.RunRequest{
		{Id: uuid.New(), State: runs.Done, UpdatedAt: stale},
		{Id: uuid.New(), State: runs.Queued, UpdatedAt: stale},
		{Id: uuid.New(), State: runs.Error, UpdatedAt: fresh},
	} {
		rs.RunRequestMap[req.Id.String()] = req
	}
	rs.RunRequestMapMux.Unlock()

	assert.Equal(t, 1, ss.PruneRunRequests())
	assert.Len(t, rs.GetRequests(), 2)

	cfg.Merge.RequestRetentionHours = 0
	assert.Equal(t, 0, ss.PruneRunRequests())
}
