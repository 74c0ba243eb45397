package sanitation

import (
	"context"
	"time"

	"github.com/znavezz/ASD-ADAR-Correction/models"
	"github.com/znavezz/ASD-ADAR-Correction/services"
	"github.com/znavezz/ASD-ADAR-Correction/utils/ctxlog"

	"github.com/go-co-op/gocron"
)

type (
	SanitationService struct {
		Initialized bool
		RunService  *services.RunService
		Config      *models.Config

		ctx       context.Context
		scheduler *gocron.Scheduler
	}
)

func NewSanitationService(ctx context.Context, rs *services.RunService, cfg *models.Config) *SanitationService {
	ss := &SanitationService{
		Initialized: false,
		RunService:  rs,
		Config:      cfg,
		ctx:         ctx,
	}

	ss.Init()

	return ss
}

func (ss *SanitationService) Init() {
	// initialization if necessary
	if !ss.Initialized {
		// periodically forget finished run requests so the request map
		// does not grow without bound
		s := gocron.NewScheduler(time.UTC)
		s.Every(1).Hours().WaitForSchedule().Do(ss.PruneRunRequests)
		s.StartAsync()
		ss.scheduler = s

		go func() {
			<-ss.ctx.Done()
			s.Stop()
		}()

		ss.Initialized = true
	}
}

// PruneRunRequests drops finished requests older than the retention window.
func (ss *SanitationService) PruneRunRequests() int {
	logger := ctxlog.FromContext(ss.ctx)
	retention := time.Duration(ss.Config.Merge.RequestRetentionHours) * time.Hour
	if retention <= 0 {
		return 0
	}

	logger.Debug("Running run request cleanup..")
	removed := ss.RunService.PruneFinished(time.Now().Add(-retention))
	if removed > 0 {
		logger.Info("Pruned finished run requests.", "removed", removed)
	}
	return removed
}
