package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/flowcraft-app/flowcraft/internal/service"
)

// DraftCleanupJob drops unsent drafts nobody touched for the
// retention window.
type DraftCleanupJob struct {
	drafts    *service.DraftService
	retention time.Duration
}

func NewDraftCleanupJob(drafts *service.DraftService, retention time.Duration) *DraftCleanupJob {
	return &DraftCleanupJob{drafts: drafts, retention: retention}
}

func (j *DraftCleanupJob) Name() string {
	return "draft_cleanup"
}

func (j *DraftCleanupJob) Run(ctx context.Context) error {
	if j.drafts == nil {
		return nil
	}
	removed, err := j.drafts.CleanupStale(ctx, j.retention)
	if err != nil {
		return err
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("draft cleanup pass done", zap.Int64("removed", removed))
	}
	return nil
}
