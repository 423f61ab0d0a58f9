package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/flowcraft-app/flowcraft/internal/service"
)

// CredentialRefreshJob renews provider credentials shortly before
// they expire so interactive requests rarely pay the refresh cost.
type CredentialRefreshJob struct {
	conns *service.ConnectionService
	ahead time.Duration
}

func NewCredentialRefreshJob(conns *service.ConnectionService, ahead time.Duration) *CredentialRefreshJob {
	return &CredentialRefreshJob{conns: conns, ahead: ahead}
}

func (j *CredentialRefreshJob) Name() string {
	return "credential_refresh"
}

func (j *CredentialRefreshJob) Run(ctx context.Context) error {
	if j.conns == nil {
		return nil
	}
	refreshed, failed := j.conns.RefreshExpiring(ctx, j.ahead)
	if refreshed > 0 || failed > 0 {
		logutil.GetLogger(ctx).Info("credential refresh pass done",
			zap.Int("refreshed", refreshed), zap.Int("failed", failed))
	}
	return nil
}
