package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-crm-api/internal/models"
	appErrors "github.com/noah-isme/sma-crm-api/pkg/errors"
)

type lifecycleResyncer interface {
	Resync(ctx context.Context, personID string) (*models.LifecycleTransition, error)
}

// resyncAfter runs the lifecycle resync that must follow every record mutation. The
// mutation is already committed when it fails, so the returned error says so and
// the caller can retry the resync on its own.
func resyncAfter(ctx context.Context, lifecycle lifecycleResyncer, logger *zap.Logger, personID, saved string) (*models.LifecycleTransition, error) {
	transition, err := lifecycle.Resync(ctx, personID)
	if err == nil {
		return transition, nil
	}
	logger.Warn("lifecycle resync after mutation failed",
		zap.String("person_id", personID),
		zap.String("mutation", saved),
		zap.Error(err),
	)
	appErr := appErrors.FromError(err)
	return nil, appErrors.CloneWrap(appErr, err, fmt.Sprintf("%s saved but lifecycle resync failed: %s", saved, appErr.Message))
}
