package interfaces

import (
	"context"

	"github.com/secmon-lab/riskscale/pkg/domain/model"
)

// ChangeNotifier announces committed risk configuration changes
type ChangeNotifier interface {
	NotifyConfigurationChange(ctx context.Context, change *model.ConfigurationChange) error
}
