package interfaces

import (
	"context"

	"github.com/secmon-lab/riskscale/pkg/domain/model"
	"github.com/secmon-lab/riskscale/pkg/domain/types"
)

// RiskConfigurationRepository persists risk configuration aggregates.
// Every write applies the whole aggregate atomically or not at all.
type RiskConfigurationRepository interface {
	// Create persists a new configuration and all of its children, and returns
	// the aggregate reloaded with every relation. ID and timestamps are assigned.
	Create(ctx context.Context, cfg *model.RiskConfiguration) (*model.RiskConfiguration, error)

	// Get retrieves one configuration of the organization
	Get(ctx context.Context, orgID types.OrganizationID, id types.ConfigurationID) (*model.RiskConfiguration, error)

	// List retrieves all configurations of the organization in creation order
	List(ctx context.Context, orgID types.OrganizationID) ([]*model.RiskConfiguration, error)

	// GetActive retrieves the configuration flagged active, falling back to the
	// earliest created one when none is flagged. Returns model.ErrNotFound when
	// the organization has no configuration.
	GetActive(ctx context.Context, orgID types.OrganizationID) (*model.RiskConfiguration, error)

	// Replace overwrites the scalar fields and deletes and recreates every child
	// collection. When expectedVersion is non-zero and differs from the stored
	// version, it fails with model.ErrVersionConflict.
	Replace(ctx context.Context, cfg *model.RiskConfiguration, expectedVersion int64) (*model.RiskConfiguration, error)

	// Delete removes the configuration and every owned child
	Delete(ctx context.Context, orgID types.OrganizationID, id types.ConfigurationID) error

	// Activate flags the configuration active and clears the flag on every other
	// configuration of the organization
	Activate(ctx context.Context, orgID types.OrganizationID, id types.ConfigurationID) (*model.RiskConfiguration, error)
}
