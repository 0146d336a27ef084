package model

import (
	"time"

	"github.com/secmon-lab/riskscale/pkg/domain/types"
)

// ChangeAction names a mutation applied to a risk configuration
type ChangeAction string

const (
	ChangeActionCreated   ChangeAction = "created"
	ChangeActionUpdated   ChangeAction = "updated"
	ChangeActionDeleted   ChangeAction = "deleted"
	ChangeActionActivated ChangeAction = "activated"
)

func (a ChangeAction) String() string {
	return string(a)
}

// ConfigurationChange describes a committed change for notification
type ConfigurationChange struct {
	Action              ChangeAction
	OrganizationID      types.OrganizationID
	ConfigurationID     types.ConfigurationID
	Name                string
	Version             int64
	Method              types.CalculationMethod
	ImpactScaleMax      int
	ProbabilityScaleMax int
	OccurredAt          time.Time
}

// NewConfigurationChange snapshots the configuration fields worth announcing
func NewConfigurationChange(action ChangeAction, cfg *RiskConfiguration) *ConfigurationChange {
	return &ConfigurationChange{
		Action:              action,
		OrganizationID:      cfg.OrganizationID,
		ConfigurationID:     cfg.ID,
		Name:                cfg.Name,
		Version:             cfg.Version,
		Method:              cfg.CalculationMethod,
		ImpactScaleMax:      cfg.ImpactScaleMax,
		ProbabilityScaleMax: cfg.ProbabilityScaleMax,
		OccurredAt:          time.Now().UTC(),
	}
}
