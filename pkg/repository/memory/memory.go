package memory

import (
	"github.com/secmon-lab/riskscale/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

type Memory struct {
	riskConfiguration *riskConfigurationRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		riskConfiguration: newRiskConfigurationRepository(),
	}
}

func (m *Memory) RiskConfiguration() interfaces.RiskConfigurationRepository {
	return m.riskConfiguration
}

func (m *Memory) Close() error {
	return nil
}
