package usecase

import (
	"github.com/secmon-lab/riskscale/pkg/domain/interfaces"
)

type UseCases struct {
	repo              interfaces.Repository
	notifier          interfaces.ChangeNotifier
	RiskConfiguration *RiskConfigurationUseCase
}

type Option func(*UseCases)

// WithChangeNotifier announces every committed configuration change
func WithChangeNotifier(notifier interfaces.ChangeNotifier) Option {
	return func(uc *UseCases) {
		uc.notifier = notifier
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo: repo,
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.RiskConfiguration = NewRiskConfigurationUseCase(repo, uc.notifier)

	return uc
}
