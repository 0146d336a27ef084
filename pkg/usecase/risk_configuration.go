package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskscale/pkg/domain/interfaces"
	"github.com/secmon-lab/riskscale/pkg/domain/model"
	"github.com/secmon-lab/riskscale/pkg/domain/types"
	"github.com/secmon-lab/riskscale/pkg/utils/async"
	"github.com/secmon-lab/riskscale/pkg/utils/logging"
)

// RiskConfigurationUseCase validates, stores and evaluates risk configurations
type RiskConfigurationUseCase struct {
	repo       interfaces.Repository
	notifier   interfaces.ChangeNotifier
	dispatcher *async.Dispatcher
}

func NewRiskConfigurationUseCase(repo interfaces.Repository, notifier interfaces.ChangeNotifier) *RiskConfigurationUseCase {
	return &RiskConfigurationUseCase{
		repo:       repo,
		notifier:   notifier,
		dispatcher: &async.Dispatcher{},
	}
}

func validateInput(in *model.ConfigurationInput) error {
	if in == nil {
		return model.NewValidationError([]string{"Configuration is required."})
	}
	if ve := model.NewValidationError(model.ValidateConfiguration(in)); ve != nil {
		return ve
	}
	return nil
}

func (uc *RiskConfigurationUseCase) CreateConfiguration(ctx context.Context, orgID types.OrganizationID, in *model.ConfigurationInput) (*model.RiskConfiguration, error) {
	if err := validateOrgID(orgID); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	created, err := uc.repo.RiskConfiguration().Create(ctx, in.ToConfiguration(orgID))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create risk configuration", goerr.V(model.OrganizationIDKey, orgID))
	}

	logging.From(ctx).Info("risk configuration created",
		"organization_id", orgID,
		"configuration_id", created.ID,
	)
	uc.notify(ctx, model.ChangeActionCreated, created)

	return created, nil
}

// UpdateConfiguration fully replaces the configuration with the input.
// A non-zero expectedVersion must match the stored version.
func (uc *RiskConfigurationUseCase) UpdateConfiguration(ctx context.Context, orgID types.OrganizationID, id types.ConfigurationID, in *model.ConfigurationInput, expectedVersion int64) (*model.RiskConfiguration, error) {
	if err := validateIDs(orgID, id); err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	existing, err := uc.repo.RiskConfiguration().Get(ctx, orgID, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get risk configuration", goerr.V(model.ConfigurationIDKey, id))
	}
	existing.Apply(in)

	updated, err := uc.repo.RiskConfiguration().Replace(ctx, existing, expectedVersion)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update risk configuration",
			goerr.V(model.ConfigurationIDKey, id),
			goerr.V(model.ExpectedVersionKey, expectedVersion))
	}

	logging.From(ctx).Info("risk configuration updated",
		"organization_id", orgID,
		"configuration_id", id,
		"version", updated.Version,
	)
	uc.notify(ctx, model.ChangeActionUpdated, updated)

	return updated, nil
}

func (uc *RiskConfigurationUseCase) DeleteConfiguration(ctx context.Context, orgID types.OrganizationID, id types.ConfigurationID) error {
	if err := validateIDs(orgID, id); err != nil {
		return err
	}

	existing, err := uc.repo.RiskConfiguration().Get(ctx, orgID, id)
	if err != nil {
		return goerr.Wrap(err, "failed to get risk configuration", goerr.V(model.ConfigurationIDKey, id))
	}

	if err := uc.repo.RiskConfiguration().Delete(ctx, orgID, id); err != nil {
		return goerr.Wrap(err, "failed to delete risk configuration", goerr.V(model.ConfigurationIDKey, id))
	}

	logging.From(ctx).Info("risk configuration deleted",
		"organization_id", orgID,
		"configuration_id", id,
	)
	uc.notify(ctx, model.ChangeActionDeleted, existing)

	return nil
}

func (uc *RiskConfigurationUseCase) ActivateConfiguration(ctx context.Context, orgID types.OrganizationID, id types.ConfigurationID) (*model.RiskConfiguration, error) {
	if err := validateIDs(orgID, id); err != nil {
		return nil, err
	}

	activated, err := uc.repo.RiskConfiguration().Activate(ctx, orgID, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to activate risk configuration", goerr.V(model.ConfigurationIDKey, id))
	}

	logging.From(ctx).Info("risk configuration activated",
		"organization_id", orgID,
		"configuration_id", id,
	)
	uc.notify(ctx, model.ChangeActionActivated, activated)

	return activated, nil
}

func (uc *RiskConfigurationUseCase) GetConfiguration(ctx context.Context, orgID types.OrganizationID, id types.ConfigurationID) (*model.RiskConfiguration, error) {
	if err := validateIDs(orgID, id); err != nil {
		return nil, err
	}

	cfg, err := uc.repo.RiskConfiguration().Get(ctx, orgID, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get risk configuration", goerr.V(model.ConfigurationIDKey, id))
	}
	return cfg, nil
}

func (uc *RiskConfigurationUseCase) ListConfigurations(ctx context.Context, orgID types.OrganizationID) ([]*model.RiskConfiguration, error) {
	if err := validateOrgID(orgID); err != nil {
		return nil, err
	}

	configs, err := uc.repo.RiskConfiguration().List(ctx, orgID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list risk configurations", goerr.V(model.OrganizationIDKey, orgID))
	}
	return configs, nil
}

// GetActiveConfiguration resolves the configuration used for scoring
func (uc *RiskConfigurationUseCase) GetActiveConfiguration(ctx context.Context, orgID types.OrganizationID) (*model.RiskConfiguration, error) {
	if err := validateOrgID(orgID); err != nil {
		return nil, err
	}

	cfg, err := uc.repo.RiskConfiguration().GetActive(ctx, orgID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get active risk configuration", goerr.V(model.OrganizationIDKey, orgID))
	}
	return cfg, nil
}

func (uc *RiskConfigurationUseCase) CalculateRiskScore(ctx context.Context, orgID types.OrganizationID, impactScore, probabilityScore float64) (*model.RiskScoreResult, error) {
	cfg, err := uc.GetActiveConfiguration(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return cfg.CalculateRiskScore(impactScore, probabilityScore), nil
}

func (uc *RiskConfigurationUseCase) CalculateRiskScoreWithCriteria(ctx context.Context, orgID types.OrganizationID, criteriaScores map[string]float64) (*model.CriteriaScoreResult, error) {
	cfg, err := uc.GetActiveConfiguration(ctx, orgID)
	if err != nil {
		return nil, err
	}

	result, err := cfg.CalculateRiskScoreWithCriteria(criteriaScores)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to calculate criteria risk score", goerr.V(model.OrganizationIDKey, orgID))
	}
	return result, nil
}

func (uc *RiskConfigurationUseCase) Classify(ctx context.Context, orgID types.OrganizationID, score float64) (*model.ScoreLevel, error) {
	cfg, err := uc.GetActiveConfiguration(ctx, orgID)
	if err != nil {
		return nil, err
	}

	level, err := cfg.Classify(score)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to classify score", goerr.V(model.OrganizationIDKey, orgID))
	}
	return level, nil
}

func (uc *RiskConfigurationUseCase) GetRiskMatrixData(ctx context.Context, orgID types.OrganizationID) (*model.MatrixData, error) {
	cfg, err := uc.GetActiveConfiguration(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return cfg.BuildMatrix(), nil
}

// WaitNotifications blocks until every pending change notification is sent
func (uc *RiskConfigurationUseCase) WaitNotifications() {
	uc.dispatcher.Wait()
}

func (uc *RiskConfigurationUseCase) notify(ctx context.Context, action model.ChangeAction, cfg *model.RiskConfiguration) {
	if uc.notifier == nil {
		return
	}

	change := model.NewConfigurationChange(action, cfg)
	uc.dispatcher.Dispatch(ctx, "notify_configuration_change", func(ctx context.Context) error {
		return uc.notifier.NotifyConfigurationChange(ctx, change)
	})
}

func validateIDs(orgID types.OrganizationID, id types.ConfigurationID) error {
	if err := validateOrgID(orgID); err != nil {
		return err
	}
	// A malformed ID can never match a stored configuration
	if err := id.Validate(); err != nil {
		return goerr.Wrap(errors.Join(model.ErrNotFound, err), "invalid configuration ID", goerr.V(model.ConfigurationIDKey, id))
	}
	return nil
}

func validateOrgID(orgID types.OrganizationID) error {
	if err := orgID.Validate(); err != nil {
		return goerr.Wrap(model.NewValidationError([]string{err.Error()}), "invalid organization ID", goerr.V(model.OrganizationIDKey, orgID))
	}
	return nil
}
