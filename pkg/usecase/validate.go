package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskscale/pkg/domain/model"
	"github.com/secmon-lab/riskscale/pkg/domain/types"
)

// IssueSeverity tells whether an issue blocks saving a configuration
type IssueSeverity string

const (
	IssueSeverityError   IssueSeverity = "error"
	IssueSeverityWarning IssueSeverity = "warning"
)

// ValidationIssue represents a single problem found in a configuration
type ValidationIssue struct {
	ConfigurationID types.ConfigurationID
	Name            string
	Severity        IssueSeverity
	Message         string
}

// ValidationResult holds the issues found by a validation run
type ValidationResult struct {
	Issues []ValidationIssue
}

// Valid returns true if no error-severity issue was found
func (r *ValidationResult) Valid() bool {
	for _, issue := range r.Issues {
		if issue.Severity == IssueSeverityError {
			return false
		}
	}
	return true
}

// Errors returns the messages of error-severity issues
func (r *ValidationResult) Errors() []string {
	return r.messages(IssueSeverityError)
}

// Advisories returns the messages of warning-severity issues
func (r *ValidationResult) Advisories() []string {
	return r.messages(IssueSeverityWarning)
}

func (r *ValidationResult) messages(severity IssueSeverity) []string {
	var out []string
	for _, issue := range r.Issues {
		if issue.Severity == severity {
			out = append(out, issue.Message)
		}
	}
	return out
}

func (r *ValidationResult) add(id types.ConfigurationID, name string, severity IssueSeverity, messages []string) {
	for _, msg := range messages {
		r.Issues = append(r.Issues, ValidationIssue{
			ConfigurationID: id,
			Name:            name,
			Severity:        severity,
			Message:         msg,
		})
	}
}

// ValidateConfiguration checks the input without persisting it. Advisories
// such as score level gaps never block a save.
func (uc *RiskConfigurationUseCase) ValidateConfiguration(in *model.ConfigurationInput) *ValidationResult {
	result := &ValidationResult{}
	if in == nil {
		result.add("", "", IssueSeverityError, []string{"Configuration is required."})
		return result
	}

	result.add("", in.Name, IssueSeverityError, model.ValidateConfiguration(in))
	if result.Valid() {
		result.add("", in.Name, IssueSeverityWarning, in.ToConfiguration("").Advisories())
	}
	return result
}

// ValidateStored re-checks every stored configuration of the organization
// against the current rules. It does NOT modify any data.
func (uc *RiskConfigurationUseCase) ValidateStored(ctx context.Context, orgID types.OrganizationID) (*ValidationResult, error) {
	configs, err := uc.ListConfigurations(ctx, orgID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list configurations for validation")
	}

	result := &ValidationResult{}
	for _, cfg := range configs {
		wire := cfg.ToConfigArray()
		result.add(cfg.ID, cfg.Name, IssueSeverityError, model.ValidateConfiguration(wire.ToInput()))
		result.add(cfg.ID, cfg.Name, IssueSeverityWarning, cfg.Advisories())
	}

	return result, nil
}
