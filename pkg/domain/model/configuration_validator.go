package model

import (
	"fmt"
	"strings"

	"github.com/secmon-lab/riskscale/pkg/domain/types"
)

// ValidateConfiguration checks a candidate configuration for internal consistency
// and returns every violation in a stable order. An empty result means valid.
// It has no side effects and never touches persistence.
func ValidateConfiguration(in *ConfigurationInput) []string {
	var errs []string

	if strings.TrimSpace(in.Name) == "" {
		errs = append(errs, "Name is required.")
	}

	if in.ImpactScaleMax < MinScaleMax || in.ImpactScaleMax > MaxScaleMax {
		errs = append(errs, fmt.Sprintf("Impact scale max must be between %d and %d.", MinScaleMax, MaxScaleMax))
	}
	if in.ProbabilityScaleMax < MinScaleMax || in.ProbabilityScaleMax > MaxScaleMax {
		errs = append(errs, fmt.Sprintf("Probability scale max must be between %d and %d.", MinScaleMax, MaxScaleMax))
	}

	if !in.CalculationMethod.IsValid() {
		methods := make([]string, 0, len(types.AllCalculationMethods()))
		for _, m := range types.AllCalculationMethods() {
			methods = append(methods, m.String())
		}
		errs = append(errs, fmt.Sprintf("Calculation method must be one of: %s.", strings.Join(methods, ", ")))
	}

	if len(in.Impacts) != in.ImpactScaleMax {
		errs = append(errs, fmt.Sprintf("Exactly %d impact levels are required (got %d).", in.ImpactScaleMax, len(in.Impacts)))
	}
	if len(in.Probabilities) != in.ProbabilityScaleMax {
		errs = append(errs, fmt.Sprintf("Exactly %d probability levels are required (got %d).", in.ProbabilityScaleMax, len(in.Probabilities)))
	}

	if in.UseCriterias {
		for i, cr := range in.Criterias {
			if strings.TrimSpace(cr.Name) == "" {
				errs = append(errs, fmt.Sprintf("Criteria #%d must have a name.", i+1))
			}
			if len(cr.Impacts) == 0 {
				errs = append(errs, fmt.Sprintf("Criteria #%d must have at least one impact level.", i+1))
			}
		}
	}

	errs = append(errs, duplicateLabels("Impact", impactLabels(in.Impacts))...)
	errs = append(errs, duplicateLabels("Probability", probabilityLabels(in.Probabilities))...)

	for i, sl := range in.ScoreLevels {
		name := sl.Label
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
		}
		if sl.Min < 1 {
			errs = append(errs, fmt.Sprintf("Score level %s must have a minimum of at least 1.", name))
		}
		if sl.Max < sl.Min {
			errs = append(errs, fmt.Sprintf("Score level %s must have a maximum greater than or equal to its minimum.", name))
		}
	}

	return errs
}

func impactLabels(levels []ImpactLevel) []string {
	labels := make([]string, len(levels))
	for i, l := range levels {
		labels[i] = l.Label
	}
	return labels
}

func probabilityLabels(levels []ProbabilityLevel) []string {
	labels := make([]string, len(levels))
	for i, l := range levels {
		labels[i] = l.Label
	}
	return labels
}

func duplicateLabels(kind string, labels []string) []string {
	var errs []string
	seen := make(map[string]bool, len(labels))
	reported := make(map[string]bool)
	for _, label := range labels {
		if seen[label] && !reported[label] {
			errs = append(errs, fmt.Sprintf("%s label %q is used more than once.", kind, label))
			reported[label] = true
		}
		seen[label] = true
	}
	return errs
}

// Advisories reports inconsistencies that do not block persistence: score
// level gaps and overlaps over [1, MaxRiskScore], and criteria whose impact
// sub-scale does not line up with the global impact scale.
func (c *RiskConfiguration) Advisories() []string {
	var notes []string

	if len(c.ScoreLevels) > 0 {
		upper := c.MaxRiskScore()
		var gapStart, overlapStart int
		for score := 1; score <= upper+1; score++ {
			covering := 0
			if score <= upper {
				for _, sl := range c.ScoreLevels {
					if sl.Min <= score && score <= sl.Max {
						covering++
					}
				}
			} else {
				covering = 1 // sentinel closing any open range
			}

			switch {
			case covering == 0 && gapStart == 0:
				gapStart = score
			case covering > 0 && gapStart != 0:
				notes = append(notes, fmt.Sprintf("Scores %d-%d are not covered by any score level.", gapStart, score-1))
				gapStart = 0
			}

			switch {
			case covering > 1 && overlapStart == 0:
				overlapStart = score
			case covering <= 1 && overlapStart != 0:
				notes = append(notes, fmt.Sprintf("Scores %d-%d are covered by more than one score level.", overlapStart, score-1))
				overlapStart = 0
			}
		}
	}

	if c.UseCriterias {
		orders := make(map[int]bool, len(c.Impacts))
		for _, imp := range c.Impacts {
			orders[imp.Order] = true
		}

		for _, cr := range c.Criterias {
			if len(cr.Impacts) != c.ImpactScaleMax {
				notes = append(notes, fmt.Sprintf("Criteria %q has %d impact levels but the impact scale has %d.", cr.Name, len(cr.Impacts), c.ImpactScaleMax))
			}
			for _, ci := range cr.Impacts {
				if !orders[ci.alignedOrder()] {
					notes = append(notes, fmt.Sprintf("Criteria %q impact %q does not match any impact level.", cr.Name, ci.ImpactLabel))
				}
			}
		}
	}

	return notes
}

func (ci CriteriaImpact) alignedOrder() int {
	if ci.ImpactLevelOrder != 0 {
		return ci.ImpactLevelOrder
	}
	return ci.Order
}
