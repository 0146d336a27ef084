package model

import (
	"math"
	"slices"

	"github.com/m-mizutani/goerr/v2"
)

// RiskScoreResult is the outcome of scoring one impact/probability pair
type RiskScoreResult struct {
	RiskScore        float64
	ImpactScore      float64
	ProbabilityScore float64
	ImpactLevel      *ImpactLevel
	ProbabilityLevel *ProbabilityLevel
	Configuration    *RiskConfiguration
}

// CriteriaScoreResult is the outcome of scoring a set of criteria
type CriteriaScoreResult struct {
	RiskScore      float64
	CriteriaScores map[string]float64
	Configuration  *RiskConfiguration
}

// CalculateRiskScore combines the impact and probability scores with the
// configuration's calculation method. The matched levels are resolved by
// numeric score and are nil when no level carries that score.
func (c *RiskConfiguration) CalculateRiskScore(impactScore, probabilityScore float64) *RiskScoreResult {
	result := &RiskScoreResult{
		RiskScore:        c.CalculationMethod.Reduce(impactScore, probabilityScore),
		ImpactScore:      impactScore,
		ProbabilityScore: probabilityScore,
		Configuration:    c,
	}

	for i := range c.Impacts {
		if c.Impacts[i].Score == impactScore {
			result.ImpactLevel = &c.Impacts[i]
			break
		}
	}
	for i := range c.Probabilities {
		if c.Probabilities[i].Score == probabilityScore {
			result.ProbabilityLevel = &c.Probabilities[i]
			break
		}
	}

	return result
}

// CalculateRiskScoreWithCriteria reduces per-criterion scores with the same
// calculation method used for impact and probability. Every key must name a
// configured criteria; unknown names are rejected with ErrInvalidScore.
func (c *RiskConfiguration) CalculateRiskScoreWithCriteria(criteriaScores map[string]float64) (*CriteriaScoreResult, error) {
	if !c.UseCriterias {
		return nil, goerr.Wrap(ErrPrecondition, "criteria scoring is disabled for this configuration",
			goerr.V(ConfigurationIDKey, c.ID))
	}
	if len(criteriaScores) == 0 {
		return nil, goerr.Wrap(ErrInvalidScore, "at least one criteria score is required",
			goerr.V(ConfigurationIDKey, c.ID))
	}

	known := make(map[string]struct{}, len(c.Criterias))
	for _, cr := range c.Criterias {
		known[cr.Name] = struct{}{}
	}

	// Fixed key order keeps floating point sums reproducible
	keys := make([]string, 0, len(criteriaScores))
	for k := range criteriaScores {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		if _, ok := known[k]; !ok {
			return nil, goerr.Wrap(ErrInvalidScore, "unknown criteria",
				goerr.V("criteria", k),
				goerr.V(ConfigurationIDKey, c.ID))
		}
	}

	scores := make([]float64, 0, len(keys))
	copied := make(map[string]float64, len(keys))
	for _, k := range keys {
		scores = append(scores, criteriaScores[k])
		copied[k] = criteriaScores[k]
	}

	return &CriteriaScoreResult{
		RiskScore:      c.CalculationMethod.Reduce(scores...),
		CriteriaScores: copied,
		Configuration:  c,
	}, nil
}

// Classify returns the first score level, by order, whose band contains the score.
// Bands are integer ranges, so a fractional score belongs to the band holding its floor.
// A score that falls in a gap returns ErrScoreOutOfRange rather than a guessed level.
func (c *RiskConfiguration) Classify(score float64) (*ScoreLevel, error) {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return nil, goerr.Wrap(ErrInvalidScore, "score must be a finite number", goerr.V(ScoreKey, score))
	}

	levels := slices.Clone(c.ScoreLevels)
	slices.SortStableFunc(levels, func(a, b ScoreLevel) int { return a.Order - b.Order })

	floor := math.Floor(score)
	for _, sl := range levels {
		if float64(sl.Min) <= floor && floor <= float64(sl.Max) {
			found := sl
			return &found, nil
		}
	}

	return nil, goerr.Wrap(ErrScoreOutOfRange, "no score level contains the score",
		goerr.V(ScoreKey, score),
		goerr.V(ConfigurationIDKey, c.ID))
}
