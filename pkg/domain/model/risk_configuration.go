package model

import (
	"slices"
	"time"

	"github.com/secmon-lab/riskscale/pkg/domain/types"
)

// Scale bounds for impact and probability levels
const (
	MinScaleMax = 2
	MaxScaleMax = 10
)

// RiskConfiguration is the aggregate root holding an organization's risk-scoring rules.
// It is always created, replaced and read as a whole.
type RiskConfiguration struct {
	ID                  types.ConfigurationID
	OrganizationID      types.OrganizationID
	Name                string
	ImpactScaleMax      int
	ProbabilityScaleMax int
	CalculationMethod   types.CalculationMethod
	UseCriterias        bool
	Active              bool
	Version             int64

	Impacts       []ImpactLevel
	Probabilities []ProbabilityLevel
	Criterias     []Criteria
	ScoreLevels   []ScoreLevel

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ImpactLevel is one point of the impact scale
type ImpactLevel struct {
	Label string
	Score float64
	Order int
	Color string
}

// ProbabilityLevel is one point of the probability scale
type ProbabilityLevel struct {
	Label string
	Score float64
	Order int
	Color string
}

// Criteria is an optional secondary impact dimension with its own sub-scale
type Criteria struct {
	Name        string
	Description string
	Order       int
	Impacts     []CriteriaImpact
}

// CriteriaImpact is one point of a criterion's impact sub-scale.
// ImpactLevelOrder references the global ImpactLevel with the same Order;
// zero means the entry is aligned positionally by its own Order.
type CriteriaImpact struct {
	ImpactLabel      string
	Score            float64
	Order            int
	ImpactLevelOrder int
}

// ScoreLevel is a labeled severity band covering [Min, Max]
type ScoreLevel struct {
	Label string
	Min   int
	Max   int
	Color string
	Order int
}

// ConfigurationInput is the raw data supplied by a caller to create or replace a configuration
type ConfigurationInput struct {
	Name                string
	ImpactScaleMax      int
	ProbabilityScaleMax int
	CalculationMethod   types.CalculationMethod
	UseCriterias        bool

	Impacts       []ImpactLevel
	Probabilities []ProbabilityLevel
	Criterias     []Criteria
	ScoreLevels   []ScoreLevel
}

// ToConfiguration builds a new aggregate for the organization from the input.
// Children are copied and sorted by their caller-supplied order.
func (in *ConfigurationInput) ToConfiguration(orgID types.OrganizationID) *RiskConfiguration {
	cfg := &RiskConfiguration{OrganizationID: orgID}
	cfg.Apply(in)
	return cfg
}

// Apply overwrites the scalar fields and every child collection with the input.
// Identity, activation and version fields are left untouched.
func (c *RiskConfiguration) Apply(in *ConfigurationInput) {
	c.Name = in.Name
	c.ImpactScaleMax = in.ImpactScaleMax
	c.ProbabilityScaleMax = in.ProbabilityScaleMax
	c.CalculationMethod = in.CalculationMethod
	c.UseCriterias = in.UseCriterias

	c.Impacts = slices.Clone(in.Impacts)
	c.Probabilities = slices.Clone(in.Probabilities)
	c.ScoreLevels = slices.Clone(in.ScoreLevels)

	c.Criterias = nil
	if in.UseCriterias {
		c.Criterias = make([]Criteria, len(in.Criterias))
		for i, cr := range in.Criterias {
			c.Criterias[i] = cr
			c.Criterias[i].Impacts = slices.Clone(cr.Impacts)
		}
	}

	c.SortChildren()
}

// SortChildren orders every child collection by its Order field.
func (c *RiskConfiguration) SortChildren() {
	slices.SortStableFunc(c.Impacts, func(a, b ImpactLevel) int { return a.Order - b.Order })
	slices.SortStableFunc(c.Probabilities, func(a, b ProbabilityLevel) int { return a.Order - b.Order })
	slices.SortStableFunc(c.ScoreLevels, func(a, b ScoreLevel) int { return a.Order - b.Order })
	slices.SortStableFunc(c.Criterias, func(a, b Criteria) int { return a.Order - b.Order })
	for i := range c.Criterias {
		slices.SortStableFunc(c.Criterias[i].Impacts, func(a, b CriteriaImpact) int { return a.Order - b.Order })
	}
}

// Clone returns a deep copy of the configuration
func (c *RiskConfiguration) Clone() *RiskConfiguration {
	if c == nil {
		return nil
	}

	copied := *c
	copied.Impacts = slices.Clone(c.Impacts)
	copied.Probabilities = slices.Clone(c.Probabilities)
	copied.ScoreLevels = slices.Clone(c.ScoreLevels)
	if c.Criterias != nil {
		copied.Criterias = make([]Criteria, len(c.Criterias))
		for i, cr := range c.Criterias {
			copied.Criterias[i] = cr
			copied.Criterias[i].Impacts = slices.Clone(cr.Impacts)
		}
	}
	return &copied
}

// MaxRiskScore is the upper bound of the interval score levels are meant to cover
func (c *RiskConfiguration) MaxRiskScore() int {
	return c.ImpactScaleMax * c.ProbabilityScaleMax
}
