package model

import (
	"github.com/secmon-lab/riskscale/pkg/domain/types"
)

// ConfigArray is the wire format of a configuration aggregate shared by every
// presentation surface: detail and edit views, the risk list banner and the matrix.
type ConfigArray struct {
	ID                  string                  `json:"id"`
	Name                string                  `json:"name"`
	ImpactScaleMax      int                     `json:"impact_scale_max"`
	ProbabilityScaleMax int                     `json:"probability_scale_max"`
	CalculationMethod   types.CalculationMethod `json:"calculation_method"`
	UseCriterias        bool                    `json:"use_criterias"`
	Active              bool                    `json:"active"`
	Version             int64                   `json:"version"`
	Impacts             []LevelArray            `json:"impacts"`
	Probabilities       []LevelArray            `json:"probabilities"`
	Criterias           []CriteriaArray         `json:"criterias"`
	ScoreLevels         []ScoreLevelArray       `json:"score_levels"`
}

// LevelArray is the wire format of an impact or probability level
type LevelArray struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
	Order int     `json:"order"`
	Color string  `json:"color,omitempty"`
}

// CriteriaArray is the wire format of a criterion and its impact sub-scale
type CriteriaArray struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Order       int                   `json:"order"`
	Impacts     []CriteriaImpactArray `json:"impacts"`
}

// CriteriaImpactArray is the wire format of one criterion impact entry
type CriteriaImpactArray struct {
	ImpactLabel      string  `json:"impact_label"`
	Score            float64 `json:"score"`
	Order            int     `json:"order"`
	ImpactLevelOrder int     `json:"impact_level_order,omitempty"`
}

// ScoreLevelArray is the wire format of a score level
type ScoreLevelArray struct {
	Label string `json:"label"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Color string `json:"color"`
	Order int    `json:"order"`
}

// ToConfigArray serializes the whole aggregate. Collections are never nil so
// clients always receive arrays.
func (c *RiskConfiguration) ToConfigArray() ConfigArray {
	out := ConfigArray{
		ID:                  c.ID.String(),
		Name:                c.Name,
		ImpactScaleMax:      c.ImpactScaleMax,
		ProbabilityScaleMax: c.ProbabilityScaleMax,
		CalculationMethod:   c.CalculationMethod,
		UseCriterias:        c.UseCriterias,
		Active:              c.Active,
		Version:             c.Version,
		Impacts:             make([]LevelArray, len(c.Impacts)),
		Probabilities:       make([]LevelArray, len(c.Probabilities)),
		Criterias:           make([]CriteriaArray, len(c.Criterias)),
		ScoreLevels:         make([]ScoreLevelArray, len(c.ScoreLevels)),
	}

	for i, l := range c.Impacts {
		out.Impacts[i] = LevelArray{Label: l.Label, Score: l.Score, Order: l.Order, Color: l.Color}
	}
	for i, l := range c.Probabilities {
		out.Probabilities[i] = LevelArray{Label: l.Label, Score: l.Score, Order: l.Order, Color: l.Color}
	}
	for i, cr := range c.Criterias {
		impacts := make([]CriteriaImpactArray, len(cr.Impacts))
		for j, ci := range cr.Impacts {
			impacts[j] = CriteriaImpactArray{
				ImpactLabel:      ci.ImpactLabel,
				Score:            ci.Score,
				Order:            ci.Order,
				ImpactLevelOrder: ci.ImpactLevelOrder,
			}
		}
		out.Criterias[i] = CriteriaArray{
			Name:        cr.Name,
			Description: cr.Description,
			Order:       cr.Order,
			Impacts:     impacts,
		}
	}
	for i, sl := range c.ScoreLevels {
		out.ScoreLevels[i] = ScoreLevelArray{Label: sl.Label, Min: sl.Min, Max: sl.Max, Color: sl.Color, Order: sl.Order}
	}

	return out
}

// ToInput converts a submitted wire-format configuration back into raw input.
// The edit form posts the same shape it receives.
func (a *ConfigArray) ToInput() *ConfigurationInput {
	in := &ConfigurationInput{
		Name:                a.Name,
		ImpactScaleMax:      a.ImpactScaleMax,
		ProbabilityScaleMax: a.ProbabilityScaleMax,
		CalculationMethod:   a.CalculationMethod,
		UseCriterias:        a.UseCriterias,
	}

	for _, l := range a.Impacts {
		in.Impacts = append(in.Impacts, ImpactLevel{Label: l.Label, Score: l.Score, Order: l.Order, Color: l.Color})
	}
	for _, l := range a.Probabilities {
		in.Probabilities = append(in.Probabilities, ProbabilityLevel{Label: l.Label, Score: l.Score, Order: l.Order, Color: l.Color})
	}
	for _, cr := range a.Criterias {
		criteria := Criteria{Name: cr.Name, Description: cr.Description, Order: cr.Order}
		for _, ci := range cr.Impacts {
			criteria.Impacts = append(criteria.Impacts, CriteriaImpact{
				ImpactLabel:      ci.ImpactLabel,
				Score:            ci.Score,
				Order:            ci.Order,
				ImpactLevelOrder: ci.ImpactLevelOrder,
			})
		}
		in.Criterias = append(in.Criterias, criteria)
	}
	for _, sl := range a.ScoreLevels {
		in.ScoreLevels = append(in.ScoreLevels, ScoreLevel{Label: sl.Label, Min: sl.Min, Max: sl.Max, Color: sl.Color, Order: sl.Order})
	}

	return in
}

// MatrixCell is one impact x probability cell of the risk matrix
type MatrixCell struct {
	ImpactLabel      string  `json:"impact_label"`
	ImpactOrder      int     `json:"impact_order"`
	ProbabilityLabel string  `json:"probability_label"`
	ProbabilityOrder int     `json:"probability_order"`
	Score            float64 `json:"score"`
	Level            string  `json:"level,omitempty"`
	Color            string  `json:"color,omitempty"`
}

// MatrixData is the payload behind the risk matrix visualization
type MatrixData struct {
	Configuration ConfigArray    `json:"configuration"`
	Rows          [][]MatrixCell `json:"rows"`
}

// BuildMatrix computes every cell of the grid with the same reduction used by
// CalculateRiskScore. Rows follow probability order, columns impact order.
// Cells whose score falls in a gap carry no level.
func (c *RiskConfiguration) BuildMatrix() *MatrixData {
	rows := make([][]MatrixCell, len(c.Probabilities))
	for i, p := range c.Probabilities {
		row := make([]MatrixCell, len(c.Impacts))
		for j, imp := range c.Impacts {
			result := c.CalculateRiskScore(imp.Score, p.Score)
			cell := MatrixCell{
				ImpactLabel:      imp.Label,
				ImpactOrder:      imp.Order,
				ProbabilityLabel: p.Label,
				ProbabilityOrder: p.Order,
				Score:            result.RiskScore,
			}
			if level, err := c.Classify(result.RiskScore); err == nil {
				cell.Level = level.Label
				cell.Color = level.Color
			}
			row[j] = cell
		}
		rows[i] = row
	}

	return &MatrixData{
		Configuration: c.ToConfigArray(),
		Rows:          rows,
	}
}
