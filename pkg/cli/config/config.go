package config

import (
	"bytes"
	"errors"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/riskscale/pkg/domain/model"
	"github.com/secmon-lab/riskscale/pkg/domain/types"
)

// RiskConfigFile is a risk configuration described in TOML. It is used to seed
// an organization and to lint a configuration before it is submitted.
type RiskConfigFile struct {
	Name                string         `toml:"name"`
	ImpactScaleMax      int            `toml:"impact_scale_max"`
	ProbabilityScaleMax int            `toml:"probability_scale_max"`
	CalculationMethod   string         `toml:"calculation_method"`
	UseCriterias        bool           `toml:"use_criterias"`
	Impacts             []LevelEntry   `toml:"impacts"`
	Probabilities       []LevelEntry   `toml:"probabilities"`
	Criterias           []CriteriaFile `toml:"criterias"`
	ScoreLevels         []ScoreEntry   `toml:"score_levels"`
}

// LevelEntry is an impact or probability level. Order defaults to the
// position in the file when omitted.
type LevelEntry struct {
	Label string  `toml:"label"`
	Score float64 `toml:"score"`
	Order int     `toml:"order"`
	Color string  `toml:"color"`
}

// CriteriaFile is a criterion with its impact sub-scale
type CriteriaFile struct {
	Name        string                `toml:"name"`
	Description string                `toml:"description"`
	Order       int                   `toml:"order"`
	Impacts     []CriteriaImpactEntry `toml:"impacts"`
}

// CriteriaImpactEntry is one entry of a criterion's impact sub-scale
type CriteriaImpactEntry struct {
	ImpactLabel      string  `toml:"impact_label"`
	Score            float64 `toml:"score"`
	Order            int     `toml:"order"`
	ImpactLevelOrder int     `toml:"impact_level_order"`
}

// ScoreEntry is a labeled score band
type ScoreEntry struct {
	Label string `toml:"label"`
	Min   int    `toml:"min"`
	Max   int    `toml:"max"`
	Color string `toml:"color"`
	Order int    `toml:"order"`
}

// LoadRiskConfigFile reads and decodes a TOML risk configuration. Unknown keys
// are rejected so that typos do not silently drop levels.
func LoadRiskConfigFile(path string) (*RiskConfigFile, error) {
	// #nosec G304 - path is provided by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "risk configuration file not found", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read risk configuration file", goerr.V(ConfigPathKey, path))
	}

	var file RiskConfigFile
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return nil, goerr.Wrap(errors.Join(ErrInvalidConfig, err), "failed to parse risk configuration file", goerr.V(ConfigPathKey, path))
	}

	return &file, nil
}

// ToInput converts the file into configuration input. Entries without an
// explicit order are numbered by their position, starting at 1.
func (f *RiskConfigFile) ToInput() *model.ConfigurationInput {
	in := &model.ConfigurationInput{
		Name:                f.Name,
		ImpactScaleMax:      f.ImpactScaleMax,
		ProbabilityScaleMax: f.ProbabilityScaleMax,
		CalculationMethod:   types.CalculationMethod(f.CalculationMethod),
		UseCriterias:        f.UseCriterias,
	}

	for i, l := range f.Impacts {
		in.Impacts = append(in.Impacts, model.ImpactLevel{Label: l.Label, Score: l.Score, Order: orderOf(l.Order, i), Color: l.Color})
	}
	for i, l := range f.Probabilities {
		in.Probabilities = append(in.Probabilities, model.ProbabilityLevel{Label: l.Label, Score: l.Score, Order: orderOf(l.Order, i), Color: l.Color})
	}
	for i, cr := range f.Criterias {
		criteria := model.Criteria{Name: cr.Name, Description: cr.Description, Order: orderOf(cr.Order, i)}
		for j, ci := range cr.Impacts {
			criteria.Impacts = append(criteria.Impacts, model.CriteriaImpact{
				ImpactLabel:      ci.ImpactLabel,
				Score:            ci.Score,
				Order:            orderOf(ci.Order, j),
				ImpactLevelOrder: ci.ImpactLevelOrder,
			})
		}
		in.Criterias = append(in.Criterias, criteria)
	}
	for i, sl := range f.ScoreLevels {
		in.ScoreLevels = append(in.ScoreLevels, model.ScoreLevel{Label: sl.Label, Min: sl.Min, Max: sl.Max, Color: sl.Color, Order: orderOf(sl.Order, i)})
	}

	return in
}

func orderOf(order, index int) int {
	if order != 0 {
		return order
	}
	return index + 1
}
