package model_test

import (
	"fmt"

	"github.com/secmon-lab/riskscale/pkg/domain/model"
	"github.com/secmon-lab/riskscale/pkg/domain/types"
)

// newInput builds a valid input with levels scored 1..N and the
// Low 1-8 / Medium 9-17 / High 18-25 bands.
func newInput(impacts, probabilities int, method types.CalculationMethod) *model.ConfigurationInput {
	in := &model.ConfigurationInput{
		Name:                "Default",
		ImpactScaleMax:      impacts,
		ProbabilityScaleMax: probabilities,
		CalculationMethod:   method,
		ScoreLevels: []model.ScoreLevel{
			{Label: "Low", Min: 1, Max: 8, Color: "#22c55e", Order: 1},
			{Label: "Medium", Min: 9, Max: 17, Color: "#eab308", Order: 2},
			{Label: "High", Min: 18, Max: 25, Color: "#ef4444", Order: 3},
		},
	}
	for i := 1; i <= impacts; i++ {
		in.Impacts = append(in.Impacts, model.ImpactLevel{Label: fmt.Sprintf("I%d", i), Score: float64(i), Order: i})
	}
	for i := 1; i <= probabilities; i++ {
		in.Probabilities = append(in.Probabilities, model.ProbabilityLevel{Label: fmt.Sprintf("P%d", i), Score: float64(i), Order: i})
	}
	return in
}

func withCriteria(in *model.ConfigurationInput, names ...string) *model.ConfigurationInput {
	in.UseCriterias = true
	for i, name := range names {
		cr := model.Criteria{Name: name, Order: i + 1}
		for j := 1; j <= in.ImpactScaleMax; j++ {
			cr.Impacts = append(cr.Impacts, model.CriteriaImpact{ImpactLabel: fmt.Sprintf("I%d", j), Score: float64(j), Order: j})
		}
		in.Criterias = append(in.Criterias, cr)
	}
	return in
}
