package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskscale/pkg/domain/model"
	"github.com/secmon-lab/riskscale/pkg/domain/types"
)

func TestValidateConfiguration(t *testing.T) {
	t.Run("valid 5x5", func(t *testing.T) {
		gt.A(t, model.ValidateConfiguration(newInput(5, 5, types.CalculationMethodMax))).Length(0)
	})

	t.Run("impact count must match the scale", func(t *testing.T) {
		for _, n := range []int{2, 3, 5, 10} {
			in := newInput(n, 3, types.CalculationMethodMax)
			gt.A(t, model.ValidateConfiguration(in)).Length(0)

			fewer := newInput(n, 3, types.CalculationMethodMax)
			fewer.Impacts = fewer.Impacts[:n-1]
			errs := model.ValidateConfiguration(fewer)
			gt.A(t, errs).Length(1).Required()
			gt.String(t, errs[0]).Contains("Exactly")
			gt.String(t, errs[0]).Contains("got")

			more := newInput(n, 3, types.CalculationMethodMax)
			more.Impacts = append(more.Impacts, model.ImpactLevel{Label: "extra", Score: float64(n + 1), Order: n + 1})
			errs = model.ValidateConfiguration(more)
			gt.A(t, errs).Length(1).Required()
		}
	})

	t.Run("message names the scale", func(t *testing.T) {
		in := newInput(4, 3, types.CalculationMethodMax)
		in.Impacts = in.Impacts[:3]
		errs := model.ValidateConfiguration(in)
		gt.A(t, errs).Length(1).Required()
		gt.V(t, errs[0]).Equal("Exactly 4 impact levels are required (got 3).")
	})

	t.Run("probability count must match the scale", func(t *testing.T) {
		in := newInput(3, 4, types.CalculationMethodMax)
		in.Probabilities = in.Probabilities[:2]
		errs := model.ValidateConfiguration(in)
		gt.A(t, errs).Length(1).Required()
		gt.V(t, errs[0]).Equal("Exactly 4 probability levels are required (got 2).")
	})

	t.Run("scale bounds", func(t *testing.T) {
		in := newInput(1, 11, types.CalculationMethodMax)
		errs := model.ValidateConfiguration(in)
		gt.A(t, errs).Has("Impact scale max must be between 2 and 10.")
		gt.A(t, errs).Has("Probability scale max must be between 2 and 10.")
	})

	t.Run("name and method", func(t *testing.T) {
		in := newInput(3, 3, types.CalculationMethod("sum"))
		in.Name = "  "
		errs := model.ValidateConfiguration(in)
		gt.A(t, errs).Length(2).Required()
		gt.V(t, errs[0]).Equal("Name is required.")
		gt.V(t, errs[1]).Equal("Calculation method must be one of: max, avg.")
	})

	t.Run("duplicate labels are reported once", func(t *testing.T) {
		in := newInput(3, 3, types.CalculationMethodMax)
		for i := range in.Impacts {
			in.Impacts[i].Label = "Same"
		}
		errs := model.ValidateConfiguration(in)
		gt.A(t, errs).Length(1).Required()
		gt.V(t, errs[0]).Equal(`Impact label "Same" is used more than once.`)
	})

	t.Run("criteria need a name and impacts only when enabled", func(t *testing.T) {
		in := newInput(3, 3, types.CalculationMethodMax)
		in.Criterias = []model.Criteria{{Name: ""}}
		gt.A(t, model.ValidateConfiguration(in)).Length(0)

		in.UseCriterias = true
		errs := model.ValidateConfiguration(in)
		gt.A(t, errs).Has("Criteria #1 must have a name.")
		gt.A(t, errs).Has("Criteria #1 must have at least one impact level.")
	})

	t.Run("score level bounds", func(t *testing.T) {
		in := newInput(3, 3, types.CalculationMethodMax)
		in.ScoreLevels = []model.ScoreLevel{
			{Label: "Zero", Min: 0, Max: 3},
			{Label: "", Min: 5, Max: 4},
		}
		errs := model.ValidateConfiguration(in)
		gt.A(t, errs).Has("Score level Zero must have a minimum of at least 1.")
		gt.A(t, errs).Has("Score level #2 must have a maximum greater than or equal to its minimum.")
	})
}

func TestAdvisories(t *testing.T) {
	t.Run("full coverage has no advisory", func(t *testing.T) {
		cfg := newInput(5, 5, types.CalculationMethodMax).ToConfiguration("acme")
		gt.A(t, cfg.Advisories()).Length(0)
	})

	t.Run("gap", func(t *testing.T) {
		in := newInput(5, 5, types.CalculationMethodMax)
		in.ScoreLevels[1].Min = 11
		notes := in.ToConfiguration("acme").Advisories()
		gt.A(t, notes).Length(1).Required()
		gt.V(t, notes[0]).Equal("Scores 9-10 are not covered by any score level.")
	})

	t.Run("overlap", func(t *testing.T) {
		in := newInput(5, 5, types.CalculationMethodMax)
		in.ScoreLevels[0].Max = 10
		notes := in.ToConfiguration("acme").Advisories()
		gt.A(t, notes).Length(1).Required()
		gt.V(t, notes[0]).Equal("Scores 9-10 are covered by more than one score level.")
	})

	t.Run("trailing gap", func(t *testing.T) {
		in := newInput(5, 5, types.CalculationMethodMax)
		in.ScoreLevels[2].Max = 20
		notes := in.ToConfiguration("acme").Advisories()
		gt.A(t, notes).Length(1).Required()
		gt.V(t, notes[0]).Equal("Scores 21-25 are not covered by any score level.")
	})

	t.Run("criteria misaligned with impact scale", func(t *testing.T) {
		in := withCriteria(newInput(5, 5, types.CalculationMethodMax), "Financial")
		in.Criterias[0].Impacts = in.Criterias[0].Impacts[:3]
		in.Criterias[0].Impacts[2].ImpactLevelOrder = 9
		notes := in.ToConfiguration("acme").Advisories()
		gt.A(t, notes).Has(`Criteria "Financial" has 3 impact levels but the impact scale has 5.`)
		gt.A(t, notes).Has(`Criteria "Financial" impact "I3" does not match any impact level.`)
	})
}
