package types_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskscale/pkg/domain/types"
)

func TestCalculationMethod_IsValid(t *testing.T) {
	tests := []struct {
		name   string
		method types.CalculationMethod
		want   bool
	}{
		{name: "max", method: types.CalculationMethodMax, want: true},
		{name: "avg", method: types.CalculationMethodAvg, want: true},
		{name: "unknown", method: types.CalculationMethod("sum"), want: false},
		{name: "empty", method: types.CalculationMethod(""), want: false},
		{name: "case sensitive", method: types.CalculationMethod("MAX"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.want {
				gt.B(t, tt.method.IsValid()).True()
			} else {
				gt.B(t, tt.method.IsValid()).False()
			}
		})
	}
}

func TestCalculationMethod_Reduce(t *testing.T) {
	tests := []struct {
		name   string
		method types.CalculationMethod
		scores []float64
		want   float64
	}{
		{name: "max of two", method: types.CalculationMethodMax, scores: []float64{2, 4}, want: 4},
		{name: "max keeps first when equal", method: types.CalculationMethodMax, scores: []float64{3, 3}, want: 3},
		{name: "max of many", method: types.CalculationMethodMax, scores: []float64{1, 5, 2}, want: 5},
		{name: "avg of two", method: types.CalculationMethodAvg, scores: []float64{2, 4}, want: 3},
		{name: "avg fractional", method: types.CalculationMethodAvg, scores: []float64{2, 3}, want: 2.5},
		{name: "avg of many", method: types.CalculationMethodAvg, scores: []float64{1, 2, 3, 6}, want: 3},
		{name: "single score", method: types.CalculationMethodAvg, scores: []float64{7}, want: 7},
		{name: "no scores", method: types.CalculationMethodMax, scores: nil, want: 0},
		{name: "unknown method", method: types.CalculationMethod("sum"), scores: []float64{1, 2}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.V(t, tt.method.Reduce(tt.scores...)).Equal(tt.want)
		})
	}
}

func TestParseCalculationMethod(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		got, err := types.ParseCalculationMethod("avg")
		gt.NoError(t, err)
		gt.V(t, got).Equal(types.CalculationMethodAvg)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := types.ParseCalculationMethod("median")
		gt.Value(t, err).NotNil()
	})
}

func TestAllCalculationMethods(t *testing.T) {
	methods := types.AllCalculationMethods()
	gt.A(t, methods).Length(2)
	for _, m := range methods {
		gt.B(t, m.IsValid()).True()
	}
}
