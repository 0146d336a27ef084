package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskscale/pkg/domain/model"
	"github.com/secmon-lab/riskscale/pkg/domain/types"
)

const testOrgID = types.OrganizationID("org-sqlite")

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()

	s, err := New(context.Background(), filepath.Join(t.TempDir(), "riskscale.db"))
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("failed to close sqlite repository: %v", err)
		}
	})
	return s
}

func testInput(impactCount int, highLabel string) *model.ConfigurationInput {
	in := &model.ConfigurationInput{
		Name:                "Default",
		ImpactScaleMax:      impactCount,
		ProbabilityScaleMax: 3,
		CalculationMethod:   types.CalculationMethodMax,
		UseCriterias:        true,
		Probabilities: []model.ProbabilityLevel{
			{Label: "Rare", Score: 1, Order: 1},
			{Label: "Possible", Score: 2, Order: 2},
			{Label: "Likely", Score: 3, Order: 3},
		},
		Criterias: []model.Criteria{
			{Name: "Financial", Order: 1, Impacts: []model.CriteriaImpact{
				{ImpactLabel: "Small", Score: 1, Order: 1, ImpactLevelOrder: 1},
				{ImpactLabel: "Large", Score: 2, Order: 2, ImpactLevelOrder: 2},
			}},
		},
		ScoreLevels: []model.ScoreLevel{
			{Label: "Low", Min: 1, Max: 2, Order: 1},
			{Label: highLabel, Min: 3, Max: impactCount * 3, Order: 2},
		},
	}
	for i := 1; i <= impactCount; i++ {
		in.Impacts = append(in.Impacts, model.ImpactLevel{Label: fmt.Sprintf("I%d", i), Score: float64(i), Order: i})
	}
	return in
}

type childCounts struct {
	Impacts         int
	Probabilities   int
	Criterias       int
	CriteriaImpacts int
	ScoreLevels     int
}

// countChildren counts the rows owned by id. Criteria impacts are counted
// through criteriaIDs so rows orphaned by a missing criteria still show up.
func countChildren(t *testing.T, s *SQLite, id types.ConfigurationID, criteriaIDs []int64) childCounts {
	t.Helper()
	ctx := context.Background()

	count := func(query string, args ...any) int {
		var n int
		gt.NoError(t, s.db.GetContext(ctx, &n, query, args...)).Required()
		return n
	}

	var c childCounts
	c.Impacts = count(`SELECT COUNT(*) FROM risk_impact_levels WHERE configuration_id = ?`, id.String())
	c.Probabilities = count(`SELECT COUNT(*) FROM risk_probability_levels WHERE configuration_id = ?`, id.String())
	c.Criterias = count(`SELECT COUNT(*) FROM risk_criterias WHERE configuration_id = ?`, id.String())
	c.ScoreLevels = count(`SELECT COUNT(*) FROM risk_score_levels WHERE configuration_id = ?`, id.String())
	c.CriteriaImpacts = count(`SELECT COUNT(*) FROM risk_criteria_impacts
		WHERE criteria_id IN (SELECT id FROM risk_criterias WHERE configuration_id = ?)`, id.String())
	for _, criteriaID := range criteriaIDs {
		c.CriteriaImpacts += count(`SELECT COUNT(*) FROM risk_criteria_impacts
			WHERE criteria_id = ? AND criteria_id NOT IN (SELECT id FROM risk_criterias)`, criteriaID)
	}
	return c
}

func criteriaIDsOf(t *testing.T, s *SQLite, id types.ConfigurationID) []int64 {
	t.Helper()

	var ids []int64
	gt.NoError(t, s.db.SelectContext(context.Background(), &ids,
		`SELECT id FROM risk_criterias WHERE configuration_id = ?`, id.String())).Required()
	return ids
}

func failScoreLevelInserts(t *testing.T, s *SQLite, label string) {
	t.Helper()

	_, err := s.db.ExecContext(context.Background(), fmt.Sprintf(`CREATE TRIGGER fail_score_levels
		BEFORE INSERT ON risk_score_levels
		WHEN NEW.label = '%s'
		BEGIN SELECT RAISE(ABORT, 'score level insert rejected'); END`, label))
	gt.NoError(t, err).Required()
}

func TestRiskConfigurationRollback(t *testing.T) {
	t.Run("failed Replace leaves the stored aggregate untouched", func(t *testing.T) {
		s := newTestSQLite(t)
		ctx := context.Background()
		repo := s.riskConfiguration

		created, err := repo.Create(ctx, testInput(5, "High").ToConfiguration(testOrgID))
		gt.NoError(t, err).Required()
		before := countChildren(t, s, created.ID, nil)

		failScoreLevelInserts(t, s, "Explode")

		next := created.Clone()
		next.Apply(testInput(3, "Explode"))
		_, err = repo.Replace(ctx, next, created.Version)
		gt.Error(t, err).Is(model.ErrPersistence)

		got, err := repo.Get(ctx, testOrgID, created.ID)
		gt.NoError(t, err).Required()
		gt.Array(t, got.Impacts).Length(5).Required()
		gt.Value(t, got.Impacts[4].Label).Equal("I5")
		gt.Value(t, got.Version).Equal(created.Version)
		gt.Value(t, got.ImpactScaleMax).Equal(5)
		gt.Array(t, got.ScoreLevels).Length(2).Required()
		gt.Value(t, got.ScoreLevels[1].Label).Equal("High")
		gt.Value(t, got.ScoreLevels[1].Max).Equal(15)
		gt.Value(t, countChildren(t, s, created.ID, nil)).Equal(before)
	})

	t.Run("failed Create leaves nothing behind", func(t *testing.T) {
		s := newTestSQLite(t)
		ctx := context.Background()
		repo := s.riskConfiguration

		existing, err := repo.Create(ctx, testInput(5, "High").ToConfiguration(testOrgID))
		gt.NoError(t, err).Required()

		failScoreLevelInserts(t, s, "Explode")

		cfg := testInput(3, "Explode").ToConfiguration(testOrgID)
		cfg.ID = types.NewConfigurationID()
		_, err = repo.Create(ctx, cfg)
		gt.Error(t, err).Is(model.ErrPersistence)

		_, err = repo.Get(ctx, testOrgID, cfg.ID)
		gt.Error(t, err).Is(model.ErrNotFound)

		configs, err := repo.List(ctx, testOrgID)
		gt.NoError(t, err).Required()
		gt.Array(t, configs).Length(1).Required()
		gt.Value(t, configs[0].ID).Equal(existing.ID)

		gt.Value(t, countChildren(t, s, cfg.ID, nil)).Equal(childCounts{})
		var orphans int
		gt.NoError(t, s.db.GetContext(ctx, &orphans, `SELECT COUNT(*) FROM risk_criteria_impacts
			WHERE criteria_id NOT IN (SELECT id FROM risk_criterias)`)).Required()
		gt.Number(t, orphans).Equal(0)
	})
}

func TestRiskConfigurationChildRows(t *testing.T) {
	t.Run("Replace keeps only the new children", func(t *testing.T) {
		s := newTestSQLite(t)
		ctx := context.Background()
		repo := s.riskConfiguration

		created, err := repo.Create(ctx, testInput(5, "High").ToConfiguration(testOrgID))
		gt.NoError(t, err).Required()
		gt.Value(t, countChildren(t, s, created.ID, nil)).Equal(childCounts{
			Impacts: 5, Probabilities: 3, Criterias: 1, CriteriaImpacts: 2, ScoreLevels: 2,
		})
		oldCriteriaIDs := criteriaIDsOf(t, s, created.ID)

		next := created.Clone()
		in := testInput(3, "High")
		in.Criterias = append(in.Criterias, model.Criteria{Name: "Legal", Order: 2, Impacts: []model.CriteriaImpact{
			{ImpactLabel: "Fine", Score: 3, Order: 1, ImpactLevelOrder: 3},
		}})
		next.Apply(in)
		_, err = repo.Replace(ctx, next, created.Version)
		gt.NoError(t, err).Required()

		gt.Value(t, countChildren(t, s, created.ID, oldCriteriaIDs)).Equal(childCounts{
			Impacts: 3, Probabilities: 3, Criterias: 2, CriteriaImpacts: 3, ScoreLevels: 2,
		})
	})

	t.Run("Delete removes every child row", func(t *testing.T) {
		s := newTestSQLite(t)
		ctx := context.Background()
		repo := s.riskConfiguration

		kept, err := repo.Create(ctx, testInput(4, "High").ToConfiguration(testOrgID))
		gt.NoError(t, err).Required()
		deleted, err := repo.Create(ctx, testInput(5, "High").ToConfiguration(testOrgID))
		gt.NoError(t, err).Required()
		criteriaIDs := criteriaIDsOf(t, s, deleted.ID)
		gt.Array(t, criteriaIDs).Length(1)

		gt.NoError(t, repo.Delete(ctx, testOrgID, deleted.ID)).Required()

		gt.Value(t, countChildren(t, s, deleted.ID, criteriaIDs)).Equal(childCounts{})
		gt.Value(t, countChildren(t, s, kept.ID, nil)).Equal(childCounts{
			Impacts: 4, Probabilities: 3, Criterias: 1, CriteriaImpacts: 2, ScoreLevels: 2,
		})
	})

	t.Run("criteria enabled without criteria loads an empty list", func(t *testing.T) {
		s := newTestSQLite(t)
		ctx := context.Background()

		in := testInput(3, "High")
		in.Criterias = nil
		created, err := s.riskConfiguration.Create(ctx, in.ToConfiguration(testOrgID))
		gt.NoError(t, err).Required()
		gt.Value(t, created.Criterias).NotNil()
		gt.Array(t, created.Criterias).Length(0)
	})
}
