package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskscale/pkg/domain/model"
	"github.com/secmon-lab/riskscale/pkg/domain/types"
)

type configurationRow struct {
	ID                  string `db:"id"`
	OrganizationID      string `db:"organization_id"`
	Name                string `db:"name"`
	ImpactScaleMax      int    `db:"impact_scale_max"`
	ProbabilityScaleMax int    `db:"probability_scale_max"`
	CalculationMethod   string `db:"calculation_method"`
	UseCriterias        bool   `db:"use_criterias"`
	Active              bool   `db:"active"`
	Version             int64  `db:"version"`
	CreatedAt           int64  `db:"created_at"`
	UpdatedAt           int64  `db:"updated_at"`
}

type levelRow struct {
	Label string  `db:"label"`
	Score float64 `db:"score"`
	Order int     `db:"sort_order"`
	Color string  `db:"color"`
}

type criteriaRow struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Order       int    `db:"sort_order"`
}

type criteriaImpactRow struct {
	CriteriaID       int64   `db:"criteria_id"`
	ImpactLabel      string  `db:"impact_label"`
	Score            float64 `db:"score"`
	Order            int     `db:"sort_order"`
	ImpactLevelOrder int     `db:"impact_level_order"`
}

type scoreLevelRow struct {
	Label string `db:"label"`
	Min   int    `db:"min_score"`
	Max   int    `db:"max_score"`
	Color string `db:"color"`
	Order int    `db:"sort_order"`
}

const selectConfiguration = `SELECT id, organization_id, name, impact_scale_max, probability_scale_max,
	calculation_method, use_criterias, active, version, created_at, updated_at
	FROM risk_configurations`

type riskConfigurationRepository struct {
	db *sqlx.DB
}

func newRiskConfigurationRepository(db *sqlx.DB) *riskConfigurationRepository {
	return &riskConfigurationRepository{db: db}
}

// withTx runs fn in one transaction and rolls back on any error
func (r *riskConfigurationRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.PersistenceError(err, "failed to begin transaction")
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return model.PersistenceError(errors.Join(err, rbErr), "failed to roll back transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return model.PersistenceError(err, "failed to commit transaction")
	}
	return nil
}

func (r *riskConfigurationRepository) Create(ctx context.Context, cfg *model.RiskConfiguration) (*model.RiskConfiguration, error) {
	created := cfg.Clone()
	if created.ID == "" {
		created.ID = types.NewConfigurationID()
	}
	now := time.Now().UTC()
	created.Active = false
	created.Version = 1
	created.CreatedAt = now
	created.UpdatedAt = now

	var loaded *model.RiskConfiguration
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO risk_configurations
			(id, organization_id, name, impact_scale_max, probability_scale_max, calculation_method,
			 use_criterias, active, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			created.ID.String(), created.OrganizationID.String(), created.Name, created.ImpactScaleMax, created.ProbabilityScaleMax,
			created.CalculationMethod.String(), created.UseCriterias, created.Active, created.Version,
			created.CreatedAt.UnixNano(), created.UpdatedAt.UnixNano(),
		); err != nil {
			return model.PersistenceError(err, "failed to insert risk configuration", goerr.V(model.ConfigurationIDKey, created.ID))
		}

		if err := insertChildren(ctx, tx, created); err != nil {
			return err
		}

		var err error
		loaded, err = loadConfiguration(ctx, tx, created.OrganizationID, created.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return loaded, nil
}

func (r *riskConfigurationRepository) Get(ctx context.Context, orgID types.OrganizationID, id types.ConfigurationID) (*model.RiskConfiguration, error) {
	var loaded *model.RiskConfiguration
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		loaded, err = loadConfiguration(ctx, tx, orgID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return loaded, nil
}

func (r *riskConfigurationRepository) List(ctx context.Context, orgID types.OrganizationID) ([]*model.RiskConfiguration, error) {
	var configs []*model.RiskConfiguration
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var rows []configurationRow
		if err := tx.SelectContext(ctx, &rows, selectConfiguration+` WHERE organization_id = ? ORDER BY created_at, rowid`, orgID.String()); err != nil {
			return model.PersistenceError(err, "failed to list risk configurations", goerr.V(model.OrganizationIDKey, orgID))
		}

		configs = make([]*model.RiskConfiguration, 0, len(rows))
		for _, row := range rows {
			cfg, err := loadChildren(ctx, tx, &row)
			if err != nil {
				return err
			}
			configs = append(configs, cfg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *riskConfigurationRepository) GetActive(ctx context.Context, orgID types.OrganizationID) (*model.RiskConfiguration, error) {
	var loaded *model.RiskConfiguration
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var row configurationRow
		err := tx.GetContext(ctx, &row, selectConfiguration+` WHERE organization_id = ?
			ORDER BY active DESC, created_at, rowid LIMIT 1`, orgID.String())
		if errors.Is(err, sql.ErrNoRows) {
			return goerr.Wrap(model.ErrNotFound, "no risk configuration for organization", goerr.V(model.OrganizationIDKey, orgID))
		}
		if err != nil {
			return model.PersistenceError(err, "failed to get active risk configuration", goerr.V(model.OrganizationIDKey, orgID))
		}

		loaded, err = loadChildren(ctx, tx, &row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return loaded, nil
}

func (r *riskConfigurationRepository) Replace(ctx context.Context, cfg *model.RiskConfiguration, expectedVersion int64) (*model.RiskConfiguration, error) {
	var loaded *model.RiskConfiguration
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var version int64
		err := tx.GetContext(ctx, &version, `SELECT version FROM risk_configurations WHERE id = ? AND organization_id = ?`,
			cfg.ID.String(), cfg.OrganizationID.String())
		if errors.Is(err, sql.ErrNoRows) {
			return goerr.Wrap(model.ErrNotFound, "risk configuration not found",
				goerr.V(model.OrganizationIDKey, cfg.OrganizationID),
				goerr.V(model.ConfigurationIDKey, cfg.ID))
		}
		if err != nil {
			return model.PersistenceError(err, "failed to read risk configuration version", goerr.V(model.ConfigurationIDKey, cfg.ID))
		}

		if expectedVersion != 0 && expectedVersion != version {
			return goerr.Wrap(model.ErrVersionConflict, "risk configuration version mismatch",
				goerr.V(model.ConfigurationIDKey, cfg.ID),
				goerr.V(model.VersionKey, version),
				goerr.V(model.ExpectedVersionKey, expectedVersion))
		}

		if _, err := tx.ExecContext(ctx, `UPDATE risk_configurations SET
			name = ?, impact_scale_max = ?, probability_scale_max = ?, calculation_method = ?,
			use_criterias = ?, version = ?, updated_at = ?
			WHERE id = ?`,
			cfg.Name, cfg.ImpactScaleMax, cfg.ProbabilityScaleMax, cfg.CalculationMethod.String(),
			cfg.UseCriterias, version+1, time.Now().UTC().UnixNano(), cfg.ID.String(),
		); err != nil {
			return model.PersistenceError(err, "failed to update risk configuration", goerr.V(model.ConfigurationIDKey, cfg.ID))
		}

		if err := deleteChildren(ctx, tx, cfg.ID); err != nil {
			return err
		}

		replaced := cfg.Clone()
		replaced.SortChildren()
		if err := insertChildren(ctx, tx, replaced); err != nil {
			return err
		}

		loaded, err = loadConfiguration(ctx, tx, cfg.OrganizationID, cfg.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return loaded, nil
}

func (r *riskConfigurationRepository) Delete(ctx context.Context, orgID types.OrganizationID, id types.ConfigurationID) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := deleteChildren(ctx, tx, id); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM risk_configurations WHERE id = ? AND organization_id = ?`, id.String(), orgID.String())
		if err != nil {
			return model.PersistenceError(err, "failed to delete risk configuration", goerr.V(model.ConfigurationIDKey, id))
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return model.PersistenceError(err, "failed to read affected rows", goerr.V(model.ConfigurationIDKey, id))
		}
		if affected == 0 {
			return goerr.Wrap(model.ErrNotFound, "risk configuration not found",
				goerr.V(model.OrganizationIDKey, orgID),
				goerr.V(model.ConfigurationIDKey, id))
		}
		return nil
	})
}

func (r *riskConfigurationRepository) Activate(ctx context.Context, orgID types.OrganizationID, id types.ConfigurationID) (*model.RiskConfiguration, error) {
	var loaded *model.RiskConfiguration
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		if loaded, err = loadConfiguration(ctx, tx, orgID, id); err != nil {
			return err
		}

		now := time.Now().UTC().UnixNano()
		if _, err := tx.ExecContext(ctx, `UPDATE risk_configurations SET active = 0, updated_at = ?
			WHERE organization_id = ? AND active = 1 AND id != ?`, now, orgID.String(), id.String()); err != nil {
			return model.PersistenceError(err, "failed to deactivate risk configurations", goerr.V(model.OrganizationIDKey, orgID))
		}
		if !loaded.Active {
			if _, err := tx.ExecContext(ctx, `UPDATE risk_configurations SET active = 1, updated_at = ? WHERE id = ?`, now, id.String()); err != nil {
				return model.PersistenceError(err, "failed to activate risk configuration", goerr.V(model.ConfigurationIDKey, id))
			}
		}

		loaded, err = loadConfiguration(ctx, tx, orgID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return loaded, nil
}

func deleteChildren(ctx context.Context, tx *sqlx.Tx, id types.ConfigurationID) error {
	stmts := []string{
		`DELETE FROM risk_criteria_impacts WHERE criteria_id IN (SELECT id FROM risk_criterias WHERE configuration_id = ?)`,
		`DELETE FROM risk_criterias WHERE configuration_id = ?`,
		`DELETE FROM risk_impact_levels WHERE configuration_id = ?`,
		`DELETE FROM risk_probability_levels WHERE configuration_id = ?`,
		`DELETE FROM risk_score_levels WHERE configuration_id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, id.String()); err != nil {
			return model.PersistenceError(err, "failed to delete risk configuration children", goerr.V(model.ConfigurationIDKey, id))
		}
	}
	return nil
}

func insertChildren(ctx context.Context, tx *sqlx.Tx, cfg *model.RiskConfiguration) error {
	for _, l := range cfg.Impacts {
		if _, err := tx.ExecContext(ctx, `INSERT INTO risk_impact_levels (configuration_id, label, score, sort_order, color)
			VALUES (?, ?, ?, ?, ?)`, cfg.ID.String(), l.Label, l.Score, l.Order, l.Color); err != nil {
			return model.PersistenceError(err, "failed to insert impact level", goerr.V("label", l.Label))
		}
	}

	for _, l := range cfg.Probabilities {
		if _, err := tx.ExecContext(ctx, `INSERT INTO risk_probability_levels (configuration_id, label, score, sort_order, color)
			VALUES (?, ?, ?, ?, ?)`, cfg.ID.String(), l.Label, l.Score, l.Order, l.Color); err != nil {
			return model.PersistenceError(err, "failed to insert probability level", goerr.V("label", l.Label))
		}
	}

	for _, cr := range cfg.Criterias {
		res, err := tx.ExecContext(ctx, `INSERT INTO risk_criterias (configuration_id, name, description, sort_order)
			VALUES (?, ?, ?, ?)`, cfg.ID.String(), cr.Name, cr.Description, cr.Order)
		if err != nil {
			return model.PersistenceError(err, "failed to insert criteria", goerr.V("name", cr.Name))
		}
		criteriaID, err := res.LastInsertId()
		if err != nil {
			return model.PersistenceError(err, "failed to read criteria ID", goerr.V("name", cr.Name))
		}

		for _, ci := range cr.Impacts {
			if _, err := tx.ExecContext(ctx, `INSERT INTO risk_criteria_impacts
				(criteria_id, impact_label, score, sort_order, impact_level_order)
				VALUES (?, ?, ?, ?, ?)`, criteriaID, ci.ImpactLabel, ci.Score, ci.Order, ci.ImpactLevelOrder); err != nil {
				return model.PersistenceError(err, "failed to insert criteria impact",
					goerr.V("name", cr.Name),
					goerr.V("impact_label", ci.ImpactLabel))
			}
		}
	}

	for _, sl := range cfg.ScoreLevels {
		if _, err := tx.ExecContext(ctx, `INSERT INTO risk_score_levels
			(configuration_id, label, min_score, max_score, color, sort_order)
			VALUES (?, ?, ?, ?, ?, ?)`, cfg.ID.String(), sl.Label, sl.Min, sl.Max, sl.Color, sl.Order); err != nil {
			return model.PersistenceError(err, "failed to insert score level", goerr.V("label", sl.Label))
		}
	}

	return nil
}

func loadConfiguration(ctx context.Context, tx *sqlx.Tx, orgID types.OrganizationID, id types.ConfigurationID) (*model.RiskConfiguration, error) {
	var row configurationRow
	err := tx.GetContext(ctx, &row, selectConfiguration+` WHERE id = ? AND organization_id = ?`, id.String(), orgID.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(model.ErrNotFound, "risk configuration not found",
			goerr.V(model.OrganizationIDKey, orgID),
			goerr.V(model.ConfigurationIDKey, id))
	}
	if err != nil {
		return nil, model.PersistenceError(err, "failed to get risk configuration", goerr.V(model.ConfigurationIDKey, id))
	}

	return loadChildren(ctx, tx, &row)
}

// loadChildren eagerly loads every child collection of the row
func loadChildren(ctx context.Context, tx *sqlx.Tx, row *configurationRow) (*model.RiskConfiguration, error) {
	cfg := &model.RiskConfiguration{
		ID:                  types.ConfigurationID(row.ID),
		OrganizationID:      types.OrganizationID(row.OrganizationID),
		Name:                row.Name,
		ImpactScaleMax:      row.ImpactScaleMax,
		ProbabilityScaleMax: row.ProbabilityScaleMax,
		CalculationMethod:   types.CalculationMethod(row.CalculationMethod),
		UseCriterias:        row.UseCriterias,
		Active:              row.Active,
		Version:             row.Version,
		CreatedAt:           time.Unix(0, row.CreatedAt).UTC(),
		UpdatedAt:           time.Unix(0, row.UpdatedAt).UTC(),
	}
	idValue := goerr.V(model.ConfigurationIDKey, row.ID)

	var impacts []levelRow
	if err := tx.SelectContext(ctx, &impacts, `SELECT label, score, sort_order, color FROM risk_impact_levels
		WHERE configuration_id = ? ORDER BY sort_order, id`, row.ID); err != nil {
		return nil, model.PersistenceError(err, "failed to load impact levels", idValue)
	}
	cfg.Impacts = make([]model.ImpactLevel, len(impacts))
	for i, l := range impacts {
		cfg.Impacts[i] = model.ImpactLevel{Label: l.Label, Score: l.Score, Order: l.Order, Color: l.Color}
	}

	var probabilities []levelRow
	if err := tx.SelectContext(ctx, &probabilities, `SELECT label, score, sort_order, color FROM risk_probability_levels
		WHERE configuration_id = ? ORDER BY sort_order, id`, row.ID); err != nil {
		return nil, model.PersistenceError(err, "failed to load probability levels", idValue)
	}
	cfg.Probabilities = make([]model.ProbabilityLevel, len(probabilities))
	for i, l := range probabilities {
		cfg.Probabilities[i] = model.ProbabilityLevel{Label: l.Label, Score: l.Score, Order: l.Order, Color: l.Color}
	}

	var criterias []criteriaRow
	if err := tx.SelectContext(ctx, &criterias, `SELECT id, name, description, sort_order FROM risk_criterias
		WHERE configuration_id = ? ORDER BY sort_order, id`, row.ID); err != nil {
		return nil, model.PersistenceError(err, "failed to load criterias", idValue)
	}
	if row.UseCriterias {
		cfg.Criterias = make([]model.Criteria, 0, len(criterias))
	}
	if len(criterias) > 0 {
		var criteriaImpacts []criteriaImpactRow
		if err := tx.SelectContext(ctx, &criteriaImpacts, `SELECT ci.criteria_id, ci.impact_label, ci.score, ci.sort_order, ci.impact_level_order
			FROM risk_criteria_impacts ci JOIN risk_criterias c ON c.id = ci.criteria_id
			WHERE c.configuration_id = ? ORDER BY ci.sort_order, ci.id`, row.ID); err != nil {
			return nil, model.PersistenceError(err, "failed to load criteria impacts", idValue)
		}

		byCriteria := make(map[int64][]model.CriteriaImpact, len(criterias))
		for _, ci := range criteriaImpacts {
			byCriteria[ci.CriteriaID] = append(byCriteria[ci.CriteriaID], model.CriteriaImpact{
				ImpactLabel:      ci.ImpactLabel,
				Score:            ci.Score,
				Order:            ci.Order,
				ImpactLevelOrder: ci.ImpactLevelOrder,
			})
		}

		for _, cr := range criterias {
			cfg.Criterias = append(cfg.Criterias, model.Criteria{
				Name:        cr.Name,
				Description: cr.Description,
				Order:       cr.Order,
				Impacts:     byCriteria[cr.ID],
			})
		}
	}

	var scoreLevels []scoreLevelRow
	if err := tx.SelectContext(ctx, &scoreLevels, `SELECT label, min_score, max_score, color, sort_order FROM risk_score_levels
		WHERE configuration_id = ? ORDER BY sort_order, id`, row.ID); err != nil {
		return nil, model.PersistenceError(err, "failed to load score levels", idValue)
	}
	cfg.ScoreLevels = make([]model.ScoreLevel, len(scoreLevels))
	for i, sl := range scoreLevels {
		cfg.ScoreLevels[i] = model.ScoreLevel{Label: sl.Label, Min: sl.Min, Max: sl.Max, Color: sl.Color, Order: sl.Order}
	}

	return cfg, nil
}
