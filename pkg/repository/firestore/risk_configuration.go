package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskscale/pkg/domain/model"
	"github.com/secmon-lab/riskscale/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	impactLevelsCollection      = "impact_levels"
	probabilityLevelsCollection = "probability_levels"
	criteriasCollection         = "criterias"
	criteriaImpactsCollection   = "impacts"
	scoreLevelsCollection       = "score_levels"
)

type riskConfigurationDocument struct {
	ID                  string    `firestore:"id"`
	OrganizationID      string    `firestore:"organization_id"`
	Name                string    `firestore:"name"`
	ImpactScaleMax      int       `firestore:"impact_scale_max"`
	ProbabilityScaleMax int       `firestore:"probability_scale_max"`
	CalculationMethod   string    `firestore:"calculation_method"`
	UseCriterias        bool      `firestore:"use_criterias"`
	Active              bool      `firestore:"active"`
	Version             int64     `firestore:"version"`
	CreatedAt           time.Time `firestore:"created_at"`
	UpdatedAt           time.Time `firestore:"updated_at"`
}

type levelDocument struct {
	Label string  `firestore:"label"`
	Score float64 `firestore:"score"`
	Order int     `firestore:"order"`
	Color string  `firestore:"color"`
}

type criteriaDocument struct {
	Name        string `firestore:"name"`
	Description string `firestore:"description"`
	Order       int    `firestore:"order"`
}

type criteriaImpactDocument struct {
	ImpactLabel      string  `firestore:"impact_label"`
	Score            float64 `firestore:"score"`
	Order            int     `firestore:"order"`
	ImpactLevelOrder int     `firestore:"impact_level_order"`
}

type scoreLevelDocument struct {
	Label string `firestore:"label"`
	Min   int    `firestore:"min"`
	Max   int    `firestore:"max"`
	Color string `firestore:"color"`
	Order int    `firestore:"order"`
}

type riskConfigurationRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newRiskConfigurationRepository(client *firestore.Client) *riskConfigurationRepository {
	return &riskConfigurationRepository{
		client:           client,
		collectionPrefix: "",
	}
}

// ConfigurationsCollectionName returns the top-level collection name for the prefix
func ConfigurationsCollectionName(prefix string) string {
	if prefix == "" {
		return "risk_configurations"
	}
	return prefix + "_risk_configurations"
}

func (r *riskConfigurationRepository) configurationsCollection() *firestore.CollectionRef {
	return r.client.Collection(ConfigurationsCollectionName(r.collectionPrefix))
}

func childDocID(i int) string {
	return fmt.Sprintf("%04d", i)
}

func notFound(orgID types.OrganizationID, id types.ConfigurationID) error {
	return goerr.Wrap(model.ErrNotFound, "risk configuration not found",
		goerr.V(model.OrganizationIDKey, orgID),
		goerr.V(model.ConfigurationIDKey, id))
}

func toDocument(cfg *model.RiskConfiguration) *riskConfigurationDocument {
	return &riskConfigurationDocument{
		ID:                  cfg.ID.String(),
		OrganizationID:      cfg.OrganizationID.String(),
		Name:                cfg.Name,
		ImpactScaleMax:      cfg.ImpactScaleMax,
		ProbabilityScaleMax: cfg.ProbabilityScaleMax,
		CalculationMethod:   cfg.CalculationMethod.String(),
		UseCriterias:        cfg.UseCriterias,
		Active:              cfg.Active,
		Version:             cfg.Version,
		CreatedAt:           cfg.CreatedAt,
		UpdatedAt:           cfg.UpdatedAt,
	}
}

func fromDocument(doc *riskConfigurationDocument) *model.RiskConfiguration {
	return &model.RiskConfiguration{
		ID:                  types.ConfigurationID(doc.ID),
		OrganizationID:      types.OrganizationID(doc.OrganizationID),
		Name:                doc.Name,
		ImpactScaleMax:      doc.ImpactScaleMax,
		ProbabilityScaleMax: doc.ProbabilityScaleMax,
		CalculationMethod:   types.CalculationMethod(doc.CalculationMethod),
		UseCriterias:        doc.UseCriterias,
		Active:              doc.Active,
		Version:             doc.Version,
		CreatedAt:           doc.CreatedAt,
		UpdatedAt:           doc.UpdatedAt,
	}
}

// writeChildren queues creation of every child document in the transaction
func writeChildren(tx *firestore.Transaction, ref *firestore.DocumentRef, cfg *model.RiskConfiguration) error {
	for i, l := range cfg.Impacts {
		doc := &levelDocument{Label: l.Label, Score: l.Score, Order: l.Order, Color: l.Color}
		if err := tx.Set(ref.Collection(impactLevelsCollection).Doc(childDocID(i)), doc); err != nil {
			return goerr.Wrap(err, "failed to write impact level", goerr.V("label", l.Label))
		}
	}

	for i, l := range cfg.Probabilities {
		doc := &levelDocument{Label: l.Label, Score: l.Score, Order: l.Order, Color: l.Color}
		if err := tx.Set(ref.Collection(probabilityLevelsCollection).Doc(childDocID(i)), doc); err != nil {
			return goerr.Wrap(err, "failed to write probability level", goerr.V("label", l.Label))
		}
	}

	for i, cr := range cfg.Criterias {
		criteriaRef := ref.Collection(criteriasCollection).Doc(childDocID(i))
		if err := tx.Set(criteriaRef, &criteriaDocument{Name: cr.Name, Description: cr.Description, Order: cr.Order}); err != nil {
			return goerr.Wrap(err, "failed to write criteria", goerr.V("name", cr.Name))
		}
		for j, ci := range cr.Impacts {
			doc := &criteriaImpactDocument{
				ImpactLabel:      ci.ImpactLabel,
				Score:            ci.Score,
				Order:            ci.Order,
				ImpactLevelOrder: ci.ImpactLevelOrder,
			}
			if err := tx.Set(criteriaRef.Collection(criteriaImpactsCollection).Doc(childDocID(j)), doc); err != nil {
				return goerr.Wrap(err, "failed to write criteria impact", goerr.V("name", cr.Name))
			}
		}
	}

	for i, sl := range cfg.ScoreLevels {
		doc := &scoreLevelDocument{Label: sl.Label, Min: sl.Min, Max: sl.Max, Color: sl.Color, Order: sl.Order}
		if err := tx.Set(ref.Collection(scoreLevelsCollection).Doc(childDocID(i)), doc); err != nil {
			return goerr.Wrap(err, "failed to write score level", goerr.V("label", sl.Label))
		}
	}

	return nil
}

// childRefs reads every child document reference of the configuration. It must
// run before any write in the transaction.
func childRefs(tx *firestore.Transaction, ref *firestore.DocumentRef) ([]*firestore.DocumentRef, error) {
	var refs []*firestore.DocumentRef

	for _, name := range []string{impactLevelsCollection, probabilityLevelsCollection, scoreLevelsCollection} {
		docs, err := tx.Documents(ref.Collection(name)).GetAll()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read child documents", goerr.V("collection", name))
		}
		for _, doc := range docs {
			refs = append(refs, doc.Ref)
		}
	}

	criterias, err := tx.Documents(ref.Collection(criteriasCollection)).GetAll()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read criteria documents")
	}
	for _, cr := range criterias {
		impacts, err := tx.Documents(cr.Ref.Collection(criteriaImpactsCollection)).GetAll()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read criteria impact documents", goerr.V("criteria", cr.Ref.ID))
		}
		for _, doc := range impacts {
			refs = append(refs, doc.Ref)
		}
		refs = append(refs, cr.Ref)
	}

	return refs, nil
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
	created.SortChildren()

	ref := r.configurationsCollection().Doc(created.ID.String())
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(ref, toDocument(created)); err != nil {
			return goerr.Wrap(err, "failed to create risk configuration")
		}
		return writeChildren(tx, ref, created)
	})
	if err != nil {
		return nil, model.PersistenceError(err, "failed to create risk configuration", goerr.V(model.ConfigurationIDKey, created.ID))
	}

	return r.Get(ctx, created.OrganizationID, created.ID)
}

func (r *riskConfigurationRepository) Get(ctx context.Context, orgID types.OrganizationID, id types.ConfigurationID) (*model.RiskConfiguration, error) {
	snap, err := r.configurationsCollection().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, notFound(orgID, id)
		}
		return nil, model.PersistenceError(err, "failed to get risk configuration", goerr.V(model.ConfigurationIDKey, id))
	}

	var doc riskConfigurationDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, model.PersistenceError(err, "failed to unmarshal risk configuration", goerr.V(model.ConfigurationIDKey, id))
	}
	if doc.OrganizationID != orgID.String() {
		return nil, notFound(orgID, id)
	}

	return r.loadChildren(ctx, snap.Ref, &doc)
}

// loadChildren eagerly loads every child collection ordered by order
func (r *riskConfigurationRepository) loadChildren(ctx context.Context, ref *firestore.DocumentRef, doc *riskConfigurationDocument) (*model.RiskConfiguration, error) {
	cfg := fromDocument(doc)
	idValue := goerr.V(model.ConfigurationIDKey, doc.ID)

	impacts, err := ref.Collection(impactLevelsCollection).OrderBy("order", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, model.PersistenceError(err, "failed to load impact levels", idValue)
	}
	cfg.Impacts = make([]model.ImpactLevel, 0, len(impacts))
	for _, snap := range impacts {
		var l levelDocument
		if err := snap.DataTo(&l); err != nil {
			return nil, model.PersistenceError(err, "failed to unmarshal impact level", idValue)
		}
		cfg.Impacts = append(cfg.Impacts, model.ImpactLevel{Label: l.Label, Score: l.Score, Order: l.Order, Color: l.Color})
	}

	probabilities, err := ref.Collection(probabilityLevelsCollection).OrderBy("order", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, model.PersistenceError(err, "failed to load probability levels", idValue)
	}
	cfg.Probabilities = make([]model.ProbabilityLevel, 0, len(probabilities))
	for _, snap := range probabilities {
		var l levelDocument
		if err := snap.DataTo(&l); err != nil {
			return nil, model.PersistenceError(err, "failed to unmarshal probability level", idValue)
		}
		cfg.Probabilities = append(cfg.Probabilities, model.ProbabilityLevel{Label: l.Label, Score: l.Score, Order: l.Order, Color: l.Color})
	}

	criterias, err := ref.Collection(criteriasCollection).OrderBy("order", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, model.PersistenceError(err, "failed to load criterias", idValue)
	}
	if doc.UseCriterias {
		cfg.Criterias = make([]model.Criteria, 0, len(criterias))
	}
	for _, snap := range criterias {
		var c criteriaDocument
		if err := snap.DataTo(&c); err != nil {
			return nil, model.PersistenceError(err, "failed to unmarshal criteria", idValue)
		}
		criteria := model.Criteria{Name: c.Name, Description: c.Description, Order: c.Order}

		impactSnaps, err := snap.Ref.Collection(criteriaImpactsCollection).OrderBy("order", firestore.Asc).Documents(ctx).GetAll()
		if err != nil {
			return nil, model.PersistenceError(err, "failed to load criteria impacts", idValue)
		}
		for _, is := range impactSnaps {
			var ci criteriaImpactDocument
			if err := is.DataTo(&ci); err != nil {
				return nil, model.PersistenceError(err, "failed to unmarshal criteria impact", idValue)
			}
			criteria.Impacts = append(criteria.Impacts, model.CriteriaImpact{
				ImpactLabel:      ci.ImpactLabel,
				Score:            ci.Score,
				Order:            ci.Order,
				ImpactLevelOrder: ci.ImpactLevelOrder,
			})
		}
		cfg.Criterias = append(cfg.Criterias, criteria)
	}

	scoreLevels, err := ref.Collection(scoreLevelsCollection).OrderBy("order", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, model.PersistenceError(err, "failed to load score levels", idValue)
	}
	cfg.ScoreLevels = make([]model.ScoreLevel, 0, len(scoreLevels))
	for _, snap := range scoreLevels {
		var sl scoreLevelDocument
		if err := snap.DataTo(&sl); err != nil {
			return nil, model.PersistenceError(err, "failed to unmarshal score level", idValue)
		}
		cfg.ScoreLevels = append(cfg.ScoreLevels, model.ScoreLevel{Label: sl.Label, Min: sl.Min, Max: sl.Max, Color: sl.Color, Order: sl.Order})
	}

	return cfg, nil
}

func (r *riskConfigurationRepository) listDocuments(ctx context.Context, orgID types.OrganizationID) ([]*firestore.DocumentSnapshot, error) {
	iter := r.configurationsCollection().
		Where("organization_id", "==", orgID.String()).
		OrderBy("created_at", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var snaps []*firestore.DocumentSnapshot
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, model.PersistenceError(err, "failed to list risk configurations", goerr.V(model.OrganizationIDKey, orgID))
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

func (r *riskConfigurationRepository) List(ctx context.Context, orgID types.OrganizationID) ([]*model.RiskConfiguration, error) {
	snaps, err := r.listDocuments(ctx, orgID)
	if err != nil {
		return nil, err
	}

	configs := make([]*model.RiskConfiguration, 0, len(snaps))
	for _, snap := range snaps {
		var doc riskConfigurationDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, model.PersistenceError(err, "failed to unmarshal risk configuration", goerr.V(model.ConfigurationIDKey, snap.Ref.ID))
		}
		cfg, err := r.loadChildren(ctx, snap.Ref, &doc)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func (r *riskConfigurationRepository) GetActive(ctx context.Context, orgID types.OrganizationID) (*model.RiskConfiguration, error) {
	snaps, err := r.listDocuments(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, goerr.Wrap(model.ErrNotFound, "no risk configuration for organization", goerr.V(model.OrganizationIDKey, orgID))
	}

	selected := snaps[0]
	for _, snap := range snaps {
		if active, err := snap.DataAt("active"); err == nil && active == true {
			selected = snap
			break
		}
	}

	var doc riskConfigurationDocument
	if err := selected.DataTo(&doc); err != nil {
		return nil, model.PersistenceError(err, "failed to unmarshal risk configuration", goerr.V(model.ConfigurationIDKey, selected.Ref.ID))
	}
	return r.loadChildren(ctx, selected.Ref, &doc)
}

func (r *riskConfigurationRepository) Replace(ctx context.Context, cfg *model.RiskConfiguration, expectedVersion int64) (*model.RiskConfiguration, error) {
	ref := r.configurationsCollection().Doc(cfg.ID.String())

	var replaced *model.RiskConfiguration
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return notFound(cfg.OrganizationID, cfg.ID)
			}
			return goerr.Wrap(err, "failed to get risk configuration")
		}

		var existing riskConfigurationDocument
		if err := snap.DataTo(&existing); err != nil {
			return goerr.Wrap(err, "failed to unmarshal risk configuration")
		}
		if existing.OrganizationID != cfg.OrganizationID.String() {
			return notFound(cfg.OrganizationID, cfg.ID)
		}
		if expectedVersion != 0 && expectedVersion != existing.Version {
			return goerr.Wrap(model.ErrVersionConflict, "risk configuration version mismatch",
				goerr.V(model.VersionKey, existing.Version),
				goerr.V(model.ExpectedVersionKey, expectedVersion))
		}

		refs, err := childRefs(tx, ref)
		if err != nil {
			return err
		}

		replaced = cfg.Clone()
		replaced.Active = existing.Active
		replaced.Version = existing.Version + 1
		replaced.CreatedAt = existing.CreatedAt
		replaced.UpdatedAt = time.Now().UTC()
		replaced.SortChildren()

		for _, child := range refs {
			if err := tx.Delete(child); err != nil {
				return goerr.Wrap(err, "failed to delete child document", goerr.V("path", child.Path))
			}
		}
		if err := tx.Set(ref, toDocument(replaced)); err != nil {
			return goerr.Wrap(err, "failed to update risk configuration")
		}
		return writeChildren(tx, ref, replaced)
	})
	if err != nil {
		return nil, model.PersistenceError(err, "failed to replace risk configuration", goerr.V(model.ConfigurationIDKey, cfg.ID))
	}

	return replaced, nil
}

func (r *riskConfigurationRepository) Delete(ctx context.Context, orgID types.OrganizationID, id types.ConfigurationID) error {
	ref := r.configurationsCollection().Doc(id.String())

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return notFound(orgID, id)
			}
			return goerr.Wrap(err, "failed to get risk configuration")
		}
		if owner, err := snap.DataAt("organization_id"); err != nil || owner != orgID.String() {
			return notFound(orgID, id)
		}

		refs, err := childRefs(tx, ref)
		if err != nil {
			return err
		}
		for _, child := range refs {
			if err := tx.Delete(child); err != nil {
				return goerr.Wrap(err, "failed to delete child document", goerr.V("path", child.Path))
			}
		}
		return tx.Delete(ref)
	})
	if err != nil {
		return model.PersistenceError(err, "failed to delete risk configuration", goerr.V(model.ConfigurationIDKey, id))
	}
	return nil
}

func (r *riskConfigurationRepository) Activate(ctx context.Context, orgID types.OrganizationID, id types.ConfigurationID) (*model.RiskConfiguration, error) {
	query := r.configurationsCollection().Where("organization_id", "==", orgID.String())

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snaps, err := tx.Documents(query).GetAll()
		if err != nil {
			return goerr.Wrap(err, "failed to list risk configurations")
		}

		found := false
		for _, snap := range snaps {
			if snap.Ref.ID == id.String() {
				found = true
			}
		}
		if !found {
			return notFound(orgID, id)
		}

		now := time.Now().UTC()
		for _, snap := range snaps {
			active := snap.Ref.ID == id.String()
			current, _ := snap.DataAt("active")
			if current == active {
				continue
			}
			if err := tx.Update(snap.Ref, []firestore.Update{
				{Path: "active", Value: active},
				{Path: "updated_at", Value: now},
			}); err != nil {
				return goerr.Wrap(err, "failed to update active flag", goerr.V(model.ConfigurationIDKey, snap.Ref.ID))
			}
		}
		return nil
	})
	if err != nil {
		return nil, model.PersistenceError(err, "failed to activate risk configuration", goerr.V(model.ConfigurationIDKey, id))
	}

	return r.Get(ctx, orgID, id)
}
