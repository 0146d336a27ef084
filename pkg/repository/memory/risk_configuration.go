package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskscale/pkg/domain/model"
	"github.com/secmon-lab/riskscale/pkg/domain/types"
)

type riskConfigurationEntry struct {
	cfg *model.RiskConfiguration
	seq int64
}

// riskConfigurationRepository keeps whole aggregates. Every write builds the
// complete new aggregate first and swaps it in under the lock, so readers never
// observe a half-applied change.
type riskConfigurationRepository struct {
	mu      sync.RWMutex
	entries map[types.ConfigurationID]*riskConfigurationEntry
	nextSeq int64
}

func newRiskConfigurationRepository() *riskConfigurationRepository {
	return &riskConfigurationRepository{
		entries: make(map[types.ConfigurationID]*riskConfigurationEntry),
		nextSeq: 1,
	}
}

func (r *riskConfigurationRepository) Create(ctx context.Context, cfg *model.RiskConfiguration) (*model.RiskConfiguration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := cfg.Clone()
	if created.ID == "" {
		created.ID = types.NewConfigurationID()
	}
	if _, exists := r.entries[created.ID]; exists {
		return nil, goerr.Wrap(model.ErrPersistence, "risk configuration already exists",
			goerr.V(model.ConfigurationIDKey, created.ID))
	}

	now := time.Now().UTC()
	created.Active = false
	created.Version = 1
	created.CreatedAt = now
	created.UpdatedAt = now
	created.SortChildren()

	r.entries[created.ID] = &riskConfigurationEntry{cfg: created, seq: r.nextSeq}
	r.nextSeq++

	return created.Clone(), nil
}

// lookup must be called with the lock held
func (r *riskConfigurationRepository) lookup(orgID types.OrganizationID, id types.ConfigurationID) (*riskConfigurationEntry, error) {
	entry, exists := r.entries[id]
	if !exists || entry.cfg.OrganizationID != orgID {
		return nil, goerr.Wrap(model.ErrNotFound, "risk configuration not found",
			goerr.V(model.OrganizationIDKey, orgID),
			goerr.V(model.ConfigurationIDKey, id))
	}
	return entry, nil
}

func (r *riskConfigurationRepository) Get(ctx context.Context, orgID types.OrganizationID, id types.ConfigurationID) (*model.RiskConfiguration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, err := r.lookup(orgID, id)
	if err != nil {
		return nil, err
	}
	return entry.cfg.Clone(), nil
}

// listEntries must be called with the lock held
func (r *riskConfigurationRepository) listEntries(orgID types.OrganizationID) []*riskConfigurationEntry {
	var entries []*riskConfigurationEntry
	for _, entry := range r.entries {
		if entry.cfg.OrganizationID == orgID {
			entries = append(entries, entry)
		}
	}
	slices.SortFunc(entries, func(a, b *riskConfigurationEntry) int {
		return cmp.Compare(a.seq, b.seq)
	})
	return entries
}

func (r *riskConfigurationRepository) List(ctx context.Context, orgID types.OrganizationID) ([]*model.RiskConfiguration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.listEntries(orgID)
	configs := make([]*model.RiskConfiguration, 0, len(entries))
	for _, entry := range entries {
		configs = append(configs, entry.cfg.Clone())
	}
	return configs, nil
}

func (r *riskConfigurationRepository) GetActive(ctx context.Context, orgID types.OrganizationID) (*model.RiskConfiguration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.listEntries(orgID)
	if len(entries) == 0 {
		return nil, goerr.Wrap(model.ErrNotFound, "no risk configuration for organization",
			goerr.V(model.OrganizationIDKey, orgID))
	}

	for _, entry := range entries {
		if entry.cfg.Active {
			return entry.cfg.Clone(), nil
		}
	}
	return entries[0].cfg.Clone(), nil
}

func (r *riskConfigurationRepository) Replace(ctx context.Context, cfg *model.RiskConfiguration, expectedVersion int64) (*model.RiskConfiguration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, err := r.lookup(cfg.OrganizationID, cfg.ID)
	if err != nil {
		return nil, err
	}
	existing := entry.cfg

	if expectedVersion != 0 && expectedVersion != existing.Version {
		return nil, goerr.Wrap(model.ErrVersionConflict, "risk configuration version mismatch",
			goerr.V(model.ConfigurationIDKey, cfg.ID),
			goerr.V(model.VersionKey, existing.Version),
			goerr.V(model.ExpectedVersionKey, expectedVersion))
	}

	replaced := cfg.Clone()
	replaced.Active = existing.Active
	replaced.Version = existing.Version + 1
	replaced.CreatedAt = existing.CreatedAt
	replaced.UpdatedAt = time.Now().UTC()
	replaced.SortChildren()

	entry.cfg = replaced
	return replaced.Clone(), nil
}

func (r *riskConfigurationRepository) Delete(ctx context.Context, orgID types.OrganizationID, id types.ConfigurationID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.lookup(orgID, id); err != nil {
		return err
	}

	delete(r.entries, id)
	return nil
}

func (r *riskConfigurationRepository) Activate(ctx context.Context, orgID types.OrganizationID, id types.ConfigurationID) (*model.RiskConfiguration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, err := r.lookup(orgID, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for _, entry := range r.listEntries(orgID) {
		active := entry == target
		if entry.cfg.Active == active {
			continue
		}
		updated := entry.cfg.Clone()
		updated.Active = active
		updated.UpdatedAt = now
		entry.cfg = updated
	}

	return target.cfg.Clone(), nil
}
