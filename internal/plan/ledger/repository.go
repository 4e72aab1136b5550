package ledger

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/plansync/internal/clock"
	"github.com/railzwaylabs/plansync/internal/plan/reconcile"
	"gorm.io/gorm"
)

type Repository struct {
	db    *gorm.DB
	genID *snowflake.Node
	clock clock.Clock
}

func NewRepository(db *gorm.DB, genID *snowflake.Node, clk clock.Clock) *Repository {
	return &Repository{
		db:    db,
		genID: genID,
		clock: clk,
	}
}

func (r *Repository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&SyncRecord{})
}

// Record implements reconcile.Recorder.
func (r *Repository) Record(ctx context.Context, version reconcile.APIVersion, outcome reconcile.Outcome) error {
	rec := &SyncRecord{
		ID:         r.genID.Generate(),
		PlanID:     outcome.Key,
		Identifier: outcome.Identifier,
		Status:     string(outcome.Status),
		RemoteID:   outcome.RemoteID,
		APIVersion: string(version),
		CreatedAt:  r.clock.Now(ctx),
	}
	if outcome.Err != nil {
		rec.Error = outcome.Err.Error()
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

// ListByPlan returns the newest records for planID first.
func (r *Repository) ListByPlan(ctx context.Context, planID string, limit int) ([]SyncRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []SyncRecord
	err := r.db.WithContext(ctx).
		Where("plan_id = ?", planID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// LatestStatus returns the most recent status per plan id.
func (r *Repository) LatestStatus(ctx context.Context) (map[string]string, error) {
	var rows []SyncRecord
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.PlanID] = row.Status
	}
	return out, nil
}

// Prune deletes records older than retention and returns how many went.
// A non-positive retention keeps everything.
func (r *Repository) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := r.clock.Now(ctx).Add(-retention)
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&SyncRecord{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
