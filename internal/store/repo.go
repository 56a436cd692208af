package store

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("store: not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *DB) *Repository { return &Repository{db: db.DB} }

func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// UpsertSubmission records a check-in, deduplicating on (chain, tx, log).
func (r *Repository) UpsertSubmission(ctx context.Context, sub *CheckInSubmission) error {
	sub.Sender = NormalizeAddress(sub.Sender)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chain_id"}, {Name: "tx_hash"}, {Name: "log_index"}},
		DoNothing: true,
	}).Create(sub).Error
}

func (r *Repository) ListSubmissions(ctx context.Context, chainID uint64, sender string, limit int) ([]CheckInSubmission, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []CheckInSubmission
	query := r.db.WithContext(ctx).Where("chain_id = ?", chainID).Order("block_number desc, log_index desc").Limit(limit)
	if sender != "" {
		query = query.Where("sender = ?", NormalizeAddress(sender))
	}
	err := query.Find(&out).Error
	return out, err
}

func (r *Repository) SaveStats(ctx context.Context, snap *StatsSnapshot) error {
	snap.Owner = NormalizeAddress(snap.Owner)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chain_id"}, {Name: "owner"}},
		UpdateAll: true,
	}).Create(snap).Error
}

func (r *Repository) GetStats(ctx context.Context, chainID uint64, owner string) (*StatsSnapshot, error) {
	var snap StatsSnapshot
	err := r.db.WithContext(ctx).
		Where("chain_id = ? AND owner = ?", chainID, NormalizeAddress(owner)).
		First(&snap).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &snap, nil
}

// ReplaceLeaderboard swaps the cached ranking for a chain in one
// transaction.
func (r *Repository) ReplaceLeaderboard(ctx context.Context, chainID uint64, rows []LeaderboardRow) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chain_id = ?", chainID).Delete(&LeaderboardRow{}).Error; err != nil {
			return err
		}
		for i := range rows {
			rows[i].ChainID = chainID
			rows[i].Rank = i
			rows[i].Address = NormalizeAddress(rows[i].Address)
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

func (r *Repository) GetLeaderboard(ctx context.Context, chainID uint64) ([]LeaderboardRow, error) {
	var out []LeaderboardRow
	err := r.db.WithContext(ctx).Where("chain_id = ?", chainID).Order("rank asc").Find(&out).Error
	return out, err
}

func (r *Repository) GetWatcherCursor(ctx context.Context, chainID uint64, address string) (*WatcherCursor, error) {
	var cursor WatcherCursor
	err := r.db.WithContext(ctx).
		Where("chain_id = ? AND address = ?", chainID, NormalizeAddress(address)).
		First(&cursor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cursor, nil
}

func (r *Repository) SaveWatcherCursor(ctx context.Context, cursor *WatcherCursor) error {
	cursor.Address = NormalizeAddress(cursor.Address)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chain_id"}, {Name: "address"}},
		UpdateAll: true,
	}).Create(cursor).Error
}
