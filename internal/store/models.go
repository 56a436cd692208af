package store

import "time"

// CheckInSubmission logs a check-in either sent by this service or observed
// on-chain by the watcher. Only public fields are kept; the amount stays a
// ciphertext handle on the ledger.
type CheckInSubmission struct {
	ID            uint   `gorm:"primaryKey"`
	SubmissionID  string `gorm:"size:36;index"`
	ChainID       uint64 `gorm:"uniqueIndex:idx_checkin_txlog"`
	Sender        string `gorm:"size:66;index"`
	DescriptionID uint32
	TxHash        string `gorm:"size:66;uniqueIndex:idx_checkin_txlog"`
	LogIndex      uint   `gorm:"uniqueIndex:idx_checkin_txlog"`
	BlockNumber   uint64
	BlockTime     time.Time
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

// StatsSnapshot is the last successfully read aggregate view per owner.
// Served when a live chain read fails.
type StatsSnapshot struct {
	ID         uint   `gorm:"primaryKey"`
	ChainID    uint64 `gorm:"uniqueIndex:idx_stats_owner"`
	Owner      string `gorm:"size:66;uniqueIndex:idx_stats_owner"`
	TotalSaves uint64
	UserCount  uint32
	UserStreak uint32
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// LeaderboardRow is one cached ranking entry; rows for a chain are replaced
// wholesale on each successful refresh.
type LeaderboardRow struct {
	ID           uint   `gorm:"primaryKey"`
	ChainID      uint64 `gorm:"uniqueIndex:idx_leaderboard_rank"`
	Rank         int    `gorm:"uniqueIndex:idx_leaderboard_rank"`
	Address      string `gorm:"size:66"`
	CheckInCount uint32
	BadgeCount   int
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// WatcherCursor remembers the last block the event watcher processed.
type WatcherCursor struct {
	ID        uint   `gorm:"primaryKey"`
	ChainID   uint64 `gorm:"uniqueIndex:idx_watcher_cursor"`
	Address   string `gorm:"size:66;uniqueIndex:idx_watcher_cursor"`
	LastBlock uint64
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
