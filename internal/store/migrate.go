package store

import "log"

func AutoMigrate(db *DB) {
	if err := db.DB.AutoMigrate(
		&CheckInSubmission{},
		&StatsSnapshot{},
		&LeaderboardRow{},
		&WatcherCursor{},
	); err != nil {
		log.Fatalf("migrate: %v", err)
	}
}
