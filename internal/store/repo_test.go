package store

import (
	"context"
	"errors"
	"testing"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()
	db := OpenSQLite(":memory:")
	AutoMigrate(db)
	return NewRepository(db)
}

func TestUpsertSubmissionNormalizesAndDeduplicates(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	sub := &CheckInSubmission{
		SubmissionID: "9a1f2c44-0000-4000-8000-000000000001",
		ChainID:      31337,
		Sender:       "0xF39FD6e51aad88F6F4ce6aB8827279cffFb92266",
		TxHash:       "0xaa",
		LogIndex:     0,
		BlockNumber:  5,
	}
	if err := repo.UpsertSubmission(ctx, sub); err != nil {
		t.Fatalf("insert: %v", err)
	}
	dup := *sub
	dup.ID = 0
	if err := repo.UpsertSubmission(ctx, &dup); err != nil {
		t.Fatalf("replay insert: %v", err)
	}

	subs, err := repo.ListSubmissions(ctx, 31337, "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("expected one row, got %d", len(subs))
	}
	if subs[0].Sender != NormalizeAddress(sub.Sender) {
		t.Fatalf("sender stored as %q", subs[0].Sender)
	}
}

func TestReplaceLeaderboardAssignsRanks(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	first := []LeaderboardRow{
		{Address: "0xAA", CheckInCount: 9},
		{Address: "0xBB", CheckInCount: 5},
	}
	if err := repo.ReplaceLeaderboard(ctx, 31337, first); err != nil {
		t.Fatalf("replace: %v", err)
	}
	second := []LeaderboardRow{
		{Address: "0xCC", CheckInCount: 11},
	}
	if err := repo.ReplaceLeaderboard(ctx, 31337, second); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	rows, err := repo.GetLeaderboard(ctx, 31337)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("replacement must be wholesale, got %d rows", len(rows))
	}
	if rows[0].Rank != 0 || rows[0].Address != "0xcc" {
		t.Fatalf("unexpected row %+v", rows[0])
	}
}

func TestGetStatsMissingIsNotFound(t *testing.T) {
	repo := testRepo(t)
	if _, err := repo.GetStats(context.Background(), 31337, "0xaa"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
