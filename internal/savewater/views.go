package savewater

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/CharlotteMargare/savewater/internal/contracts"
	"github.com/CharlotteMargare/savewater/internal/fhevm"
)

// BadgeLevels are the fixed levels probed for the leaderboard and the badge
// panel.
var BadgeLevels = [3]uint8{1, 2, 3}

type Stats struct {
	TotalSaves uint64 `json:"totalSaves"`
	UserCount  uint32 `json:"userCount"`
	UserStreak uint32 `json:"userStreak"`
}

type CheckInRecord struct {
	Timestamp     int64  `json:"timestamp"`
	DescriptionID uint32 `json:"descriptionId"`
	Description   string `json:"description"`
	AmountHandle  string `json:"amountHandle"`
	Streak        uint32 `json:"streak"`
	Date          string `json:"date"`
	// OriginalIndex is the position in the owner's on-chain record array,
	// the only stable key for later decryption calls.
	OriginalIndex uint64 `json:"originalIndex"`
}

type LeaderboardEntry struct {
	Address      string `json:"address"`
	CheckInCount uint32 `json:"checkInCount"`
	BadgeCount   int    `json:"badgeCount"`
}

// ready resolves the ledger binding and checks for deployed code. A missing
// address or missing code yields (nil, nil): the "not yet deployed" state is
// an empty view, not a failure.
func (s *Service) ready(ctx context.Context) (*contracts.SaveWater, error) {
	sw, err := s.saveWater()
	if err != nil {
		if errors.Is(err, contracts.ErrAddressNotFound) {
			return nil, nil
		}
		return nil, err
	}
	deployed, err := sw.Deployed(ctx)
	if err != nil {
		return nil, err
	}
	if !deployed {
		s.logf("savewater has no code at %s on chain %d", sw.Address.Hex(), s.netctx.ChainID)
		return nil, nil
	}
	return sw, nil
}

// Stats reads the owner's aggregate counters. Individual read failures
// degrade that counter to zero instead of aborting the view.
func (s *Service) Stats(ctx context.Context, owner common.Address) (*Stats, error) {
	sw, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	out := &Stats{}
	if sw == nil {
		return out, nil
	}
	if total, err := sw.TotalSaves(ctx); err != nil {
		s.logf("read total saves: %v", err)
	} else {
		out.TotalSaves = total.Uint64()
	}
	if count, err := sw.UserCount(ctx, owner); err != nil {
		s.logf("read user count: %v", err)
	} else {
		out.UserCount = count
	}
	if streak, err := sw.UserStreak(ctx, owner); err != nil {
		s.logf("read user streak: %v", err)
	} else {
		out.UserStreak = streak
	}
	return out, nil
}

// Records returns the owner's check-ins most recent first. Each record
// keeps its pre-reversal on-chain index.
func (s *Service) Records(ctx context.Context, owner common.Address) ([]CheckInRecord, error) {
	sw, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	records := []CheckInRecord{}
	if sw == nil {
		return records, nil
	}
	length, err := sw.UserRecordsLength(ctx, owner)
	if err != nil {
		s.logf("read records length: %v", err)
		return records, nil
	}
	n := length.Uint64()
	for i := uint64(0); i < n; i++ {
		rec, err := sw.UserRecord(ctx, owner, new(big.Int).SetUint64(i))
		if err != nil {
			s.logf("read record %d: %v", i, err)
			continue
		}
		ts := rec.Timestamp.Int64()
		records = append(records, CheckInRecord{
			Timestamp:     ts,
			DescriptionID: rec.DescriptionID,
			Description:   DescriptionLabel(rec.DescriptionID),
			AmountHandle:  fhevm.Handle(rec.Amount).Hex(),
			Streak:        rec.Streak,
			Date:          time.Unix(ts, 0).Format("2006-01-02 15:04"),
			OriginalIndex: i,
		})
	}
	for left, right := 0, len(records)-1; left < right; left, right = left+1, right-1 {
		records[left], records[right] = records[right], records[left]
	}
	return records, nil
}

// Leaderboard fetches the contract's own top-N ranking, then probes badge
// ownership per address. Probes run concurrently once the ranking is in;
// a failed probe counts as "no badge" and never drops the address.
func (s *Service) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	sw, err := s.ready(ctx)
	if err != nil {
		return nil, err
	}
	entries := []LeaderboardEntry{}
	if sw == nil {
		return entries, nil
	}
	addrs, counts, err := sw.TopUsers(ctx)
	if err != nil {
		s.logf("read top users: %v", err)
		return entries, nil
	}

	badgeCounts := make([]int, len(addrs))
	if badge, err := s.badgeContract(); err == nil {
		if deployed, err := badge.Deployed(ctx); err == nil && deployed {
			g, probeCtx := errgroup.WithContext(ctx)
			for i, addr := range addrs {
				i, addr := i, addr
				g.Go(func() error {
					badgeCounts[i] = s.countBadges(probeCtx, badge, addr)
					return nil
				})
			}
			_ = g.Wait()
		}
	}

	for i, addr := range addrs {
		var count uint32
		if i < len(counts) {
			count = counts[i]
		}
		entries = append(entries, LeaderboardEntry{
			Address:      addr.Hex(),
			CheckInCount: count,
			BadgeCount:   badgeCounts[i],
		})
	}
	return entries, nil
}

func (s *Service) countBadges(ctx context.Context, badge *contracts.Badge, user common.Address) int {
	n := 0
	for _, level := range BadgeLevels {
		minted, err := badge.Minted(ctx, user, level)
		if err != nil {
			continue
		}
		if minted {
			n++
		}
	}
	return n
}

type BadgeStatus struct {
	Level     uint8  `json:"level"`
	Threshold uint32 `json:"threshold"`
	Minted    bool   `json:"minted"`
}

// Badges reports threshold and mint state per level for the owner.
func (s *Service) Badges(ctx context.Context, owner common.Address) ([]BadgeStatus, error) {
	statuses := []BadgeStatus{}
	badge, err := s.badgeContract()
	if err != nil {
		if errors.Is(err, contracts.ErrAddressNotFound) {
			return statuses, nil
		}
		return nil, err
	}
	deployed, err := badge.Deployed(ctx)
	if err != nil || !deployed {
		return statuses, nil
	}
	for _, level := range BadgeLevels {
		status := BadgeStatus{Level: level}
		if threshold, err := badge.Threshold(ctx, level); err == nil {
			status.Threshold = threshold
		}
		if minted, err := badge.Minted(ctx, owner, level); err == nil {
			status.Minted = minted
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// MintBadge submits the badge mint for a level and waits for inclusion.
func (s *Service) MintBadge(ctx context.Context, level uint8) (common.Hash, error) {
	badge, err := s.badgeContract()
	if err != nil {
		return common.Hash{}, err
	}
	data, err := badge.MintBadgeData(level)
	if err != nil {
		return common.Hash{}, err
	}
	txHash, err := s.signer.SendTransaction(ctx, badge.Address, data)
	if err != nil {
		return common.Hash{}, err
	}
	if _, err := s.waitMined(ctx, txHash); err != nil {
		return common.Hash{}, err
	}
	return txHash, nil
}
