package savewater

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ABI fixtures matching the deployed contract surface; the fake backend
// dispatches on selectors so view tests exercise real calldata round-trips.
const testLedgerABI = `[
	{"type":"function","name":"getTotalSaves","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getUserCount","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint32"}]},
	{"type":"function","name":"getUserStreak","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint32"}]},
	{"type":"function","name":"getUserRecordsLength","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getUserRecord","stateMutability":"view","inputs":[{"name":"user","type":"address"},{"name":"index","type":"uint256"}],"outputs":[{"name":"timestamp","type":"uint256"},{"name":"descriptionId","type":"uint32"},{"name":"amount","type":"bytes32"},{"name":"streak","type":"uint32"}]},
	{"type":"function","name":"getTopUsers","stateMutability":"view","inputs":[],"outputs":[{"name":"topUsers","type":"address[]"},{"name":"counts","type":"uint32[]"}]}
]`

const testBadgeABI = `[
	{"type":"function","name":"thresholds","stateMutability":"view","inputs":[{"name":"level","type":"uint8"}],"outputs":[{"name":"","type":"uint32"}]},
	{"type":"function","name":"minted","stateMutability":"view","inputs":[{"name":"user","type":"address"},{"name":"level","type":"uint8"}],"outputs":[{"name":"","type":"bool"}]}
]`

var (
	ledgerAddr31337 = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	badgeAddr31337  = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
)

type fakeBackend struct {
	abis     []abi.ABI
	code     map[common.Address][]byte
	handlers map[string]func(args []any) ([]any, error)
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	parse := func(s string) abi.ABI {
		parsed, err := abi.JSON(strings.NewReader(s))
		if err != nil {
			t.Fatalf("parse abi: %v", err)
		}
		return parsed
	}
	return &fakeBackend{
		abis:     []abi.ABI{parse(testLedgerABI), parse(testBadgeABI)},
		code:     map[common.Address][]byte{},
		handlers: map[string]func(args []any) ([]any, error){},
	}
}

func (b *fakeBackend) handle(method string, fn func(args []any) ([]any, error)) {
	b.handlers[method] = fn
}

func (b *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if len(msg.Data) < 4 {
		return nil, fmt.Errorf("calldata too short")
	}
	for _, a := range b.abis {
		method, err := a.MethodById(msg.Data[:4])
		if err != nil {
			continue
		}
		fn, ok := b.handlers[method.Name]
		if !ok {
			return nil, fmt.Errorf("no handler for %s", method.Name)
		}
		args, err := method.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		outs, err := fn(args)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(outs...)
	}
	return nil, fmt.Errorf("unknown selector %x", msg.Data[:4])
}

func (b *fakeBackend) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return b.code[account], nil
}

func viewFixture(t *testing.T) (*Service, *fakeBackend) {
	backend := newFakeBackend(t)
	backend.code[ledgerAddr31337] = []byte{0x60}
	backend.code[badgeAddr31337] = []byte{0x60}
	svc := NewService(chainCfg(), netctx(), backend, nil, nil, nil, discardLogger())
	return svc, backend
}

func TestStatsWhenLedgerNotDeployed(t *testing.T) {
	backend := newFakeBackend(t)
	svc := NewService(chainCfg(), netctx(), backend, nil, nil, nil, discardLogger())

	stats, err := svc.Stats(context.Background(), common.Address{})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if *stats != (Stats{}) {
		t.Fatalf("undeployed ledger must yield empty stats, got %+v", stats)
	}
}

func TestStatsReadsAggregates(t *testing.T) {
	svc, backend := viewFixture(t)
	owner := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

	backend.handle("getTotalSaves", func([]any) ([]any, error) { return []any{big.NewInt(12)}, nil })
	backend.handle("getUserCount", func(args []any) ([]any, error) {
		if args[0].(common.Address) != owner {
			return nil, fmt.Errorf("unexpected user %s", args[0])
		}
		return []any{uint32(4)}, nil
	})
	backend.handle("getUserStreak", func([]any) ([]any, error) { return []any{uint32(2)}, nil })

	stats, err := svc.Stats(context.Background(), owner)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := Stats{TotalSaves: 12, UserCount: 4, UserStreak: 2}
	if *stats != want {
		t.Fatalf("got %+v, want %+v", *stats, want)
	}
}

func TestStatsDegradesFailedCounter(t *testing.T) {
	svc, backend := viewFixture(t)

	backend.handle("getTotalSaves", func([]any) ([]any, error) { return []any{big.NewInt(7)}, nil })
	backend.handle("getUserCount", func([]any) ([]any, error) { return []any{uint32(3)}, nil })
	backend.handle("getUserStreak", func([]any) ([]any, error) { return nil, fmt.Errorf("execution reverted") })

	stats, err := svc.Stats(context.Background(), common.Address{})
	if err != nil {
		t.Fatalf("a failed counter must not fail the view: %v", err)
	}
	if stats.TotalSaves != 7 || stats.UserCount != 3 || stats.UserStreak != 0 {
		t.Fatalf("got %+v", *stats)
	}
}

func TestRecordsNewestFirstWithOriginalIndex(t *testing.T) {
	svc, backend := viewFixture(t)

	backend.handle("getUserRecordsLength", func([]any) ([]any, error) { return []any{big.NewInt(3)}, nil })
	backend.handle("getUserRecord", func(args []any) ([]any, error) {
		i := args[1].(*big.Int).Uint64()
		var amount [32]byte
		amount[0] = byte(i + 1)
		return []any{big.NewInt(int64(1700000000 + i)), uint32(i + 1), amount, uint32(i)}, nil
	})

	records, err := svc.Records(context.Background(), common.Address{})
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for pos, wantIndex := range []uint64{2, 1, 0} {
		rec := records[pos]
		if rec.OriginalIndex != wantIndex {
			t.Fatalf("position %d has original index %d, want %d", pos, rec.OriginalIndex, wantIndex)
		}
		if rec.Description != DescriptionLabel(rec.DescriptionID) {
			t.Fatalf("record %d label %q does not match catalog", pos, rec.Description)
		}
		if rec.Date == "" {
			t.Fatalf("record %d has an empty formatted date", pos)
		}
	}
	if records[0].Timestamp <= records[2].Timestamp {
		t.Fatal("records are not newest first")
	}
}

func TestRecordsSkipsUnreadableRecord(t *testing.T) {
	svc, backend := viewFixture(t)

	backend.handle("getUserRecordsLength", func([]any) ([]any, error) { return []any{big.NewInt(3)}, nil })
	backend.handle("getUserRecord", func(args []any) ([]any, error) {
		i := args[1].(*big.Int).Uint64()
		if i == 1 {
			return nil, fmt.Errorf("execution reverted")
		}
		return []any{big.NewInt(int64(1700000000 + i)), uint32(1), [32]byte{}, uint32(0)}, nil
	})

	records, err := svc.Records(context.Background(), common.Address{})
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].OriginalIndex != 2 || records[1].OriginalIndex != 0 {
		t.Fatalf("unexpected indexes %d, %d", records[0].OriginalIndex, records[1].OriginalIndex)
	}
}

func TestLeaderboardKeepsAddressOnBadgeProbeFailure(t *testing.T) {
	svc, backend := viewFixture(t)
	alice := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	bob := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

	backend.handle("getTopUsers", func([]any) ([]any, error) {
		return []any{[]common.Address{alice, bob}, []uint32{9, 5}}, nil
	})
	backend.handle("minted", func(args []any) ([]any, error) {
		user := args[0].(common.Address)
		level := args[1].(uint8)
		if user == bob {
			return nil, fmt.Errorf("execution reverted")
		}
		return []any{level <= 2}, nil
	})

	entries, err := svc.Leaderboard(context.Background())
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Address != alice.Hex() || entries[0].CheckInCount != 9 || entries[0].BadgeCount != 2 {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].Address != bob.Hex() || entries[1].BadgeCount != 0 {
		t.Fatalf("probe failure must keep the address with zero badges, got %+v", entries[1])
	}
}

func TestBadgesReportsPerLevel(t *testing.T) {
	svc, backend := viewFixture(t)
	owner := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

	thresholds := map[uint8]uint32{1: 5, 2: 15, 3: 30}
	backend.handle("thresholds", func(args []any) ([]any, error) {
		return []any{thresholds[args[0].(uint8)]}, nil
	})
	backend.handle("minted", func(args []any) ([]any, error) {
		return []any{args[1].(uint8) == 1}, nil
	})

	statuses, err := svc.Badges(context.Background(), owner)
	if err != nil {
		t.Fatalf("badges: %v", err)
	}
	if len(statuses) != len(BadgeLevels) {
		t.Fatalf("got %d statuses, want %d", len(statuses), len(BadgeLevels))
	}
	for i, status := range statuses {
		level := BadgeLevels[i]
		if status.Level != level || status.Threshold != thresholds[level] {
			t.Fatalf("unexpected status %+v for level %d", status, level)
		}
		if status.Minted != (level == 1) {
			t.Fatalf("level %d minted = %v", level, status.Minted)
		}
	}
}

func TestBadgesWhenContractNotDeployed(t *testing.T) {
	backend := newFakeBackend(t)
	backend.code[ledgerAddr31337] = []byte{0x60}
	svc := NewService(chainCfg(), netctx(), backend, nil, nil, nil, discardLogger())

	statuses, err := svc.Badges(context.Background(), common.Address{})
	if err != nil {
		t.Fatalf("badges: %v", err)
	}
	if len(statuses) != 0 {
		t.Fatalf("undeployed badge contract must yield no statuses, got %d", len(statuses))
	}
}
