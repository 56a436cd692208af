package contracts

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestResolveLookupOrder(t *testing.T) {
	override := "0x1111111111111111111111111111111111111111"

	tests := []struct {
		name     string
		contract string
		chainID  uint64
		override string
		want     common.Address
		wantErr  bool
	}{
		{
			name:     "known chain wins over override",
			contract: NameSaveWater,
			chainID:  31337,
			override: override,
			want:     deployments[NameSaveWater][31337],
		},
		{
			name:     "unknown chain falls to override",
			contract: NameSaveWater,
			chainID:  421614,
			override: override,
			want:     common.HexToAddress(override),
		},
		{
			name:     "unknown chain without override falls to default network",
			contract: NameBadge,
			chainID:  421614,
			want:     deployments[NameBadge][DefaultChainID],
		},
		{
			name:     "malformed override is skipped",
			contract: NameBadge,
			chainID:  421614,
			override: "not-an-address",
			want:     deployments[NameBadge][DefaultChainID],
		},
		{
			name:     "zero chain id skips the table stage",
			contract: NameSaveWater,
			override: override,
			want:     common.HexToAddress(override),
		},
		{
			name:     "unknown contract name",
			contract: "Multisig",
			chainID:  31337,
			wantErr:  true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Resolve(tc.contract, NetworkContext{ChainID: tc.chainID}, tc.override)
			if tc.wantErr {
				if !errors.Is(err, ErrAddressNotFound) {
					t.Fatalf("expected ErrAddressNotFound, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if got != tc.want {
				t.Fatalf("resolved %s, want %s", got.Hex(), tc.want.Hex())
			}
		})
	}
}

func TestResolveEveryStageMisses(t *testing.T) {
	// Temporarily drop the default network entry so every stage misses.
	saved := deployments[NameSaveWater]
	deployments[NameSaveWater] = map[uint64]common.Address{31337: saved[31337]}
	defer func() { deployments[NameSaveWater] = saved }()

	_, err := Resolve(NameSaveWater, NetworkContext{ChainID: 421614}, "")
	if !errors.Is(err, ErrAddressNotFound) {
		t.Fatalf("expected ErrAddressNotFound, got %v", err)
	}
}
