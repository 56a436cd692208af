package config

import (
	"fmt"
	"strings"
)

type ChainConfig struct {
	RPCURL           string
	ChainID          uint64
	SaveWaterAddress string
	BadgeAddress     string
	MockChains       map[uint64]string
}

func loadChain() ChainConfig {
	return ChainConfig{
		RPCURL:           getenv("CHAIN_RPC_URL", ""),
		ChainID:          u64env("CHAIN_ID", 0),
		SaveWaterAddress: getenv("SAVEWATER_ADDRESS", ""),
		BadgeAddress:     getenv("SAVEWATER_BADGE_ADDRESS", ""),
		MockChains:       mockChainsEnv("MOCK_CHAINS"),
	}
}

// mockChainsEnv parses "31337=http://localhost:8545,1337=http://localhost:7545".
// The hardhat default is always present unless explicitly overridden.
func mockChainsEnv(k string) map[uint64]string {
	out := map[uint64]string{31337: "http://localhost:8545"}
	v := getenv(k, "")
	if v == "" {
		return out
	}
	for _, pair := range strings.Split(v, ",") {
		kv := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(kv) != 2 {
			continue
		}
		var id uint64
		if _, err := fmt.Sscan(strings.TrimSpace(kv[0]), &id); err != nil || id == 0 {
			continue
		}
		out[id] = strings.TrimSpace(kv[1])
	}
	return out
}
