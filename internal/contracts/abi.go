package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Hand-maintained ABI fragments for the surfaces this service consumes.
// Kept in sync with the deployed SaveWater / SaveWaterBadge contracts.
const saveWaterABI = `[
	{"type":"function","name":"recordSave","stateMutability":"nonpayable","inputs":[{"name":"descriptionId","type":"uint32"},{"name":"encryptedAmount","type":"bytes32"},{"name":"proof","type":"bytes"},{"name":"revealAmount","type":"bool"}],"outputs":[]},
	{"type":"function","name":"getTotalSaves","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getUserCount","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint32"}]},
	{"type":"function","name":"getUserStreak","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint32"}]},
	{"type":"function","name":"getUserRecordsLength","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getUserRecord","stateMutability":"view","inputs":[{"name":"user","type":"address"},{"name":"index","type":"uint256"}],"outputs":[{"name":"timestamp","type":"uint256"},{"name":"descriptionId","type":"uint32"},{"name":"amount","type":"bytes32"},{"name":"streak","type":"uint32"}]},
	{"type":"function","name":"getUserTotalAmount","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"getTopUsers","stateMutability":"view","inputs":[],"outputs":[{"name":"topUsers","type":"address[]"},{"name":"counts","type":"uint32[]"}]},
	{"type":"function","name":"grantAccessForRecord","stateMutability":"nonpayable","inputs":[{"name":"index","type":"uint256"},{"name":"grantee","type":"address"}],"outputs":[]},
	{"type":"function","name":"grantAccessForTotal","stateMutability":"nonpayable","inputs":[{"name":"grantee","type":"address"}],"outputs":[]}
]`

const badgeABI = `[
	{"type":"function","name":"thresholds","stateMutability":"view","inputs":[{"name":"level","type":"uint8"}],"outputs":[{"name":"","type":"uint32"}]},
	{"type":"function","name":"minted","stateMutability":"view","inputs":[{"name":"user","type":"address"},{"name":"level","type":"uint8"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"mintBadge","stateMutability":"nonpayable","inputs":[{"name":"level","type":"uint8"}],"outputs":[{"name":"tokenId","type":"uint256"}]}
]`

var (
	saveWaterParsedABI = mustParseABI(saveWaterABI)
	badgeParsedABI     = mustParseABI(badgeABI)
)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}
