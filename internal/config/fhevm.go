package config

import "time"

// FhevmConfig points at the Zama relayer network. Defaults match the
// Sepolia deployment published with the relayer SDK; every field can be
// overridden for a custom gateway.
type FhevmConfig struct {
	RelayerURL            string
	GatewayChainID        uint64
	ACLAddress            string
	KMSVerifierAddress    string
	InputVerifierAddress  string
	DecryptionVerifier    string
	HTTPTimeout           time.Duration
}

func loadFhevm() FhevmConfig {
	return FhevmConfig{
		RelayerURL:            getenv("FHEVM_RELAYER_URL", "https://relayer.testnet.zama.cloud"),
		GatewayChainID:        u64env("FHEVM_GATEWAY_CHAIN_ID", 55815),
		ACLAddress:            getenv("FHEVM_ACL_ADDRESS", "0x687820221192C5B662b25367F70076A37bc79b6c"),
		KMSVerifierAddress:    getenv("FHEVM_KMS_VERIFIER_ADDRESS", "0x1364cBBf2cDF5032C47d8226a6f6FBD2AFCDacAC"),
		InputVerifierAddress:  getenv("FHEVM_INPUT_VERIFIER_ADDRESS", "0xbc91f3daD1A5F19F8390c400196e58073B6a0BC4"),
		DecryptionVerifier:    getenv("FHEVM_DECRYPTION_VERIFIER_ADDRESS", "0xb6E160B1ff80D67Bfe90A85eE06Ce0A2613607D1"),
		HTTPTimeout:           durationEnvSeconds("FHEVM_HTTP_TIMEOUT", 30*time.Second),
	}
}
