package config

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Chain    ChainConfig
	Fhevm    FhevmConfig
	Wallet   WalletConfig
	Auth     AuthConfig
}

func Load() Config {
	ensureEnvLoaded()
	return Config{
		Server:   loadServer(),
		Database: loadDatabase(),
		Chain:    loadChain(),
		Fhevm:    loadFhevm(),
		Wallet:   loadWallet(),
		Auth:     loadAuth(),
	}
}
