package config

type WalletConfig struct {
	PrivateKey string
}

func loadWallet() WalletConfig {
	return WalletConfig{
		PrivateKey: mustenv("WALLET_PRIVATE_KEY"),
	}
}
