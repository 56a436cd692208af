package auth

import (
	"crypto/ecdsa"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	siwe "github.com/spruceid/siwe-go"

	"github.com/CharlotteMargare/savewater/internal/config"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:     "test-secret",
		JWTTTL:        time.Hour,
		NonceTTL:      time.Minute,
		SIWEDomain:    "localhost",
		SIWEURI:       "http://localhost:5173",
		SIWEStatement: "Sign in to SaveWater",
		SIWEChainID:   31337,
	}
}

func signSIWE(t *testing.T, svc *Service, key *ecdsa.PrivateKey) (string, string) {
	t.Helper()
	nonce, err := svc.IssueNonce()
	if err != nil {
		t.Fatalf("issue nonce: %v", err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)
	msg, err := siwe.InitMessage("localhost", addr.Hex(), "http://localhost:5173", nonce, map[string]interface{}{
		"statement": "Sign in to SaveWater",
		"chainId":   31337,
	})
	if err != nil {
		t.Fatalf("init siwe message: %v", err)
	}
	text := msg.String()
	sig, err := crypto.Sign(accounts.TextHash([]byte(text)), key)
	if err != nil {
		t.Fatalf("sign siwe message: %v", err)
	}
	sig[64] += 27
	return text, hexutil.Encode(sig)
}

func TestLoginWithSIWEIssuesToken(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	wallet := crypto.PubkeyToAddress(key.PublicKey)
	svc := NewService(testAuthConfig(), wallet)

	message, signature := signSIWE(t, svc, key)
	token, err := svc.LoginWithSIWE(message, signature)
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := svc.Parse(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Address != wallet.Hex() {
		t.Fatalf("token bound to %s, want %s", claims.Address, wallet.Hex())
	}
}

func TestLoginRejectsReplayedNonce(t *testing.T) {
	key, _ := crypto.GenerateKey()
	wallet := crypto.PubkeyToAddress(key.PublicKey)
	svc := NewService(testAuthConfig(), wallet)

	message, signature := signSIWE(t, svc, key)
	if _, err := svc.LoginWithSIWE(message, signature); err != nil {
		t.Fatalf("first login: %v", err)
	}
	if _, err := svc.LoginWithSIWE(message, signature); err == nil {
		t.Fatal("replayed message must be rejected")
	}
}

func TestLoginRejectsForeignWallet(t *testing.T) {
	walletKey, _ := crypto.GenerateKey()
	foreignKey, _ := crypto.GenerateKey()
	svc := NewService(testAuthConfig(), crypto.PubkeyToAddress(walletKey.PublicKey))

	message, signature := signSIWE(t, svc, foreignKey)
	if _, err := svc.LoginWithSIWE(message, signature); err == nil {
		t.Fatal("a valid signature from a foreign wallet must be rejected")
	}
}

func TestLoginRejectsWrongChainID(t *testing.T) {
	key, _ := crypto.GenerateKey()
	wallet := crypto.PubkeyToAddress(key.PublicKey)
	cfg := testAuthConfig()
	cfg.SIWEChainID = 11155111
	svc := NewService(cfg, wallet)

	message, signature := signSIWE(t, svc, key)
	if _, err := svc.LoginWithSIWE(message, signature); err == nil {
		t.Fatal("chain id mismatch must be rejected")
	}
}

func TestParseRejectsForeignToken(t *testing.T) {
	key, _ := crypto.GenerateKey()
	wallet := crypto.PubkeyToAddress(key.PublicKey)
	svc := NewService(testAuthConfig(), wallet)

	if _, err := svc.Parse("not-a-token"); err == nil {
		t.Fatal("garbage token must be rejected")
	}

	other := NewService(config.AuthConfig{JWTSecret: "other-secret", JWTTTL: time.Hour}, wallet)
	message, signature := signSIWE(t, other, key)
	token, err := other.LoginWithSIWE(message, signature)
	if err != nil {
		t.Fatalf("login against other service: %v", err)
	}
	if _, err := svc.Parse(token); err == nil {
		t.Fatal("token signed with a different secret must be rejected")
	}
}
