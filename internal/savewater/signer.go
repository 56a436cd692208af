package savewater

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Signer is the wallet capability for one account: it signs typed messages
// and sends transactions. It is passed explicitly to every flow that needs
// it; there is no ambient wallet state.
type Signer interface {
	Address() common.Address
	SignTypedData(typed apitypes.TypedData) ([]byte, error)
	SendTransaction(ctx context.Context, to common.Address, data []byte) (common.Hash, error)
}

// txBackend is the write surface a KeySigner needs from an RPC client.
// *ethclient.Client satisfies it.
type txBackend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// KeySigner implements Signer with a locally held private key.
type KeySigner struct {
	sk      *ecdsa.PrivateKey
	addr    common.Address
	chainID *big.Int
	backend txBackend
}

func NewKeySigner(skHex string, chainID *big.Int, backend txBackend) (*KeySigner, error) {
	k, err := crypto.HexToECDSA(trim0x(skHex))
	if err != nil {
		return nil, fmt.Errorf("parse wallet key: %w", err)
	}
	return &KeySigner{
		sk:      k,
		addr:    crypto.PubkeyToAddress(k.PublicKey),
		chainID: chainID,
		backend: backend,
	}, nil
}

func trim0x(s string) string {
	if len(s) >= 2 && s[:2] == "0x" {
		return s[2:]
	}
	return s
}

func (s *KeySigner) Address() common.Address { return s.addr }

func (s *KeySigner) SignTypedData(typed apitypes.TypedData) ([]byte, error) {
	digest, _, err := apitypes.TypedDataAndHash(typed)
	if err != nil {
		return nil, fmt.Errorf("hash typed data: %w", err)
	}
	sig, err := crypto.Sign(digest, s.sk)
	if err != nil {
		return nil, fmt.Errorf("sign typed data: %w", err)
	}
	// crypto.Sign yields v as a 0/1 recovery id; wallets and the relayer
	// expect the 27/28 convention.
	sig[64] += 27
	return sig, nil
}

func (s *KeySigner) SendTransaction(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	nonce, err := s.backend.PendingNonceAt(ctx, s.addr)
	if err != nil {
		return common.Hash{}, fmt.Errorf("fetch nonce: %w", err)
	}
	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest gas price: %w", err)
	}
	gas, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{From: s.addr, To: &to, Data: data})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      gas + gas/5,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.sk)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}
	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}
	return signed.Hash(), nil
}
