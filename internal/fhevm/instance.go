// Package fhevm wraps the external homomorphic encryption service behind a
// single Instance capability with two variants: a mock bound to a local
// hardhat node, and the production Zama relayer. Callers depend only on the
// interface; ciphertext math stays opaque.
package fhevm

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Handle is an opaque 32-byte reference to a ciphertext stored on-chain.
type Handle [32]byte

func (h Handle) Hex() string { return hexutil.Encode(h[:]) }

// HexToHandle parses a 0x-prefixed 32-byte hex string.
func HexToHandle(s string) Handle {
	var h Handle
	copy(h[:], common.FromHex(s))
	return h
}

// EncryptedInput is one ciphertext handle plus the inclusion proof that must
// be submitted together with it in the same transaction.
type EncryptedInput struct {
	Handle Handle
	Proof  []byte
}

// Keypair is the ephemeral decryption keypair. The private half lives for a
// single decryption flow and must never be persisted past it.
type Keypair struct {
	PublicKey  []byte
	PrivateKey []byte
}

// HandleRef scopes a handle to the contract that stored it.
type HandleRef struct {
	Handle   Handle
	Contract common.Address
}

// UserDecryptRequest carries everything the decryption service needs for
// one authorized decryption: the signed EIP-712 envelope plus the keypair
// the response is sealed to.
type UserDecryptRequest struct {
	Handles        []HandleRef
	Keypair        *Keypair
	Signature      []byte
	Contracts      []common.Address
	User           common.Address
	StartTimestamp int64
	DurationDays   uint64
}

// Instance is the encryption/decryption capability bound to exactly one
// chain id. It must be discarded and reacquired when the chain changes.
type Instance interface {
	ChainID() uint64

	// Encrypt binds value to (contract, sender) and returns the handle and
	// proof for submission. The pair must not be reused across a different
	// sender or contract.
	Encrypt(ctx context.Context, contract, sender common.Address, value uint64) (*EncryptedInput, error)

	GenerateKeypair() (*Keypair, error)

	// CreateEIP712 builds the typed authorization envelope over the public
	// key, contract scope and validity window. The caller signs exactly
	// this message.
	CreateEIP712(publicKey []byte, contractAddresses []common.Address, startTimestamp int64, durationDays uint64) apitypes.TypedData

	// UserDecrypt returns plaintexts for the requested handles. A missing
	// access grant surfaces as ErrNotAuthorized and is the only retryable
	// failure.
	UserDecrypt(ctx context.Context, req UserDecryptRequest) (map[Handle]uint64, error)
}
