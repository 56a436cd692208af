package fhevm

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"golang.org/x/crypto/nacl/box"

	"github.com/CharlotteMargare/savewater/internal/contracts"
)

// MockMetadata mirrors the payload a hardhat fhevm node returns from
// fhevm_relayer_metadata.
type MockMetadata struct {
	ACLAddress           common.Address `json:"ACLAddress"`
	InputVerifierAddress common.Address `json:"InputVerifierAddress"`
	KMSVerifierAddress   common.Address `json:"KMSVerifierAddress"`
}

// aclReader answers whether an account holds persistent decryption access
// for a handle. The production implementation reads the ACL contract on the
// local node, so access granted by an on-chain transaction is visible here.
type aclReader interface {
	IsAllowed(ctx context.Context, handle Handle, account common.Address) (bool, error)
}

// mockInstance serves local development against a hardhat node so nothing
// depends on the external relayer network. Ciphertext handles are
// deterministic digests and plaintexts stay in process memory; the
// authorization check is real and goes through the node's ACL contract.
type mockInstance struct {
	eip712Builder
	rpcURL  string
	chainID uint64
	meta    *MockMetadata
	acl     aclReader

	mu         sync.Mutex
	counter    uint64
	plaintexts map[Handle]uint64
}

func newMockInstance(rpcURL string, chainID uint64, meta *MockMetadata, acl aclReader) *mockInstance {
	return &mockInstance{
		eip712Builder: eip712Builder{
			gatewayChainID:    chainID,
			verifyingContract: meta.KMSVerifierAddress,
		},
		rpcURL:     rpcURL,
		chainID:    chainID,
		meta:       meta,
		acl:        acl,
		plaintexts: make(map[Handle]uint64),
	}
}

func (m *mockInstance) ChainID() uint64 { return m.chainID }

func (m *mockInstance) GenerateKeypair() (*Keypair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("fhevm: generate keypair: %w", err)
	}
	return &Keypair{PublicKey: pub[:], PrivateKey: priv[:]}, nil
}

func (m *mockInstance) Encrypt(ctx context.Context, contract, sender common.Address, value uint64) (*EncryptedInput, error) {
	m.mu.Lock()
	m.counter++
	n := m.counter
	m.mu.Unlock()

	var nonce [16]byte
	binary.BigEndian.PutUint64(nonce[:8], m.chainID)
	binary.BigEndian.PutUint64(nonce[8:], n)
	var valueBytes [8]byte
	binary.BigEndian.PutUint64(valueBytes[:], value)

	var h Handle
	copy(h[:], crypto.Keccak256(contract.Bytes(), sender.Bytes(), nonce[:], valueBytes[:]))
	// fhevm handle layout: byte 30 carries the ciphertext type (euint64),
	// byte 31 the handle version.
	h[30] = 5
	h[31] = 0

	m.mu.Lock()
	m.plaintexts[h] = value
	m.mu.Unlock()

	proof := append(h[:], crypto.Keccak256(h[:], sender.Bytes())...)
	return &EncryptedInput{Handle: h, Proof: proof}, nil
}

func (m *mockInstance) UserDecrypt(ctx context.Context, req UserDecryptRequest) (map[Handle]uint64, error) {
	if err := m.verifyAuthorization(req); err != nil {
		return nil, err
	}
	out := make(map[Handle]uint64, len(req.Handles))
	for _, ref := range req.Handles {
		allowed, err := m.acl.IsAllowed(ctx, ref.Handle, req.User)
		if err != nil {
			return nil, fmt.Errorf("fhevm: acl check for %s: %w", ref.Handle.Hex(), err)
		}
		if !allowed {
			return nil, classifyDecryptError(fmt.Sprintf("user %s is not authorized to user decrypt handle %s", req.User.Hex(), ref.Handle.Hex()))
		}
		m.mu.Lock()
		value, ok := m.plaintexts[ref.Handle]
		m.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("fhevm: handle %s was not produced by this mock instance", ref.Handle.Hex())
		}
		out[ref.Handle] = value
	}
	return out, nil
}

// verifyAuthorization recovers the signer of the EIP-712 envelope and
// checks it matches the requesting user, the same check the real KMS
// performs.
func (m *mockInstance) verifyAuthorization(req UserDecryptRequest) error {
	typed := m.CreateEIP712(req.Keypair.PublicKey, req.Contracts, req.StartTimestamp, req.DurationDays)
	digest, _, err := apitypes.TypedDataAndHash(typed)
	if err != nil {
		return fmt.Errorf("fhevm: hash authorization: %w", err)
	}
	if len(req.Signature) != 65 {
		return fmt.Errorf("fhevm: authorization signature must be 65 bytes, got %d", len(req.Signature))
	}
	sig := make([]byte, 65)
	copy(sig, req.Signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return fmt.Errorf("fhevm: recover authorization signer: %w", err)
	}
	if crypto.PubkeyToAddress(*pub) != req.User {
		return classifyDecryptError(fmt.Sprintf("signature does not match user %s, not authorized to user decrypt handle", req.User.Hex()))
	}
	return nil
}

// ACL fragment consumed by the mock's authorization check.
const aclABI = `[
	{"type":"function","name":"persistAllowed","stateMutability":"view","inputs":[{"name":"handle","type":"bytes32"},{"name":"account","type":"address"}],"outputs":[{"name":"","type":"bool"}]}
]`

var aclParsedABI = mustParseACLABI()

type chainACL struct {
	addr    common.Address
	backend contracts.Backend
}

func newChainACL(addr common.Address, backend contracts.Backend) *chainACL {
	return &chainACL{addr: addr, backend: backend}
}

func (a *chainACL) IsAllowed(ctx context.Context, handle Handle, account common.Address) (bool, error) {
	data, err := aclParsedABI.Pack("persistAllowed", [32]byte(handle), account)
	if err != nil {
		return false, err
	}
	raw, err := a.backend.CallContract(ctx, callMsg(a.addr, data), nil)
	if err != nil {
		return false, err
	}
	out, err := aclParsedABI.Unpack("persistAllowed", raw)
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

func mustParseACLABI() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(aclABI))
	if err != nil {
		panic(err)
	}
	return parsed
}

func callMsg(to common.Address, data []byte) ethereum.CallMsg {
	return ethereum.CallMsg{To: &to, Data: data}
}
