package savewater

import (
	"context"
	"errors"
	"io"
	"log"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/CharlotteMargare/savewater/internal/config"
	"github.com/CharlotteMargare/savewater/internal/contracts"
	"github.com/CharlotteMargare/savewater/internal/fhevm"
)

func chainCfg() config.ChainConfig { return config.ChainConfig{} }

func netctx() contracts.NetworkContext {
	return contracts.NetworkContext{ChainID: 31337, RPCURL: "http://localhost:8545"}
}

func discardLogger() *log.Logger { return log.New(io.Discard, "", 0) }

type fakeSigner struct {
	addr   common.Address
	sent   []common.Hash
	onSend func()
}

func (f *fakeSigner) Address() common.Address { return f.addr }

func (f *fakeSigner) SignTypedData(typed apitypes.TypedData) ([]byte, error) {
	sig := make([]byte, 65)
	sig[64] = 27
	return sig, nil
}

func (f *fakeSigner) SendTransaction(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	var h common.Hash
	h[0] = byte(len(f.sent) + 1)
	f.sent = append(f.sent, h)
	if f.onSend != nil {
		f.onSend()
	}
	return h, nil
}

type fakeProvider struct {
	inst fhevm.Instance
}

func (f *fakeProvider) Acquire(ctx context.Context, _ contracts.NetworkContext) (fhevm.Instance, error) {
	return f.inst, nil
}

type fakeReceipts struct{}

func (fakeReceipts) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(1)}, nil
}

func decryptFixture(inst *fakeInstance) (*Service, *fakeSigner) {
	signer := &fakeSigner{addr: common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")}
	// The grant transaction flips the ACL bit, which the fake models as the
	// authorized flag.
	signer.onSend = func() { inst.authorized = true }
	svc := NewService(chainCfg(), netctx(), nil, fakeReceipts{}, &fakeProvider{inst: inst}, signer, discardLogger())
	return svc, signer
}

func TestDecryptHandleHealsWithOneGrantAndOneRetry(t *testing.T) {
	inst := newFakeInstance()
	svc, signer := decryptFixture(inst)

	contract := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	enc, err := inst.Encrypt(context.Background(), contract, signer.addr, 3145)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	value, err := svc.decryptHandle(context.Background(), contract, enc.Handle, func() ([]byte, error) {
		return []byte{0xaa}, nil
	})
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if value != 3145 {
		t.Fatalf("decrypted %d, want 3145", value)
	}
	if len(signer.sent) != 1 {
		t.Fatalf("expected exactly one grant transaction, got %d", len(signer.sent))
	}
	if inst.decrypts != 2 {
		t.Fatalf("expected one attempt plus one retry, got %d decrypt calls", inst.decrypts)
	}
}

func TestDecryptHandleSkipsGrantWhenAuthorized(t *testing.T) {
	inst := newFakeInstance()
	inst.authorized = true
	svc, signer := decryptFixture(inst)

	contract := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	enc, _ := inst.Encrypt(context.Background(), contract, signer.addr, 500)

	if _, err := svc.decryptHandle(context.Background(), contract, enc.Handle, func() ([]byte, error) {
		return []byte{0xaa}, nil
	}); err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if len(signer.sent) != 0 {
		t.Fatalf("authorized decrypt must not send a grant, got %d transactions", len(signer.sent))
	}
	if inst.decrypts != 1 {
		t.Fatalf("expected a single decrypt call, got %d", inst.decrypts)
	}
}

func TestDecryptHandleDoesNotRetryTerminalErrors(t *testing.T) {
	inst := newFakeInstance()
	inst.decryptErr = errors.New("relayer returned 500")
	svc, signer := decryptFixture(inst)

	contract := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	enc, _ := inst.Encrypt(context.Background(), contract, signer.addr, 500)

	_, err := svc.decryptHandle(context.Background(), contract, enc.Handle, func() ([]byte, error) {
		return []byte{0xaa}, nil
	})
	if err == nil {
		t.Fatal("expected terminal error to surface")
	}
	if len(signer.sent) != 0 {
		t.Fatalf("terminal errors must not trigger a grant, got %d transactions", len(signer.sent))
	}
	if inst.decrypts != 1 {
		t.Fatalf("terminal errors must not be retried, got %d decrypt calls", inst.decrypts)
	}
}

func TestDecryptHandleUsesFreshKeypairPerCall(t *testing.T) {
	inst := newFakeInstance()
	inst.authorized = true
	svc, signer := decryptFixture(inst)

	contract := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	enc, _ := inst.Encrypt(context.Background(), contract, signer.addr, 500)

	grant := func() ([]byte, error) { return []byte{0xaa}, nil }
	if _, err := svc.decryptHandle(context.Background(), contract, enc.Handle, grant); err != nil {
		t.Fatalf("first decrypt: %v", err)
	}
	if _, err := svc.decryptHandle(context.Background(), contract, enc.Handle, grant); err != nil {
		t.Fatalf("second decrypt: %v", err)
	}
	if inst.keypairs != 2 {
		t.Fatalf("expected one ephemeral keypair per call, got %d", inst.keypairs)
	}
}
