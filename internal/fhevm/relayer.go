package fhevm

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/nacl/box"

	"github.com/CharlotteMargare/savewater/internal/config"
)

// relayerInstance talks to the production Zama relayer. Plaintext crosses
// the TLS boundary into the relayer exactly once, at encrypt time; decrypt
// responses come back sealed to the caller's ephemeral public key.
type relayerInstance struct {
	eip712Builder
	cfg     config.FhevmConfig
	chainID uint64
	keys    *KeyMaterial
	client  *http.Client
}

func newRelayerInstance(cfg config.FhevmConfig, chainID uint64, keys *KeyMaterial, client *http.Client) *relayerInstance {
	return &relayerInstance{
		eip712Builder: eip712Builder{
			gatewayChainID:    cfg.GatewayChainID,
			verifyingContract: common.HexToAddress(cfg.DecryptionVerifier),
		},
		cfg:     cfg,
		chainID: chainID,
		keys:    keys,
		client:  client,
	}
}

func (r *relayerInstance) ChainID() uint64 { return r.chainID }

func (r *relayerInstance) GenerateKeypair() (*Keypair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("fhevm: generate keypair: %w", err)
	}
	return &Keypair{PublicKey: pub[:], PrivateKey: priv[:]}, nil
}

type inputValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type inputProofRequest struct {
	ContractAddress string       `json:"contractAddress"`
	UserAddress     string       `json:"userAddress"`
	ChainID         uint64       `json:"chainId"`
	KeyID           string       `json:"keyId"`
	CRSID           string       `json:"crsId"`
	Values          []inputValue `json:"values"`
}

type inputProofResponse struct {
	Handles    []string `json:"handles"`
	InputProof string   `json:"inputProof"`
}

func (r *relayerInstance) Encrypt(ctx context.Context, contract, sender common.Address, value uint64) (*EncryptedInput, error) {
	reqBody := inputProofRequest{
		ContractAddress: contract.Hex(),
		UserAddress:     sender.Hex(),
		ChainID:         r.chainID,
		KeyID:           r.keys.PublicKeyID,
		CRSID:           r.keys.CRSID,
		Values:          []inputValue{{Type: "uint64", Value: new(big.Int).SetUint64(value).String()}},
	}
	var resp inputProofResponse
	if err := r.post(ctx, "/v1/input-proof", reqBody, &resp); err != nil {
		return nil, fmt.Errorf("fhevm: input proof: %w", err)
	}
	if len(resp.Handles) != 1 {
		return nil, fmt.Errorf("fhevm: relayer returned %d handles, want 1", len(resp.Handles))
	}
	return &EncryptedInput{
		Handle: HexToHandle(resp.Handles[0]),
		Proof:  common.FromHex(resp.InputProof),
	}, nil
}

type handleContractPair struct {
	Handle          string `json:"handle"`
	ContractAddress string `json:"contractAddress"`
}

type userDecryptBody struct {
	HandleContractPairs []handleContractPair `json:"handleContractPairs"`
	RequestValidity     struct {
		StartTimestamp int64  `json:"startTimestamp"`
		DurationDays   uint64 `json:"durationDays"`
	} `json:"requestValidity"`
	ContractsChainID  uint64   `json:"contractsChainId"`
	ContractAddresses []string `json:"contractAddresses"`
	UserAddress       string   `json:"userAddress"`
	Signature         string   `json:"signature"`
	PublicKey         string   `json:"publicKey"`
}

type userDecryptResponse struct {
	Response []struct {
		Handle string `json:"handle"`
		Sealed string `json:"sealed"`
	} `json:"response"`
}

func (r *relayerInstance) UserDecrypt(ctx context.Context, req UserDecryptRequest) (map[Handle]uint64, error) {
	body := userDecryptBody{
		ContractsChainID: r.chainID,
		UserAddress:      req.User.Hex(),
		Signature:        hexutil.Encode(req.Signature),
		PublicKey:        hexutil.Encode(req.Keypair.PublicKey),
	}
	body.RequestValidity.StartTimestamp = req.StartTimestamp
	body.RequestValidity.DurationDays = req.DurationDays
	for _, ref := range req.Handles {
		body.HandleContractPairs = append(body.HandleContractPairs, handleContractPair{
			Handle:          ref.Handle.Hex(),
			ContractAddress: ref.Contract.Hex(),
		})
	}
	for _, addr := range req.Contracts {
		body.ContractAddresses = append(body.ContractAddresses, addr.Hex())
	}

	var resp userDecryptResponse
	if err := r.post(ctx, "/v1/user-decrypt", body, &resp); err != nil {
		return nil, err
	}

	var pub, priv [32]byte
	copy(pub[:], req.Keypair.PublicKey)
	copy(priv[:], req.Keypair.PrivateKey)

	out := make(map[Handle]uint64, len(resp.Response))
	for _, item := range resp.Response {
		sealed, err := base64.StdEncoding.DecodeString(item.Sealed)
		if err != nil {
			return nil, fmt.Errorf("fhevm: decode sealed value: %w", err)
		}
		plain, ok := box.OpenAnonymous(nil, sealed, &pub, &priv)
		if !ok {
			return nil, fmt.Errorf("fhevm: unseal value for %s failed", item.Handle)
		}
		out[HexToHandle(item.Handle)] = new(big.Int).SetBytes(plain).Uint64()
	}
	return out, nil
}

func (r *relayerInstance) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.RelayerURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var relayerErr struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &relayerErr); err == nil && relayerErr.Message != "" {
			return classifyDecryptError(relayerErr.Message)
		}
		return fmt.Errorf("fhevm: relayer %s returned %d", path, resp.StatusCode)
	}
	return json.Unmarshal(raw, out)
}
