package fhevm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// eip712Builder produces the UserDecryptRequestVerification envelope. The
// domain is anchored to the decryption verifier on the gateway chain, not
// to the host chain the ciphertexts live on.
type eip712Builder struct {
	gatewayChainID    uint64
	verifyingContract common.Address
}

func (b eip712Builder) CreateEIP712(publicKey []byte, contractAddresses []common.Address, startTimestamp int64, durationDays uint64) apitypes.TypedData {
	addrs := make([]any, 0, len(contractAddresses))
	for _, a := range contractAddresses {
		addrs = append(addrs, a.Hex())
	}
	chainID := new(big.Int).SetUint64(b.gatewayChainID)
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"UserDecryptRequestVerification": {
				{Name: "publicKey", Type: "bytes"},
				{Name: "contractAddresses", Type: "address[]"},
				{Name: "startTimestamp", Type: "uint256"},
				{Name: "durationDays", Type: "uint256"},
			},
		},
		PrimaryType: "UserDecryptRequestVerification",
		Domain: apitypes.TypedDataDomain{
			Name:              "Decryption",
			Version:           "1",
			ChainId:           (*math.HexOrDecimal256)(chainID),
			VerifyingContract: b.verifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"publicKey":         hexutil.Encode(publicKey),
			"contractAddresses": addrs,
			"startTimestamp":    (*math.HexOrDecimal256)(big.NewInt(startTimestamp)),
			"durationDays":      (*math.HexOrDecimal256)(new(big.Int).SetUint64(durationDays)),
		},
	}
}
