package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Backend is the read surface this package needs from an RPC client.
// *ethclient.Client satisfies it.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// SaveWater is a thin binding over the deployed ledger contract. It is
// immutable after creation; a network change replaces it wholesale.
type SaveWater struct {
	Address common.Address
	backend Backend
}

func NewSaveWater(addr common.Address, backend Backend) *SaveWater {
	return &SaveWater{Address: addr, backend: backend}
}

// Deployed reports whether the bound address has code on the current chain.
func (c *SaveWater) Deployed(ctx context.Context) (bool, error) {
	code, err := c.backend.CodeAt(ctx, c.Address, nil)
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

func (c *SaveWater) TotalSaves(ctx context.Context) (*big.Int, error) {
	out, err := callMethod(ctx, c.backend, c.Address, saveWaterParsedABI, "getTotalSaves")
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

func (c *SaveWater) UserCount(ctx context.Context, user common.Address) (uint32, error) {
	out, err := callMethod(ctx, c.backend, c.Address, saveWaterParsedABI, "getUserCount", user)
	if err != nil {
		return 0, err
	}
	return out[0].(uint32), nil
}

func (c *SaveWater) UserStreak(ctx context.Context, user common.Address) (uint32, error) {
	out, err := callMethod(ctx, c.backend, c.Address, saveWaterParsedABI, "getUserStreak", user)
	if err != nil {
		return 0, err
	}
	return out[0].(uint32), nil
}

func (c *SaveWater) UserRecordsLength(ctx context.Context, user common.Address) (*big.Int, error) {
	out, err := callMethod(ctx, c.backend, c.Address, saveWaterParsedABI, "getUserRecordsLength", user)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// RecordView is one on-chain check-in as the contract stores it. Amount is
// an opaque ciphertext handle, never a plaintext.
type RecordView struct {
	Timestamp     *big.Int
	DescriptionID uint32
	Amount        [32]byte
	Streak        uint32
}

func (c *SaveWater) UserRecord(ctx context.Context, user common.Address, index *big.Int) (RecordView, error) {
	out, err := callMethod(ctx, c.backend, c.Address, saveWaterParsedABI, "getUserRecord", user, index)
	if err != nil {
		return RecordView{}, err
	}
	return RecordView{
		Timestamp:     out[0].(*big.Int),
		DescriptionID: out[1].(uint32),
		Amount:        out[2].([32]byte),
		Streak:        out[3].(uint32),
	}, nil
}

func (c *SaveWater) UserTotalAmount(ctx context.Context, user common.Address) ([32]byte, error) {
	out, err := callMethod(ctx, c.backend, c.Address, saveWaterParsedABI, "getUserTotalAmount", user)
	if err != nil {
		return [32]byte{}, err
	}
	return out[0].([32]byte), nil
}

func (c *SaveWater) TopUsers(ctx context.Context) ([]common.Address, []uint32, error) {
	out, err := callMethod(ctx, c.backend, c.Address, saveWaterParsedABI, "getTopUsers")
	if err != nil {
		return nil, nil, err
	}
	return out[0].([]common.Address), out[1].([]uint32), nil
}

// Calldata builders for the write surface. The transaction itself is sent
// by the wallet capability, not by this binding.

func (c *SaveWater) RecordSaveData(descriptionID uint32, handle [32]byte, proof []byte, reveal bool) ([]byte, error) {
	return saveWaterParsedABI.Pack("recordSave", descriptionID, handle, proof, reveal)
}

func (c *SaveWater) GrantAccessForRecordData(index *big.Int, grantee common.Address) ([]byte, error) {
	return saveWaterParsedABI.Pack("grantAccessForRecord", index, grantee)
}

func (c *SaveWater) GrantAccessForTotalData(grantee common.Address) ([]byte, error) {
	return saveWaterParsedABI.Pack("grantAccessForTotal", grantee)
}

// Badge binds the SaveWaterBadge contract.
type Badge struct {
	Address common.Address
	backend Backend
}

func NewBadge(addr common.Address, backend Backend) *Badge {
	return &Badge{Address: addr, backend: backend}
}

func (c *Badge) Deployed(ctx context.Context) (bool, error) {
	code, err := c.backend.CodeAt(ctx, c.Address, nil)
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

func (c *Badge) Threshold(ctx context.Context, level uint8) (uint32, error) {
	out, err := callMethod(ctx, c.backend, c.Address, badgeParsedABI, "thresholds", level)
	if err != nil {
		return 0, err
	}
	return out[0].(uint32), nil
}

func (c *Badge) Minted(ctx context.Context, user common.Address, level uint8) (bool, error) {
	out, err := callMethod(ctx, c.backend, c.Address, badgeParsedABI, "minted", user, level)
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

func (c *Badge) MintBadgeData(level uint8) ([]byte, error) {
	return badgeParsedABI.Pack("mintBadge", level)
}

func callMethod(ctx context.Context, backend Backend, addr common.Address, contractABI abi.ABI, method string, args ...any) ([]any, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	raw, err := backend.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	out, err := contractABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}
