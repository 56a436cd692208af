package savewater

import (
	"context"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/CharlotteMargare/savewater/internal/fhevm"
)

// AmountScale converts liters to the integer milliliter domain the euint64
// ciphertext carries. Precision below one milliliter is dropped at encrypt
// time and is not recoverable.
const AmountScale = 1000

// BuildSubmission turns a plaintext liter amount into a ciphertext handle
// and inclusion proof, bound to the destination contract and the submitting
// account. The pair must go into a single recordSave transaction and must
// not be reused for another sender or contract.
func BuildSubmission(ctx context.Context, inst fhevm.Instance, contract, sender common.Address, liters float64) (*fhevm.EncryptedInput, error) {
	if math.IsNaN(liters) || math.IsInf(liters, 0) || liters < 0 {
		return nil, fmt.Errorf("encrypt amount: invalid value %v", liters)
	}
	// Floor to milliliters: 3.1456 L becomes 3145 mL.
	scaled := uint64(math.Floor(liters * AmountScale))
	enc, err := inst.Encrypt(ctx, contract, sender, scaled)
	if err != nil {
		return nil, fmt.Errorf("encrypt amount: %w", err)
	}
	return enc, nil
}

type SubmitResult struct {
	ID          string      `json:"id"`
	TxHash      common.Hash `json:"txHash"`
	BlockNumber uint64      `json:"blockNumber"`
}

// SubmitCheckIn encrypts one check-in amount and records it on-chain,
// waiting for inclusion.
func (s *Service) SubmitCheckIn(ctx context.Context, descriptionID uint32, liters float64) (*SubmitResult, error) {
	if !ValidDescription(descriptionID) {
		return nil, fmt.Errorf("savewater: unknown description id %d", descriptionID)
	}
	sw, err := s.saveWater()
	if err != nil {
		return nil, err
	}
	inst, err := s.provider.Acquire(ctx, s.netctx)
	if err != nil {
		return nil, err
	}
	enc, err := BuildSubmission(ctx, inst, sw.Address, s.signer.Address(), liters)
	if err != nil {
		return nil, err
	}
	data, err := sw.RecordSaveData(descriptionID, [32]byte(enc.Handle), enc.Proof, false)
	if err != nil {
		return nil, err
	}
	txHash, err := s.signer.SendTransaction(ctx, sw.Address, data)
	if err != nil {
		return nil, fmt.Errorf("submit check-in: %w", err)
	}
	receipt, err := s.waitMined(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("submit check-in: %w", err)
	}
	s.logf("check-in recorded: tx=%s block=%d description=%d", txHash.Hex(), receipt.BlockNumber.Uint64(), descriptionID)
	return &SubmitResult{
		ID:          uuid.NewString(),
		TxHash:      txHash,
		BlockNumber: receipt.BlockNumber.Uint64(),
	}, nil
}
