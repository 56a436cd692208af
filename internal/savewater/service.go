// Package savewater implements the encrypted check-in protocol: building
// ciphertext submissions, the authorization-gated decryption flow, and the
// aggregated ledger views.
package savewater

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/CharlotteMargare/savewater/internal/config"
	"github.com/CharlotteMargare/savewater/internal/contracts"
	"github.com/CharlotteMargare/savewater/internal/fhevm"
)

// InstanceProvider yields the encryption instance for a network context.
// *fhevm.Provider satisfies it.
type InstanceProvider interface {
	Acquire(ctx context.Context, netctx contracts.NetworkContext) (fhevm.Instance, error)
}

type receiptBackend interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

type Service struct {
	cfg      config.ChainConfig
	netctx   contracts.NetworkContext
	backend  contracts.Backend
	receipts receiptBackend
	provider InstanceProvider
	signer   Signer
	logger   *log.Logger
}

func NewService(cfg config.ChainConfig, netctx contracts.NetworkContext, backend contracts.Backend, receipts receiptBackend, provider InstanceProvider, signer Signer, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		cfg:      cfg,
		netctx:   netctx,
		backend:  backend,
		receipts: receipts,
		provider: provider,
		signer:   signer,
		logger:   logger,
	}
}

// Owner is the account the held wallet key controls.
func (s *Service) Owner() common.Address { return s.signer.Address() }

func (s *Service) saveWater() (*contracts.SaveWater, error) {
	addr, err := contracts.Resolve(contracts.NameSaveWater, s.netctx, s.cfg.SaveWaterAddress)
	if err != nil {
		return nil, err
	}
	return contracts.NewSaveWater(addr, s.backend), nil
}

func (s *Service) badgeContract() (*contracts.Badge, error) {
	addr, err := contracts.Resolve(contracts.NameBadge, s.netctx, s.cfg.BadgeAddress)
	if err != nil {
		return nil, err
	}
	return contracts.NewBadge(addr, s.backend), nil
}

var errTxReverted = errors.New("savewater: transaction reverted")

// waitMined polls for the receipt of a sent transaction.
func (s *Service) waitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		receipt, err := s.receipts.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("%w: %s", errTxReverted, txHash.Hex())
			}
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
