package savewater

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/CharlotteMargare/savewater/internal/fhevm"
)

// The authorization window is deliberately long so a user is not re-signing
// on every view. The ephemeral keypair itself is discarded right after the
// call, so the window outliving the keypair is harmless.
const decryptDurationDays = 365

// DecryptRecord decrypts the amount of one check-in, addressed by its
// original on-chain index (positions after the most-recent-first reversal
// are not valid here).
func (s *Service) DecryptRecord(ctx context.Context, originalIndex uint64) (string, error) {
	sw, err := s.saveWater()
	if err != nil {
		return "", err
	}
	owner := s.signer.Address()
	idx := new(big.Int).SetUint64(originalIndex)
	rec, err := sw.UserRecord(ctx, owner, idx)
	if err != nil {
		return "", fmt.Errorf("fetch record %d: %w", originalIndex, err)
	}
	grant := func() ([]byte, error) {
		return sw.GrantAccessForRecordData(idx, owner)
	}
	value, err := s.decryptHandle(ctx, sw.Address, fhevm.Handle(rec.Amount), grant)
	if err != nil {
		return "", err
	}
	return FormatAmount(value), nil
}

// DecryptTotal decrypts the owner's running encrypted total.
func (s *Service) DecryptTotal(ctx context.Context) (string, error) {
	sw, err := s.saveWater()
	if err != nil {
		return "", err
	}
	owner := s.signer.Address()
	handle, err := sw.UserTotalAmount(ctx, owner)
	if err != nil {
		return "", fmt.Errorf("fetch total handle: %w", err)
	}
	grant := func() ([]byte, error) {
		return sw.GrantAccessForTotalData(owner)
	}
	value, err := s.decryptHandle(ctx, sw.Address, fhevm.Handle(handle), grant)
	if err != nil {
		return "", err
	}
	return FormatAmount(value), nil
}

// decryptHandle runs the authorization flow for one handle: fresh ephemeral
// keypair, signed EIP-712 envelope scoped to this contract, then the
// decryption call. A missing access grant is healed with exactly one
// on-chain grant transaction followed by exactly one retry; anything else
// is terminal. Records created before grants were issued automatically are
// the reason the heal path exists.
func (s *Service) decryptHandle(ctx context.Context, contract common.Address, handle fhevm.Handle, grantData func() ([]byte, error)) (uint64, error) {
	inst, err := s.provider.Acquire(ctx, s.netctx)
	if err != nil {
		return 0, err
	}
	keypair, err := inst.GenerateKeypair()
	if err != nil {
		return 0, err
	}
	owner := s.signer.Address()
	start := time.Now().Unix()
	scope := []common.Address{contract}

	typed := inst.CreateEIP712(keypair.PublicKey, scope, start, decryptDurationDays)
	// The only step needing explicit wallet interaction; nothing before it
	// changes on-chain or process-wide state.
	signature, err := s.signer.SignTypedData(typed)
	if err != nil {
		return 0, fmt.Errorf("sign decryption authorization: %w", err)
	}

	req := fhevm.UserDecryptRequest{
		Handles:        []fhevm.HandleRef{{Handle: handle, Contract: contract}},
		Keypair:        keypair,
		Signature:      signature,
		Contracts:      scope,
		User:           owner,
		StartTimestamp: start,
		DurationDays:   decryptDurationDays,
	}
	attempt := func() (uint64, error) {
		res, err := inst.UserDecrypt(ctx, req)
		if err != nil {
			return 0, err
		}
		value, ok := res[handle]
		if !ok {
			return 0, fmt.Errorf("decrypt response missing handle %s", handle.Hex())
		}
		return value, nil
	}

	value, err := attempt()
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, fhevm.ErrNotAuthorized) {
		return 0, err
	}

	data, err := grantData()
	if err != nil {
		return 0, err
	}
	txHash, err := s.signer.SendTransaction(ctx, contract, data)
	if err != nil {
		return 0, fmt.Errorf("grant decryption access: %w", err)
	}
	if _, err := s.waitMined(ctx, txHash); err != nil {
		return 0, fmt.Errorf("grant decryption access: %w", err)
	}
	s.logf("access granted for %s, retrying decrypt once", handle.Hex())
	return attempt()
}

// FormatAmount renders a milliliter plaintext back in liters with one
// decimal and the fixed unit suffix, the inverse of the submission scaling.
func FormatAmount(milliliters uint64) string {
	return fmt.Sprintf("%.1f L", float64(milliliters)/AmountScale)
}
