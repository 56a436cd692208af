package fhevm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotAuthorized means the requesting address holds no decryption access
// for the handle. Callers heal it with a single on-chain grant and retry.
var ErrNotAuthorized = errors.New("fhevm: not authorized to decrypt handle")

// BootstrapError wraps a failure to construct an Instance. It is fatal to
// any encrypt or decrypt attempt until the acquisition is repeated.
type BootstrapError struct {
	Stage string
	Err   error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("fhevm: bootstrap %s: %v", e.Stage, e.Err)
}

func (e *BootstrapError) Unwrap() error { return e.Err }

// The relayer reports authorization failures as free text. Matching that
// text is a fragile integration detail, so it is confined to this one
// translation function; everything above it branches on ErrNotAuthorized.
const notAuthorizedFragment = "not authorized to user decrypt handle"

func classifyDecryptError(message string) error {
	if strings.Contains(message, notAuthorizedFragment) {
		return fmt.Errorf("%w: %s", ErrNotAuthorized, message)
	}
	return fmt.Errorf("fhevm: user decrypt failed: %s", message)
}
