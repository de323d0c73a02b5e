package processor

import (
	cerrors "github.com/oasisprotocol/netmapd/common/errors"
)

const moduleName = "netmap/processor"

// Error codes registered for this module. See the error handling
// taxonomy: signature-invalid, name-conflict, bad-input, fatal-bootstrap.
var (
	// ErrSignatureInvalid is returned when a submitted signed artifact
	// fails signature verification.
	ErrSignatureInvalid = cerrors.New(moduleName, 1, "processor: signature verification failed")
	// ErrNameConflict is returned when a published node info claims an
	// identity name already owned by a different public key.
	ErrNameConflict = cerrors.New(moduleName, 2, "processor: identity name already claimed by a different key")
	// ErrBadInput is returned for malformed caller input (e.g. an
	// unparseable whitelist line).
	ErrBadInput = cerrors.New(moduleName, 3, "processor: malformed input")
	// ErrFatalBootstrap is returned when the initial parameters cannot be
	// established at startup.
	ErrFatalBootstrap = cerrors.New(moduleName, 4, "processor: failed to establish initial network parameters")
)
