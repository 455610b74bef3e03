package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrConfiguration indicates a required setting is missing or invalid
	ErrConfiguration = errors.New("invalid configuration")

	// ErrConnectivity indicates a source or destination is unreachable
	ErrConnectivity = errors.New("service is unreachable")

	// ErrAuthFailed indicates authentication failed
	ErrAuthFailed = errors.New("authentication token is invalid")

	// ErrPINExpired indicates the Plex login PIN expired before it was claimed
	ErrPINExpired = errors.New("PIN expired")

	// ErrStorage indicates the ledger store failed. Always fatal.
	ErrStorage = errors.New("ledger storage failure")

	// ErrDestinationNotConfigured indicates no destination accepts the item's kind
	ErrDestinationNotConfigured = errors.New("destination not configured")

	// ErrAlreadySynced indicates the ledger already holds a success row
	ErrAlreadySynced = errors.New("already synced")

	// ErrMissingIdentifier indicates the id required by the destination could not be resolved
	ErrMissingIdentifier = errors.New("missing required identifier")

	// ErrDestinationRejected indicates the destination refused the add (validation, duplicate)
	ErrDestinationRejected = errors.New("destination rejected the request")

	// ErrTransport indicates the destination could not be reached or answered unexpectedly
	ErrTransport = errors.New("destination transport failure")

	// ErrNotFound indicates a lookup returned no result
	ErrNotFound = errors.New("not found")
)

// DestinationError carries a user-facing message plus its classification.
// Kind is ErrDestinationRejected or ErrTransport.
type DestinationError struct {
	Kind    error
	Message string
	Err     error
}

func (e *DestinationError) Error() string {
	return e.Message
}

func (e *DestinationError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
