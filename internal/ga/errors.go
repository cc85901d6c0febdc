package ga

import "errors"

// Error kinds surfaced at the request boundary. Callers select on these
// with errors.Is; everything else a client method returns is wrapped
// around one of them or is a plain transport error.
var (
	// ErrAuthenticationFailed means the provider rejected the credential
	// (revoked or malformed refresh token, bad authorization code).
	// Retrying will not succeed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrQueryFailed means a reporting or listing call against the
	// provider erred. The request as a whole is considered failed.
	ErrQueryFailed = errors.New("provider query failed")
)
