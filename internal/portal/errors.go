// Package portal implements the authenticated HTTP transactions against the
// HR portal: the attendance posting flow and the attendance-log fetch.
package portal

import "errors"

// Common errors returned by the portal package.
var (
	// ErrUnauthenticated is returned when the portal rejects the session
	// cookie. The caller decides whether to re-authenticate.
	ErrUnauthenticated = errors.New("portal rejected session as unauthenticated")
	// ErrNetwork is returned on connection failures and timeouts.
	ErrNetwork = errors.New("portal unreachable")
	// ErrCSRFNotFound is returned when no CSRF token can be extracted from the
	// live attendance page.
	ErrCSRFNotFound = errors.New("csrf token not found in attendance page")
)
