package sheetdb

import "fmt"

// TransportError reports a network-level failure: the request never got a
// response. Callers surface it as a localized "please retry" message.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "sheetdb: transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError reports a non-2xx HTTP response from the SheetDB API.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("sheetdb: remote returned HTTP %d", e.StatusCode)
}

// InvalidCredential reports whether the failure is an auth rejection,
// shown to the user as a distinct "invalid token" message.
func (e *RemoteError) InvalidCredential() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}
