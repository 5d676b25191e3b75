// Package common contains shared constants and sentinel errors used across
// SealVault components.
package common

// SessionTokenHeaderName is the gRPC metadata key used to carry the
// session token on outbound requests.
const SessionTokenHeaderName = "session_token"

// SessionTokenHTTPHeader carries the session token for the REST transport.
const SessionTokenHTTPHeader = "X-Session-Token"
