// Package client contains the client side of the SealVault record service.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface): sessions,
//     submission, listing, candidate editing, verification, reveal and
//     public-key export.
//  2. A concrete gRPC implementation (see GRPCClient) that manages a
//     connection, attaches the session token to session-bound calls, opens a
//     fresh session when the token has expired, and maps gRPC status codes
//     to sentinel errors.
//
// # Error Handling
//
// Transport conditions are exposed as ErrUnavailable and ErrUnauthorized.
// Faults reported by the server map onto the common fault sentinels
// (common.ErrValidation, common.ErrPolicy and so on), so callers can match
// them with errors.Is. Nothing is ever simulated when the server cannot be
// reached.
package client
