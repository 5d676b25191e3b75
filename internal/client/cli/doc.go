// Package cli provides the interactive SealVault command-line client.
//
// The REPL lets a user submit messages, list the signed records, edit the
// candidate signature of a record, re-verify it and reveal the plaintext once
// the candidate checks out. Editing a candidate redacts any plaintext shown
// for that record until it is verified again.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
