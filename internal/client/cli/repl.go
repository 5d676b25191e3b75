package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL dispatches to. App satisfies it;
// tests use a stub.
type execIface interface {
	Submit(ctx context.Context, args []string) error
	List(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Edit(ctx context.Context, args []string) error
	Verify(ctx context.Context, args []string) error
	Reveal(ctx context.Context, args []string) error
	PublicKey(ctx context.Context, args []string) error
}

const helpText = `Available commands:
  submit [-m]       store a new message (hidden input; -m for visible multi-line)
  (l)ist            list records
  show <n|id>       show a record
  edit <n|id>       edit the candidate signature of a record
  verify <n|id>     re-verify the current candidate
  reveal <n|id>     decrypt a verified record
  pubkey            print the server public key
  exit | quit       leave the program`

// runREPL reads commands from reader and dispatches them to a until EOF,
// "exit" or "quit". Command errors are reported by the handlers themselves.
// Commands that prompt read from the same reader.
func runREPL(ctx context.Context, a execIface, w io.Writer, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprint(w, "sv> ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			fmt.Fprintln(w, helpText)
		case "submit":
			_ = a.Submit(ctx, args)
		case "l", "list":
			_ = a.List(ctx, args)
		case "show":
			_ = a.Show(ctx, args)
		case "edit":
			_ = a.Edit(ctx, args)
		case "verify":
			_ = a.Verify(ctx, args)
		case "reveal":
			_ = a.Reveal(ctx, args)
		case "pubkey":
			_ = a.PublicKey(ctx, args)
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}
	}
}
