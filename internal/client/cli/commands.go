package cli

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/sealvault/internal/common"
	pb "github.com/dmitrijs2005/sealvault/internal/proto"
)

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func short(b []byte) string {
	s := base64.StdEncoding.EncodeToString(b)
	if len(s) > 16 {
		return s[:16] + "..."
	}
	return s
}

// Submit reads a message and stores it on the server. Input is hidden unless
// "-m" asks for visible multi-line entry.
func (a *App) Submit(ctx context.Context, args []string) error {
	var msg []byte
	if firstArg(args) == "-m" {
		text, err := GetMultiline(a.reader, "Message", a.out)
		if err != nil {
			return a.report(err)
		}
		msg = []byte(text)
	} else {
		var err error
		if msg, err = GetHidden("Message", a.out); err != nil {
			return a.report(err)
		}
	}
	defer common.WipeByteArray(msg)

	cctx, cancel := a.callCtx(ctx)
	defer cancel()

	res, err := a.client.Submit(cctx, msg)
	if err != nil {
		return a.report(err)
	}

	fmt.Fprintf(a.out, "stored %s at %s\nsignature: %s\n",
		res.RecordID, res.CreatedAt.Format(time.RFC3339), base64.StdEncoding.EncodeToString(res.Signature))

	// the new record shows up on the next listing
	a.records = nil
	return nil
}

// List prints every record with its local view state.
func (a *App) List(ctx context.Context, args []string) error {
	if err := a.refresh(ctx); err != nil {
		return a.report(err)
	}
	if len(a.records) == 0 {
		fmt.Fprintln(a.out, "no records")
		return nil
	}

	for i, r := range a.records {
		flags := ""
		if _, ok := a.candidates[r.ID]; ok {
			flags += " [edited]"
		}
		if _, ok := a.plaintexts[r.ID]; ok {
			flags += " [revealed]"
		}
		fmt.Fprintf(a.out, "%3d  %s  %s  sig=%s%s\n",
			i+1, r.ID, r.CreatedAt.Format(time.RFC3339), short(a.candidate(r)), flags)
	}
	return nil
}

// Show prints one record. Plaintext appears only after a successful reveal.
func (a *App) Show(ctx context.Context, args []string) error {
	rec, err := a.resolve(ctx, firstArg(args))
	if err != nil {
		return a.report(err)
	}

	fmt.Fprintf(a.out, "id:         %s\n", rec.ID)
	fmt.Fprintf(a.out, "created:    %s\n", rec.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(a.out, "ciphertext: %s\n", base64.StdEncoding.EncodeToString(rec.Ciphertext))
	fmt.Fprintf(a.out, "nonce:      %s\n", base64.StdEncoding.EncodeToString(rec.Nonce))
	fmt.Fprintf(a.out, "signature:  %s\n", base64.StdEncoding.EncodeToString(rec.Signature))
	fmt.Fprintf(a.out, "candidate:  %s\n", base64.StdEncoding.EncodeToString(a.candidate(rec)))
	if p, ok := a.plaintexts[rec.ID]; ok {
		fmt.Fprintf(a.out, "plaintext:  %s\n", p)
	} else {
		fmt.Fprintln(a.out, "plaintext:  [redacted]")
	}
	return nil
}

// Edit replaces the candidate signature for a record. Local plaintext is
// redacted before the server is told about the change. An empty input restores
// the stored signature.
func (a *App) Edit(ctx context.Context, args []string) error {
	rec, err := a.resolve(ctx, firstArg(args))
	if err != nil {
		return a.report(err)
	}

	text, err := GetSimpleText(a.reader, "Candidate signature (base64 or text, empty to restore the stored one)", a.out)
	if err != nil {
		return a.report(err)
	}

	candidate := rec.Signature
	if text = strings.TrimSpace(text); text != "" {
		candidate = pb.DecodeCandidate(text)
	}

	a.redact(rec.ID)
	if text == "" {
		delete(a.candidates, rec.ID)
	} else {
		a.candidates[rec.ID] = candidate
	}

	cctx, cancel := a.callCtx(ctx)
	defer cancel()

	state, err := a.client.SetCandidate(cctx, rec.ID, candidate)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "%s: %s\n", rec.ID, state)
	return nil
}

// Verify re-checks the current candidate of a record on the server.
func (a *App) Verify(ctx context.Context, args []string) error {
	rec, err := a.resolve(ctx, firstArg(args))
	if err != nil {
		return a.report(err)
	}

	cctx, cancel := a.callCtx(ctx)
	defer cancel()

	// the server purges before checking, so does the local view
	a.redact(rec.ID)

	ok, err := a.client.Verify(cctx, rec.ID, a.candidate(rec))
	if err != nil {
		return a.report(err)
	}
	if ok {
		fmt.Fprintf(a.out, "%s: signature valid\n", rec.ID)
	} else {
		fmt.Fprintf(a.out, "%s: signature INVALID\n", rec.ID)
	}
	return nil
}

// Reveal asks the server for the plaintext and shows it.
func (a *App) Reveal(ctx context.Context, args []string) error {
	rec, err := a.resolve(ctx, firstArg(args))
	if err != nil {
		return a.report(err)
	}

	cctx, cancel := a.callCtx(ctx)
	defer cancel()

	pt, err := a.client.Reveal(cctx, rec.ID)
	if err != nil {
		return a.report(err)
	}

	a.redact(rec.ID)
	a.plaintexts[rec.ID] = pt
	if utf8.Valid(pt) {
		fmt.Fprintf(a.out, "%s: %s\n", rec.ID, pt)
	} else {
		fmt.Fprintf(a.out, "%s: %q\n", rec.ID, pt)
	}
	return nil
}

// PublicKey prints the server's signing public key.
func (a *App) PublicKey(ctx context.Context, args []string) error {
	cctx, cancel := a.callCtx(ctx)
	defer cancel()

	pk, err := a.client.PublicKey(cctx)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "scheme: %s\n%s", pk.Scheme, pk.PublicKeyPEM)
	if !strings.HasSuffix(pk.PublicKeyPEM, "\n") {
		fmt.Fprintln(a.out)
	}
	return nil
}
