package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dmitrijs2005/sealvault/internal/client/client"
	"github.com/dmitrijs2005/sealvault/internal/client/config"
	"github.com/dmitrijs2005/sealvault/internal/common"
	pb "github.com/dmitrijs2005/sealvault/internal/proto"
)

// App is the CLI state: the server client, the last record listing and the
// locally edited candidates and revealed plaintexts.
type App struct {
	config *config.Config
	client client.Client
	reader *bufio.Reader
	out    io.Writer

	records    []*pb.Record
	candidates map[string][]byte
	plaintexts map[string][]byte
}

func newApp(c *config.Config, cl client.Client, in io.Reader, out io.Writer) *App {
	return &App{
		config:     c,
		client:     cl,
		reader:     bufio.NewReader(in),
		out:        out,
		candidates: make(map[string][]byte),
		plaintexts: make(map[string][]byte),
	}
}

// NewApp connects to the configured server and returns a ready App.
func NewApp(c *config.Config) (*App, error) {
	cl, err := client.NewSealVaultClient(c.ServerEndpointAddr)
	if err != nil {
		return nil, err
	}
	return newApp(c, cl, os.Stdin, os.Stdout), nil
}

// Run starts the REPL and closes the connection when it returns.
func (a *App) Run(ctx context.Context) {
	defer a.Close()
	fmt.Fprintln(a.out, "Welcome to SealVault CLI (type 'help' for commands)")
	runREPL(ctx, a, a.out, a.reader)
}

// Close wipes local plaintexts and closes the client.
func (a *App) Close() error {
	for id := range a.plaintexts {
		a.redact(id)
	}
	return a.client.Close()
}

func (a *App) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config == nil || a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

func (a *App) report(err error) error {
	fmt.Fprintf(a.out, "error (%s): %v\n", common.Kind(err), err)
	return err
}

// redact drops the locally shown plaintext for id.
func (a *App) redact(id string) {
	if p, ok := a.plaintexts[id]; ok {
		common.WipeByteArray(p)
		delete(a.plaintexts, id)
	}
}

// candidate returns the signature currently under test for rec. Until the user
// edits it, this is the stored signature.
func (a *App) candidate(rec *pb.Record) []byte {
	if c, ok := a.candidates[rec.ID]; ok {
		return c
	}
	return rec.Signature
}

func (a *App) refresh(ctx context.Context) error {
	cctx, cancel := a.callCtx(ctx)
	defer cancel()

	recs, err := a.client.ListRecords(cctx)
	if err != nil {
		return err
	}
	a.records = recs
	return nil
}

// resolve finds a record by its 1-based position in the last listing or by id.
// The listing is refreshed once if the reference is unknown.
func (a *App) resolve(ctx context.Context, ref string) (*pb.Record, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: record number or id is required", common.ErrValidation)
	}

	find := func() *pb.Record {
		if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(a.records) {
			return a.records[n-1]
		}
		for _, r := range a.records {
			if r.ID == ref {
				return r
			}
		}
		return nil
	}

	if r := find(); r != nil {
		return r, nil
	}
	if err := a.refresh(ctx); err != nil {
		return nil, err
	}
	if r := find(); r != nil {
		return r, nil
	}
	return nil, fmt.Errorf("record %s: %w", ref, common.ErrorNotFound)
}
