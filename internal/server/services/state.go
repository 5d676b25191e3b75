package services

import (
	"bytes"

	"github.com/dmitrijs2005/sealvault/internal/common"
)

// Outcome is the verdict of the last verification of a candidate signature.
type Outcome int

const (
	Unknown Outcome = iota
	Valid
	Invalid
)

func (o Outcome) String() string {
	switch o {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// State is the per-session lifecycle state of one record. The set of
// implementations is closed: Stored, Checked and Revealed.
type State interface {
	Name() string
	isState()
}

// Stored means no candidate signature has been set or checked yet.
type Stored struct{}

// Checked holds the outcome for the current candidate signature.
type Checked struct {
	Outcome Outcome
}

// Revealed holds decrypted plaintext. It is only entered from Checked{Valid}.
type Revealed struct {
	Plaintext []byte
}

func (Stored) isState()   {}
func (Checked) isState()  {}
func (Revealed) isState() {}

func (Stored) Name() string    { return "stored" }
func (c Checked) Name() string { return "checked:" + c.Outcome.String() }
func (Revealed) Name() string  { return "revealed" }

// check is the state of one record within one session. It is guarded by the
// owning session's mutex.
type check struct {
	candidate []byte
	state     State
}

func newCheck() *check {
	return &check{state: Stored{}}
}

// purge wipes revealed plaintext, if any, and moves to Checked{o}.
func (c *check) purge(o Outcome) {
	if r, ok := c.state.(Revealed); ok {
		common.WipeByteArray(r.Plaintext)
	}
	c.state = Checked{Outcome: o}
}

// setCandidate records the signature under test. A changed candidate purges
// plaintext and resets the outcome before any verification runs.
func (c *check) setCandidate(candidate []byte) {
	if _, stored := c.state.(Stored); !stored && bytes.Equal(c.candidate, candidate) {
		return
	}
	c.candidate = bytes.Clone(candidate)
	c.purge(Unknown)
}
