package tui

import (
	"time"

	"github.com/runoshun/adr-sync/internal/domain"
)

// Msg is the sealed interface for all dashboard messages.
//
// go-sumtype:decl Msg
type Msg interface {
	sealed()
}

// MsgSnapshot carries the session state after a change.
type MsgSnapshot struct {
	Snapshot domain.Snapshot
}

func (MsgSnapshot) sealed() {}

// MsgTick redraws elapsed times.
type MsgTick struct {
	Now time.Time
}

func (MsgTick) sealed() {}
