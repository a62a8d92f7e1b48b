// Package tui renders live progress for resolution and sync operations:
// one line per recorded vertex (a metadata fetch, an artifact download, a
// package install), driven by a progrock update stream.
package tui

import (
	"io"

	"github.com/charmbracelet/bubbletea"
	"github.com/vito/progrock"
)

// TapeSource is an interface for reading progrock updates.
// Since *progrock.Tape does not implement Read(), the caller provides a
// source, e.g. a streaming writer wrapper.
type TapeSource interface {
	Read() (*progrock.StatusUpdate, error)
}

// WaitForTape returns a Bubble Tea command that reads the next update from
// the tape. It returns MsgTapeUpdate on success or MsgTapeEnded on EOF or
// error.
func WaitForTape(tape TapeSource) tea.Cmd {
	return func() tea.Msg {
		update, err := tape.Read()
		if err != nil {
			if err == io.EOF {
				return MsgTapeEnded{}
			}
			// Treat other errors as end of stream for now
			return MsgTapeEnded{}
		}
		return MsgTapeUpdate{Update: update}
	}
}
