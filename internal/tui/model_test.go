//nolint:testpackage // Test needs access to unexported fields
package tui

import (
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/vito/progrock"
	"google.golang.org/protobuf/types/known/timestamppb"
)

type stubTape struct {
	updates []*progrock.StatusUpdate
}

func (s *stubTape) Read() (*progrock.StatusUpdate, error) {
	if len(s.updates) == 0 {
		return nil, io.EOF
	}
	u := s.updates[0]
	s.updates = s.updates[1:]
	return u, nil
}

func TestModel_TapeUpdate_AddsVertex(t *testing.T) {
	m := NewModel(&stubTape{})

	update := &progrock.StatusUpdate{
		Vertexes: []*progrock.Vertex{
			{Id: "1", Name: "fetch requests-2.31.0"},
		},
	}

	_, cmd := m.Update(MsgTapeUpdate{Update: update})

	assert.Len(t, m.vertices, 1)
	assert.Equal(t, "1", m.vertices[0].ID)
	assert.Equal(t, statusRunning, m.vertices[0].Status)
	// The model must keep reading from the tape.
	assert.NotNil(t, cmd)
}

func TestModel_TapeUpdate_CompletesVertex(t *testing.T) {
	m := NewModel(&stubTape{})
	m.vertices = []VertexState{
		{ID: "1", Name: "install attrs", Status: statusRunning},
	}

	now := timestamppb.New(time.Now())
	m.Update(MsgTapeUpdate{Update: &progrock.StatusUpdate{
		Vertexes: []*progrock.Vertex{{Id: "1", Name: "install attrs", Completed: now}},
	}})
	assert.Equal(t, statusCompleted, m.vertices[0].Status)

	boom := "boom"
	m.Update(MsgTapeUpdate{Update: &progrock.StatusUpdate{
		Vertexes: []*progrock.Vertex{{Id: "1", Name: "install attrs", Completed: now, Error: &boom}},
	}})
	assert.Equal(t, statusFailed, m.vertices[0].Status)
}

func TestModel_TapeUpdate_MarksCached(t *testing.T) {
	m := NewModel(&stubTape{})

	m.Update(MsgTapeUpdate{Update: &progrock.StatusUpdate{
		Vertexes: []*progrock.Vertex{{Id: "1", Name: "fetch attrs-23.1.0", Cached: true}},
	}})

	assert.Equal(t, statusCached, m.vertices[0].Status)
}

func TestModel_TapeEnded_Quits(t *testing.T) {
	m := NewModel(&stubTape{})

	_, cmd := m.Update(MsgTapeEnded{})

	assert.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_CtrlC_Quits(t *testing.T) {
	m := NewModel(&stubTape{})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	assert.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestWaitForTape_EOFEndsStream(t *testing.T) {
	cmd := WaitForTape(&stubTape{})

	msg := cmd()

	assert.IsType(t, MsgTapeEnded{}, msg)
}
