package telemetry

import (
	"context"
	"os"

	"github.com/charmbracelet/bubbletea"
	"github.com/grindlemire/graft"
	"go.trai.ch/pakt/internal/adapters/telemetry/progrock"
	"go.trai.ch/pakt/internal/core/ports"
	"go.trai.ch/pakt/internal/tui"
)

// NodeID is the unique identifier for the telemetry adapter node.
const NodeID graft.ID = "adapter.telemetry"

func init() {
	graft.Register(graft.Node[ports.Telemetry]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Telemetry, error) {
			switch os.Getenv("PAKT_PROGRESS") {
			case "plain":
				return NewNoop(), nil
			case "tui":
				recorder, stream := progrock.NewStreaming()
				go func() {
					// The program quits when the stream is closed.
					_, _ = tea.NewProgram(tui.NewModel(stream), tea.WithOutput(os.Stderr)).Run()
				}()
				return recorder, nil
			default:
				return progrock.New(), nil
			}
		},
	})
}
