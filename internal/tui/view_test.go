//nolint:testpackage // Test needs access to unexported fields
package tui

import (
	"strings"
	"testing"
)

func TestModel_View(t *testing.T) {
	m := NewModel(nil)
	m.width = 80
	m.height = 20

	m.vertices = []VertexState{
		{ID: "1", Name: "fetch requests-2.31.0", Status: statusRunning},
		{ID: "2", Name: "install attrs", Status: statusCompleted},
		{ID: "3", Name: "fetch broken-pkg", Status: statusFailed},
		{ID: "4", Name: "fetch idna-3.6", Status: statusCached},
	}

	output := m.View()

	for _, name := range []string{"fetch requests-2.31.0", "install attrs", "fetch broken-pkg", "fetch idna-3.6"} {
		if !strings.Contains(output, name) {
			t.Errorf("Expected output to contain %q", name)
		}
	}
	if !strings.Contains(output, "✓") {
		t.Errorf("Expected output to contain checkmark for completed work")
	}
	if !strings.Contains(output, "✗") {
		t.Errorf("Expected output to contain cross for failed work")
	}
	if !strings.Contains(output, "2/4 done, 1 failed") {
		t.Errorf("Expected completion summary, got:\n%s", output)
	}
}

func TestModel_View_OverflowDropsOldest(t *testing.T) {
	m := NewModel(nil)
	m.height = 4 // three vertex lines plus the summary

	m.vertices = []VertexState{
		{ID: "1", Name: "pkg-one", Status: statusCompleted},
		{ID: "2", Name: "pkg-two", Status: statusCompleted},
		{ID: "3", Name: "pkg-three", Status: statusRunning},
		{ID: "4", Name: "pkg-four", Status: statusRunning},
		{ID: "5", Name: "pkg-five", Status: statusRunning},
	}

	output := m.View()

	if strings.Contains(output, "pkg-one") {
		t.Error("Expected oldest line to be dropped on overflow")
	}
	if strings.Contains(output, "pkg-two") {
		t.Error("Expected second line to be dropped on overflow")
	}
	for _, name := range []string{"pkg-three", "pkg-four", "pkg-five"} {
		if !strings.Contains(output, name) {
			t.Errorf("Expected output to contain %q", name)
		}
	}
	if !strings.Contains(output, "2/5 done") {
		t.Errorf("Expected summary to count all vertices, got:\n%s", output)
	}
}
