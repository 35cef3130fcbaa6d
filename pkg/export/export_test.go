package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRender(t *testing.T) {
	sheet := Sheet{
		Headers: []string{"Name", "Email", "Status"},
		Rows: [][]string{
			{"Alice", "alice@example.com", "CHECKED_IN"},
			{"Bob, Jr.", "bob@example.com", "ABSENT"},
		},
	}

	payload, err := NewCSVExporter().Render(sheet)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Name,Email,Status", lines[0])
	assert.Contains(t, lines[2], `"Bob, Jr."`, "values with commas are quoted")
}

func TestCSVRenderPadsShortRows(t *testing.T) {
	sheet := Sheet{
		Headers: []string{"Name", "Email"},
		Rows:    [][]string{{"Alice"}},
	}

	payload, err := NewCSVExporter().Render(sheet)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "Alice,")
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Sheet{})
	require.Error(t, err)
}

func TestPDFRender(t *testing.T) {
	sheet := Sheet{
		Headers: []string{"Name", "Status"},
		Rows:    [][]string{{"Alice", "CHECKED_IN"}},
	}

	payload, err := NewPDFExporter().Render(sheet, "Attendance: Launch Night")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestPDFRenderRequiresHeaders(t *testing.T) {
	_, err := NewPDFExporter().Render(Sheet{}, "")
	require.Error(t, err)
}
