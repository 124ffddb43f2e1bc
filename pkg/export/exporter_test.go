package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() Dataset {
	return Dataset{
		Title:   "Applicants",
		Headers: []string{"ID", "Full Name", "Status"},
		Rows: [][]string{
			{"1", "Ana Cruz", "Pending"},
			{"2", "Ben, Jr.", "Accepted"},
			{"3"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sample())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "ID,Full Name,Status", lines[0])
	assert.Equal(t, `2,"Ben, Jr.",Accepted`, lines[2])
	assert.Equal(t, "3,,", lines[3])
}

func TestCSVExporterNeutralizesFormulas(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{Headers: []string{"Name"}, Rows: [][]string{{"=HYPERLINK(\"x\")"}, {"-5"}, {"Ana"}}})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, `"'=HYPERLINK(""x"")"`, lines[1])
	assert.Equal(t, "'-5", lines[2])
	assert.Equal(t, "Ana", lines[3])
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sample())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestForFormat(t *testing.T) {
	e, ok := ForFormat("pdf")
	require.True(t, ok)
	assert.Equal(t, ".pdf", e.Extension())

	e, ok = ForFormat("")
	require.True(t, ok)
	assert.Equal(t, "text/csv; charset=utf-8", e.ContentType())

	_, ok = ForFormat("xlsx")
	assert.False(t, ok)
}
