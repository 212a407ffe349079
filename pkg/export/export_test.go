package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Student ID", "Student Name", "Finals"},
		Rows: []map[string]string{
			{"Student ID": "s1", "Student Name": "Ana Cruz", "Finals": "88"},
			{"Student ID": "s2", "Student Name": "Ben, Jr.", "Finals": ""},
		},
	}
}

func TestCSVRoundTrip(t *testing.T) {
	exporter := NewCSVExporter()
	raw, err := exporter.Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "Student ID,Student Name,Finals\n"))
	assert.Contains(t, string(raw), `"Ben, Jr."`)

	parsed, err := exporter.Parse(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, sampleDataset().Headers, parsed.Headers)
	require.Len(t, parsed.Rows, 2)
	assert.Equal(t, "Ben, Jr.", parsed.Rows[1]["Student Name"])
}

func TestCSVParseSkipsBlankRowsAndPadsShortRows(t *testing.T) {
	input := "\ufeffStudent ID , Finals\n\ns1\n,\ns2,75\n"
	parsed, err := NewCSVExporter().Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"Student ID", "Finals"}, parsed.Headers)
	require.Len(t, parsed.Rows, 2)
	assert.Equal(t, "", parsed.Rows[0]["Finals"])
	assert.Equal(t, "75", parsed.Rows[1]["Finals"])
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestXLSXRoundTrip(t *testing.T) {
	exporter := NewXLSXExporter()
	raw, err := exporter.Render(sampleDataset(), "Algebra I - Section A Gradebook Export")
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	parsed, err := exporter.Parse(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, sampleDataset().Headers, parsed.Headers)
	require.Len(t, parsed.Rows, 2)
	assert.Equal(t, "88", parsed.Rows[0]["Finals"])
	assert.Equal(t, "", parsed.Rows[1]["Finals"])
}

func TestPDFRender(t *testing.T) {
	exporter := NewPDFExporter()
	raw, err := exporter.Render(sampleDataset(), "Gradebook")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")))

	table := sampleDataset()
	doc, err := exporter.RenderDocument(Document{
		Title:    "Student Report",
		Subtitle: "Algebra I",
		Sections: []Section{{Heading: "Summary", Lines: []string{"Overall: 88.00"}, Table: &table}},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))

	_, err = exporter.RenderDocument(Document{})
	require.Error(t, err)
}
