package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Columns: []Column{{Key: "title", Title: "Title", Width: 3}, {Key: "date", Title: "Date", Width: 1}},
		Rows: []map[string]string{
			{"title": "Keynote, day one", "date": "2024-05-01"},
			{"title": "A very long workshop title that will certainly not fit inside its column at this font size", "date": "2024-05-02"},
		},
	}
}

func TestCSVExporterQuotesAndOrdersColumns(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	require.Len(t, lines, 3)
	require.Equal(t, "Title,Date", string(lines[0]))
	require.Equal(t, `"Keynote, day one",2024-05-01`, string(lines[1]))
}

func TestCSVExporterRequiresColumns(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRendersDocument(t *testing.T) {
	exp := NewPDFExporter()
	exp.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	out, err := exp.Render(sampleDataset(), "Event catalogue")
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestColumnWidthsSpanPage(t *testing.T) {
	widths := columnWidths([]Column{{Width: 3}, {Width: 1}, {}})
	require.InDelta(t, pageWidth, widths[0]+widths[1]+widths[2], 0.001)
	require.InDelta(t, widths[1], widths[2], 0.001)
}
