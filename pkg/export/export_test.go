package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sample() Dataset {
	return Dataset{
		Title:   "Attendance Report",
		Headers: []string{"Date", "Student Name", "Status"},
		Rows: []map[string]string{
			{"Date": "2024-01-08", "Student Name": "Asha", "Status": "present"},
			{"Date": "2024-01-08", "Student Name": "Ravi, Jr", "Status": "absent"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("", FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	f, err = ParseFormat(" CSV ", FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("docx", FormatXLSX)
	assert.Error(t, err)
}

func TestCSVRendererQuotesFields(t *testing.T) {
	out, err := NewCSVRenderer().Render(sample())
	require.NoError(t, err)
	assert.Equal(t, "Date,Student Name,Status\n2024-01-08,Asha,present\n2024-01-08,\"Ravi, Jr\",absent\n", string(out))
}

func TestXLSXRendererRoundTrip(t *testing.T) {
	r := NewXLSXRenderer()
	out, err := r.Render(sample())
	require.NoError(t, err)
	assert.Equal(t, "attendance-report.xlsx", Filename("attendance-report", r))

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Attendance Report")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Date", "Student Name", "Status"}, rows[0])
	assert.Equal(t, "Ravi, Jr", rows[2][1])
}

func TestPDFRendererProducesDocument(t *testing.T) {
	out, err := NewPDFRenderer().Render(sample())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderersRequireHeaders(t *testing.T) {
	for _, f := range []Format{FormatCSV, FormatXLSX, FormatPDF} {
		r, err := RendererFor(f)
		require.NoError(t, err)
		_, err = r.Render(Dataset{})
		assert.Error(t, err, string(f))
	}
}
