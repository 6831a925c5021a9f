package tabular

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadCSV(t *testing.T) {
	input := "\uFEFFname, email ,rollNumber\nAsha,asha@x.com,SE01\n,,\nRavi,ravi@x.com\n"

	rows, err := Read(strings.NewReader(input), "students.CSV")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "asha@x.com", rows[0].Get("email"))
	assert.Equal(t, 4, rows[1].Line)
	assert.Equal(t, []string{"rollNumber"}, rows[1].Missing("name", "rollNumber"))
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"name", "email", "department"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Meera", "meera@x.com", "IT"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rows, err := Read(bytes.NewReader(buf.Bytes()), "teachers.xlsx")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "IT", rows[0].Get("department"))
	assert.Empty(t, rows[0].Missing("name", "email", "department"))
}

func TestReadRejectsUnknownExtension(t *testing.T) {
	_, err := Read(strings.NewReader("x"), "students.txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.False(t, IsSupported("a.pdf"))
	assert.True(t, IsSupported("a.xlsx"))
}

func TestReadRequiresHeader(t *testing.T) {
	_, err := Read(strings.NewReader(""), "empty.csv")
	assert.Error(t, err)
}
