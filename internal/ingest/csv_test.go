package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCSV_HeaderLowercasedAndTrimmed(t *testing.T) {
	src := "Date, Reference ,Amount\n2024-01-01,REF1,100.00\n"
	rows, columns, err := LoadCSV(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, []string{"date", "reference", "amount"}, columns)
	require.Len(t, rows, 1)
	require.Equal(t, "REF1", rows[0]["reference"])
	require.Equal(t, "100.00", rows[0]["amount"])
}

func TestLoadCSV_ShortRowPadsBlank(t *testing.T) {
	src := "date,reference,amount\n2024-01-01,REF1\n"
	rows, _, err := LoadCSV(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, "", rows[0]["amount"])
}

func TestLoadCSV_EmptyFileErrors(t *testing.T) {
	_, _, err := LoadCSV(strings.NewReader(""))
	require.Error(t, err)
}
