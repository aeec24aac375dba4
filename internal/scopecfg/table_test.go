package scopecfg

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeTestCSV(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "scope.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTable_CSV(t *testing.T) {
	path := writeTestCSV(t, "Size,Dev Hours\nSmall,8\nMedium,24\n")

	text, err := LoadTable(path)
	require.NoError(t, err)

	// tabwriter pads each column to its widest cell plus two spaces
	want := "Size    Dev Hours\n" +
		"Small   8\n" +
		"Medium  24"
	assert.Equal(t, want, text)
}

func TestLoadTable_CSV_RaggedRows(t *testing.T) {
	path := writeTestCSV(t, "Size,Dev Hours,Notes\nSmall,8\nMedium,24,risky\n")

	text, err := LoadTable(path)
	require.NoError(t, err)
	assert.Contains(t, text, "Small")
	assert.Contains(t, text, "risky")
}

func TestLoadTable_CapsDataRows(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("Feature,Size\n")
	for i := 0; i < 150; i++ {
		fmt.Fprintf(&sb, "feature-%d,Small\n", i)
	}
	path := writeTestCSV(t, sb.String())

	text, err := LoadTable(path)
	require.NoError(t, err)

	lines := strings.Split(text, "\n")
	assert.Len(t, lines, 1+maxTableRows)
	assert.Contains(t, text, "feature-99")
	assert.NotContains(t, text, "feature-100")
}

func TestLoadTable_WideSheetKeepsKeywordColumns(t *testing.T) {
	header := []string{
		"ID", "Epic Name", "Owner", "Priority", "Feature", "Status",
		"Notes", "Requirement", "Phase", "Team", "Size", "Dev Hours",
	}
	row := []string{
		"1", "Onboarding", "alice", "P1", "SSO login", "open",
		"n/a", "REQ-12", "beta", "core", "Medium", "24",
	}
	path := writeTestCSV(t, strings.Join(header, ",")+"\n"+strings.Join(row, ",")+"\n")

	text, err := LoadTable(path)
	require.NoError(t, err)

	assert.Contains(t, text, "Epic Name")
	assert.Contains(t, text, "Requirement")
	assert.Contains(t, text, "Dev Hours")
	assert.Contains(t, text, "SSO login")
	assert.NotContains(t, text, "Owner")
	assert.NotContains(t, text, "alice")
	assert.NotContains(t, text, "Priority")
}

func TestLoadTable_WideSheetWithoutKeywordsKeepsAll(t *testing.T) {
	cols := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K"}
	path := writeTestCSV(t, strings.Join(cols, ",")+"\nv1,v2,v3,v4,v5,v6,v7,v8,v9,v10,v11\n")

	text, err := LoadTable(path)
	require.NoError(t, err)

	for _, col := range cols {
		assert.Contains(t, text, col)
	}
	assert.Contains(t, text, "v11")
}

func TestLoadTable_NarrowSheetSkipsFilter(t *testing.T) {
	path := writeTestCSV(t, "Feature,Owner,Size\nlogin,alice,Small\n")

	text, err := LoadTable(path)
	require.NoError(t, err)

	// At ten columns or fewer everything survives, keywords or not
	assert.Contains(t, text, "Owner")
	assert.Contains(t, text, "alice")
}

func TestLoadTable_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scope.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Size", "Dev Hours"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"Small", 8}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"Large", 80}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	text, err := LoadTable(path)
	require.NoError(t, err)

	assert.Contains(t, text, "Size")
	assert.Contains(t, text, "Small")
	assert.Contains(t, text, "80")
}

func TestLoadTable_LegacyXLS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scope.xls")
	require.NoError(t, os.WriteFile(path, []byte("binary"), 0o644))

	_, err := LoadTable(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "legacy .xls is not supported")
}

func TestLoadTable_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scope.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))

	_, err := LoadTable(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scope config type")
}

func TestLoadTable_EmptyCSV(t *testing.T) {
	path := writeTestCSV(t, "")

	text, err := LoadTable(path)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestLoadTable_MissingFile(t *testing.T) {
	_, err := LoadTable(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}

func TestSizeHours(t *testing.T) {
	path := writeTestCSV(t, "T-Shirt Size,Dev Hours,Notes\nX-Small,4,tiny\nSmall,8,\nMedium,24,\nLarge,80,\n")

	hours, err := SizeHours(path)
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{
		"x-small": 4,
		"small":   8,
		"medium":  24,
		"large":   80,
	}, hours)
}

func TestSizeHours_SkipsUnparsableRows(t *testing.T) {
	path := writeTestCSV(t, "Size,Hours\nSmall,8\nMedium,TBD\n,12\n")

	hours, err := SizeHours(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"small": 8}, hours)
}

func TestSizeHours_MissingColumns(t *testing.T) {
	path := writeTestCSV(t, "Feature,Owner\nlogin,alice\n")

	hours, err := SizeHours(path)
	require.NoError(t, err)
	assert.Empty(t, hours)
}
