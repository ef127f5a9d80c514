package roster

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadJSON(t *testing.T) {
	input := `[
		{"display_name": "John Smith", "email": "john.smith@corp.com", "aliases": ["Jon", "Johnny"]},
		{"display_name": "", "email": "nameless@corp.com"},
		{"display_name": "Sarah Chen", "email": "sarah.chen@corp.com", "role": "PM"}
	]`

	entries, err := LoadJSON(strings.NewReader(input), nil)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "John Smith", entries[0].DisplayName)
	assert.Equal(t, []string{"Jon", "Johnny"}, entries[0].Aliases)
	assert.Equal(t, "PM", entries[1].Role)
}

func TestLoadJSONMalformed(t *testing.T) {
	_, err := LoadJSON(strings.NewReader(`{"not": "an array"}`), nil)
	require.Error(t, err)
}

func TestLoadJSONNoValidEntries(t *testing.T) {
	_, err := LoadJSON(strings.NewReader(`[{"display_name": "", "email": ""}]`), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no valid entries")
}

func TestLoadCSV(t *testing.T) {
	input := strings.Join([]string{
		"display_name,email,aliases,role,chat_handle,calendar_id",
		"John Smith,john.smith@corp.com,Jon;Johnny,Engineer,@jsmith,jsmith@cal",
		"Sarah Chen,sarah.chen@corp.com,Dr. Chen",
		"missing-email-row",
		"No At Sign,not-an-email",
	}, "\n")

	entries, err := LoadCSV(strings.NewReader(input), nil)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "John Smith", entries[0].DisplayName)
	assert.Equal(t, []string{"Jon", "Johnny"}, entries[0].Aliases)
	assert.Equal(t, "Engineer", entries[0].Role)
	assert.Equal(t, "@jsmith", entries[0].ChatHandle)
	assert.Equal(t, "jsmith@cal", entries[0].CalendarID)

	assert.Equal(t, []string{"Dr. Chen"}, entries[1].Aliases)
}

func TestLoadCSVNoHeader(t *testing.T) {
	input := "John Smith,john.smith@corp.com\nSarah Chen,sarah.chen@corp.com\n"

	entries, err := LoadCSV(strings.NewReader(input), nil)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestLoadCSVAllRowsInvalid(t *testing.T) {
	_, err := LoadCSV(strings.NewReader("display_name,email\nonly-one-field\n"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no valid entries")
}

func TestLoadFileByExtension(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "roster.json")
	require.NoError(t, os.WriteFile(jsonPath,
		[]byte(`[{"display_name": "Sarah Chen", "email": "sarah.chen@corp.com"}]`), 0600))

	csvPath := filepath.Join(dir, "roster.csv")
	require.NoError(t, os.WriteFile(csvPath,
		[]byte("John Smith,john.smith@corp.com\n"), 0600))

	entries, err := LoadFile(jsonPath, nil)
	require.NoError(t, err)
	assert.Equal(t, "sarah.chen@corp.com", entries[0].Email)

	entries, err = LoadFile(csvPath, nil)
	require.NoError(t, err)
	assert.Equal(t, "john.smith@corp.com", entries[0].Email)

	_, err = LoadFile(filepath.Join(dir, "missing.csv"), nil)
	require.Error(t, err)
}
