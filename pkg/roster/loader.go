package roster

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/quorumhq/nameplate/pkg/logging"
)

// LoadFile loads a roster from a CSV or JSON file based on its extension.
// Malformed rows are skipped with a warning; the load only fails if the file
// itself cannot be read or yields zero valid entries.
func LoadFile(path string, log logging.Logger) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadJSON(f, log)
	default:
		return LoadCSV(f, log)
	}
}

// LoadJSON reads a JSON array of entries, dropping invalid records.
func LoadJSON(r io.Reader, log logging.Logger) ([]Entry, error) {
	if log == nil {
		log = logging.NewNop()
	}

	var raw []Entry
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode roster JSON: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for i, e := range raw {
		if !e.Valid() {
			log.Warn("skipping invalid roster entry",
				logging.F("index", i),
				logging.F("display_name", e.DisplayName),
				logging.F("email", e.Email))
			continue
		}
		entries = append(entries, e)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("roster contains no valid entries")
	}
	return entries, nil
}

// LoadCSV reads entries from CSV with columns:
//
//	display_name,email,aliases,role,chat_handle,calendar_id
//
// Aliases are separated by semicolons. A header row is detected and skipped.
// Rows missing a name or email are skipped with a warning rather than failing
// the whole load.
func LoadCSV(r io.Reader, log logging.Logger) ([]Entry, error) {
	if log == nil {
		log = logging.NewNop()
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var entries []Entry
	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			log.Warn("skipping malformed roster row",
				logging.F("line", line), logging.Err(err))
			continue
		}
		if line == 1 && looksLikeHeader(record) {
			continue
		}

		entry, ok := entryFromRecord(record)
		if !ok {
			log.Warn("skipping invalid roster row",
				logging.F("line", line),
				logging.F("fields", len(record)))
			continue
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("roster contains no valid entries")
	}
	return entries, nil
}

func entryFromRecord(record []string) (Entry, bool) {
	if len(record) < 2 {
		return Entry{}, false
	}

	entry := Entry{
		DisplayName: strings.TrimSpace(record[0]),
		Email:       strings.TrimSpace(record[1]),
	}
	if len(record) > 2 && record[2] != "" {
		for _, a := range strings.Split(record[2], ";") {
			if a = strings.TrimSpace(a); a != "" {
				entry.Aliases = append(entry.Aliases, a)
			}
		}
	}
	if len(record) > 3 {
		entry.Role = strings.TrimSpace(record[3])
	}
	if len(record) > 4 {
		entry.ChatHandle = strings.TrimSpace(record[4])
	}
	if len(record) > 5 {
		entry.CalendarID = strings.TrimSpace(record[5])
	}

	if !entry.Valid() || !strings.Contains(entry.Email, "@") {
		return Entry{}, false
	}
	return entry, true
}

func looksLikeHeader(record []string) bool {
	if len(record) < 2 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(record[0]))
	second := strings.ToLower(strings.TrimSpace(record[1]))
	return (first == "display_name" || first == "name") && !strings.Contains(second, "@")
}
