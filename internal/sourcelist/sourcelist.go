package sourcelist

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// Load reads source endpoints from a CSV file, one URL in the first
// field of each record. A missing or empty list is an error: without
// sources there is nothing to poll, so startup must abort.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url list: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // строки могут быть разной ширины

	urls := make([]string, 0, 64)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse url list %s: %w", path, err)
	}
	for _, rec := range records {
		if len(rec) == 0 {
			continue
		}
		u := strings.TrimSpace(rec[0])
		if u == "" || strings.HasPrefix(u, "#") {
			continue
		}
		urls = append(urls, u)
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("url list %s is empty", path)
	}
	return urls, nil
}
