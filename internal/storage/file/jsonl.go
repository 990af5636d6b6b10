package file

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// readJSONL reads one JSON record per line, matching the .jsonl sibling
// format. Blank lines are skipped; any malformed line fails the load.
func readJSONL[T any](path string) ([]T, error) {
	f, err := os.Open(path) // #nosec G304 - path built from configured data directory
	if err != nil {
		return nil, fmt.Errorf("failed to open jsonl file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var out []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}
		var rec T
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("failed to parse record at line %d: %w", lineNum, err)
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan jsonl file: %w", err)
	}
	return out, nil
}
