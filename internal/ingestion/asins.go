package ingestion

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadExternalIDs loads a newline-delimited external id list. Blank lines
// and surrounding whitespace are ignored.
func ReadExternalIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open id list: %w", err)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			out = append(out, s)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read id list: %w", err)
	}
	return out, nil
}
