package extract

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// InitialReference finds the reference structure dimple actually used. Tokens
// of the hand-off log ending in .pdb are checked in log order against the
// candidates; the first token whose path ends with a candidate's base name
// selects that candidate. found is false when nothing matches.
func InitialReference(logPath string, candidates []string) (reference string, found bool, err error) {
	if len(candidates) == 0 {
		return "", false, nil
	}
	file, err := os.Open(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, fmt.Errorf("%w: %s", ErrMissingArtifact, logPath)
		}
		return "", false, fmt.Errorf("open hand-off log: %w", err)
	}
	defer func() { _ = file.Close() }()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		for _, token := range strings.Fields(scanner.Text()) {
			token = strings.Trim(token, `"',;()`)
			if !strings.HasSuffix(token, ".pdb") {
				continue
			}
			for _, candidate := range candidates {
				if strings.HasSuffix(token, filepath.Base(candidate)) {
					return candidate, true, nil
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", false, fmt.Errorf("read hand-off log %s: %w", logPath, err)
	}
	return "", false, nil
}
