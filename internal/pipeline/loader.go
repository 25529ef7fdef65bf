package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jshin42/highschooltrends/internal/schema"
)

// LoadCaptures scans a snapshot directory for profile documents and builds
// their capture records. File names are slugs: <dir>/<slug>.html. The
// content hash is the only part that reads the file body; everything else
// comes from directory metadata.
func LoadCaptures(dir string, sourceYear int) ([]schema.CaptureRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	var captures []schema.CaptureRecord
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".html") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		hash, err := hashFile(path)
		if err != nil {
			return nil, err
		}
		captures = append(captures, schema.CaptureRecord{
			Slug:        strings.TrimSuffix(entry.Name(), ".html"),
			SourceYear:  sourceYear,
			FilePath:    path,
			CapturedAt:  info.ModTime(),
			ByteLength:  info.Size(),
			ContentHash: hash,
		})
	}

	sort.Slice(captures, func(i, j int) bool { return captures[i].Slug < captures[j].Slug })
	return captures, nil
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
