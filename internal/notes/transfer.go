package notes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/nzaccagnino/notedeck/internal/db"
	"github.com/nzaccagnino/notedeck/internal/query"
)

// ImportedSuffix marks titles of notes created from files.
const ImportedSuffix = "【Imported】"

var importExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
}

// Export writes every note to dir/notes/{id}.md, replacing existing files,
// and returns the directory written to.
func (s *Service) Export(ctx context.Context, dir string) (string, int, error) {
	target := filepath.Join(dir, "notes")
	if err := os.MkdirAll(target, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create export directory: %w", err)
	}

	all, err := s.lister.All(ctx, query.Filter{OrderBy: query.String("id")})
	if err != nil {
		return "", 0, err
	}

	for _, n := range all {
		path := filepath.Join(target, fmt.Sprintf("%d.md", n.ID))
		if err := os.WriteFile(path, []byte(FormatExport(n)), 0644); err != nil {
			return "", 0, fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	s.log.Info().Str("dir", target).Int("notes", len(all)).Msg("notes exported")
	return target, len(all), nil
}

func FormatExport(n db.Note) string {
	return fmt.Sprintf("Title: %s\n\n\n\nContent:\n\n%s", n.Title, n.Content)
}

type ImportReport struct {
	Imported []*db.Note `json:"imported"`
	Skipped  []string   `json:"skipped"`
}

// Import creates one note per .md, .markdown or .txt file matching pattern
// (doublestar syntax, so "docs/**/*.md" recurses).
func (s *Service) Import(ctx context.Context, pattern string) (ImportReport, error) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return ImportReport{}, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	report := ImportReport{Imported: []*db.Note{}, Skipped: []string{}}
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			return report, err
		}
		if info.IsDir() || !importExtensions[strings.ToLower(filepath.Ext(path))] {
			report.Skipped = append(report.Skipped, path)
			continue
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return report, fmt.Errorf("failed to read %s: %w", path, err)
		}
		note, err := s.Save(ctx, SaveRequest{Title: ImportTitle(path), Content: string(content)})
		if err != nil {
			return report, fmt.Errorf("failed to import %s: %w", path, err)
		}
		report.Imported = append(report.Imported, note)
	}

	s.log.Info().Int("imported", len(report.Imported)).Int("skipped", len(report.Skipped)).Msg("notes imported")
	return report, nil
}

// ImportTitle is the file name without extension plus ImportedSuffix,
// shortened so the whole title fits MaxTitleLength.
func ImportTitle(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	room := MaxTitleLength - len([]rune(ImportedSuffix))
	if r := []rune(base); len(r) > room {
		base = string(r[:room])
	}
	return base + ImportedSuffix
}
