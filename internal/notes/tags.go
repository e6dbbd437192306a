package notes

import (
	"context"
	"regexp"
	"sort"

	"github.com/nzaccagnino/notedeck/internal/db"
	"github.com/nzaccagnino/notedeck/internal/query"
)

// MaxTagBytes is six CJK characters in UTF-8.
const MaxTagBytes = 18

var bracketed = regexp.MustCompile(`【(.*?)】`)

// TagReport lists what GenerateTags did, each slice sorted.
type TagReport struct {
	Created  []string `json:"created"`
	Existing []string `json:"existing"`
	Invalid  []string `json:"invalid"`
}

// ExtractTags returns the distinct non-empty 【…】 names in title.
func ExtractTags(title string) []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range bracketed.FindAllStringSubmatch(title, -1) {
		name := m[1]
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// GenerateTags creates an auto tag for every bracketed name found in note
// titles. Names longer than MaxTagBytes are reported and skipped.
func (s *Service) GenerateTags(ctx context.Context) (TagReport, error) {
	titles, err := s.store.Titles(ctx)
	if err != nil {
		return TagReport{}, err
	}

	names := map[string]bool{}
	for _, t := range titles {
		for _, name := range ExtractTags(t.Title) {
			names[name] = true
		}
	}

	report := TagReport{Created: []string{}, Existing: []string{}, Invalid: []string{}}
	for name := range names {
		if len(name) > MaxTagBytes {
			report.Invalid = append(report.Invalid, name)
			continue
		}
		created, err := s.store.CreateTagIfNotExists(ctx, name, db.TagSourceAuto, nil)
		if err != nil {
			return TagReport{}, err
		}
		if created {
			report.Created = append(report.Created, name)
		} else {
			report.Existing = append(report.Existing, name)
		}
	}
	sort.Strings(report.Created)
	sort.Strings(report.Existing)
	sort.Strings(report.Invalid)

	s.log.Info().Strs("created", report.Created).Strs("invalid", report.Invalid).Msg("tags generated")
	return report, nil
}

// ClearTags removes every tag and resets the tag filter.
func (s *Service) ClearTags(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteAllTags(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.settings.Set(ctx, query.KeyTagSelect, query.TagUnset); err != nil {
		return n, err
	}
	return n, nil
}
