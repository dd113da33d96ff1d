// Package profile defines the normalized career profile and the interface
// used to fetch one from an external scraping service.
package profile

import (
	"context"
	"strings"
)

// Experience is one position in a profile's work history.
type Experience struct {
	Title   string `json:"title"`
	Company string `json:"company"`
	// Date is rendered as "<start year> - <end year or Present>"
	Date string `json:"date"`
}

// Profile is the normalized view of a scraped career profile.
type Profile struct {
	Name       string       `json:"name"`
	Headline   string       `json:"headline"`
	About      string       `json:"about"`
	Experience []Experience `json:"experience"`
	Skills     []string     `json:"skills"`
}

// Fetcher retrieves a profile for a public profile URL. Implementations make
// a single attempt and return an error wrapping errors.ErrProfileFetch or
// errors.ErrProfileNotFound on failure.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Profile, error)
}

// Normalize trims the free-text fields, guarantees non-nil slices and
// de-duplicates skills keeping the first occurrence.
func (p *Profile) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Headline = strings.TrimSpace(p.Headline)
	p.About = strings.TrimSpace(p.About)
	if p.Experience == nil {
		p.Experience = []Experience{}
	}
	p.Skills = DedupeSkills(p.Skills)
}

// DedupeSkills drops blank and repeated skills. Comparison ignores case and
// surrounding whitespace; the first spelling wins.
func DedupeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
