package mock

import (
	"context"
	"sync"

	"github.com/lexlapax/careercoach/pkg/log"
	"github.com/lexlapax/careercoach/pkg/profile"
)

// MockFetcher returns a canned profile, or a canned error, for every URL.
type MockFetcher struct {
	profile *profile.Profile
	err     error
	calls   []string
	mutex   sync.Mutex
}

var _ profile.Fetcher = (*MockFetcher)(nil)

// NewMockFetcher creates a fetcher that always returns p.
func NewMockFetcher(p *profile.Profile) *MockFetcher {
	log.Debug("Created mock profile fetcher")
	return &MockFetcher{profile: p}
}

// SampleProfile is the profile served when none is configured.
func SampleProfile() *profile.Profile {
	return &profile.Profile{
		Name:     "Sample User",
		Headline: "Software Engineer",
		About:    "Engineer focused on backend services and developer tooling.",
		Experience: []profile.Experience{
			{Title: "Software Engineer", Company: "Example Corp", Date: "2021 - Present"},
		},
		Skills: []string{"Go", "SQL", "Communication"},
	}
}

// SetError makes Fetch fail with err (nil clears it).
func (m *MockFetcher) SetError(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.err = err
}

// Fetch implements profile.Fetcher.
func (m *MockFetcher) Fetch(ctx context.Context, url string) (*profile.Profile, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.calls = append(m.calls, url)
	if m.err != nil {
		return nil, m.err
	}
	p := m.profile
	if p == nil {
		p = SampleProfile()
	}
	cp := *p
	cp.Experience = append([]profile.Experience(nil), p.Experience...)
	cp.Skills = append([]string(nil), p.Skills...)
	return &cp, nil
}

// Calls returns the URLs fetched so far.
func (m *MockFetcher) Calls() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]string(nil), m.calls...)
}
