package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lexlapax/careercoach/pkg/errors"
	"github.com/lexlapax/careercoach/pkg/log"
	"github.com/lexlapax/careercoach/pkg/profile"
)

const (
	// DefaultBaseURL is the public Apify API.
	DefaultBaseURL = "https://api.apify.com"
	// DefaultActorID is the LinkedIn profile scraper actor.
	DefaultActorID = "simpleapi/linkedin-profile-scraper"

	contentType = "application/json"
	userAgent   = "lexlapax/careercoach"
)

// Config holds the settings for the Apify fetcher.
type Config struct {
	Token   string
	ActorID string
	BaseURL string
	// HTTPClient overrides the default client. Its timeout bounds a whole actor run.
	HTTPClient *http.Client
}

// Client runs a scraping actor synchronously and maps its first dataset item
// to a profile.
type Client struct {
	token      string
	actorID    string
	baseURL    string
	httpClient *http.Client
}

var _ profile.Fetcher = (*Client)(nil)

// New creates an Apify fetcher. A missing token is reported on Fetch, not
// here, so the server can still start and answer chat requests.
func New(cfg Config) *Client {
	if cfg.ActorID == "" {
		cfg.ActorID = DefaultActorID
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Client{
		token:      cfg.Token,
		actorID:    cfg.ActorID,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
	}
}

type proxyConfiguration struct {
	UseApifyProxy bool `json:"useApifyProxy"`
}

type runInput struct {
	URLs               []string           `json:"urls"`
	ProxyConfiguration proxyConfiguration `json:"proxyConfiguration"`
}

// Fetch implements profile.Fetcher.
func (c *Client) Fetch(ctx context.Context, profileURL string) (*profile.Profile, error) {
	if strings.TrimSpace(c.token) == "" {
		return nil, errors.Join(errors.ErrProfileFetch, fmt.Errorf("apify token not set"))
	}

	body, err := json.Marshal(runInput{
		URLs:               []string{profileURL},
		ProxyConfiguration: proxyConfiguration{UseApifyProxy: true},
	})
	if err != nil {
		return nil, errors.Join(errors.ErrProfileFetch, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.runURL(), bytes.NewReader(body))
	if err != nil {
		return nil, errors.Join(errors.ErrProfileFetch, err)
	}
	c.setHeaders(req)

	logger := log.FromContext(ctx)
	logger.Info("Starting profile scraper actor", "actor_id", c.actorID, "url", profileURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Join(errors.ErrProfileFetch, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Join(errors.ErrProfileFetch, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Join(errors.ErrProfileFetch, fmt.Errorf("bad status: %s: %s", resp.Status, apiErrorMessage(data)))
	}

	var items []datasetItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errors.Join(errors.ErrProfileFetch, fmt.Errorf("decode dataset items: %w", err))
	}
	if len(items) == 0 {
		return nil, errors.Wrap(errors.ErrProfileNotFound, "actor %s returned no data for %s", c.actorID, profileURL)
	}

	p := items[0].toProfile()
	logger.Debug("Mapped scraped profile",
		"experience_count", len(p.Experience),
		"skill_count", len(p.Skills))
	return p, nil
}

// runURL addresses the actor's run-sync-get-dataset-items endpoint. Actor IDs
// of the form "user/name" are written "user~name" in API paths.
func (c *Client) runURL() string {
	actor := strings.ReplaceAll(c.actorID, "/", "~")
	return fmt.Sprintf("%s/v2/acts/%s/run-sync-get-dataset-items", c.baseURL, url.PathEscape(actor))
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentType)
	req.Header.Set("User-Agent", userAgent)
}

// apiErrorMessage extracts {"error":{"message":...}} or falls back to the raw body.
func apiErrorMessage(data []byte) string {
	var apiErr struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

type datasetItem struct {
	FullName    string           `json:"fullName"`
	ProfileName string           `json:"profileName"`
	Headline    string           `json:"headline"`
	Summary     string           `json:"summary"`
	Experience  []experienceItem `json:"experience"`
	Skills      skillList        `json:"skills"`
}

type experienceItem struct {
	Title       string    `json:"title"`
	CompanyName string    `json:"companyName"`
	StartsAt    *datePart `json:"startsAt"`
	EndsAt      *datePart `json:"endsAt"`
}

type datePart struct {
	Year interface{} `json:"year"`
}

func (i datasetItem) toProfile() *profile.Profile {
	name := i.FullName
	if name == "" {
		name = i.ProfileName
	}
	p := &profile.Profile{
		Name:       name,
		Headline:   i.Headline,
		About:      i.Summary,
		Experience: make([]profile.Experience, 0, len(i.Experience)),
		Skills:     []string(i.Skills),
	}
	for _, exp := range i.Experience {
		p.Experience = append(p.Experience, profile.Experience{
			Title:   exp.Title,
			Company: exp.CompanyName,
			Date:    fmt.Sprintf("%s - %s", year(exp.StartsAt, ""), year(exp.EndsAt, "Present")),
		})
	}
	p.Normalize()
	return p
}

func year(d *datePart, fallback string) string {
	if d == nil || d.Year == nil {
		return fallback
	}
	switch v := d.Year.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// skillList accepts skills as plain strings or as {"name": ...} objects.
type skillList []string

func (s *skillList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// tolerate null or an unexpected shape
		*s = nil
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		var name string
		if err := json.Unmarshal(r, &name); err == nil {
			out = append(out, name)
			continue
		}
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(r, &obj); err == nil && obj.Name != "" {
			out = append(out, obj.Name)
		}
	}
	*s = out
	return nil
}
