package apify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lexlapax/careercoach/pkg/errors"
	"github.com/lexlapax/careercoach/pkg/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]interface{}
}

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Method = r.Method
		captured.Path = r.URL.Path
		captured.Auth = r.Header.Get("Authorization")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &captured.Body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, captured
}

const sampleDataset = `[{
	"fullName": "Jane Doe",
	"profileName": "jane-doe",
	"headline": "Senior Engineer at Acme",
	"summary": "Builds distributed systems.",
	"experience": [
		{"title": "Senior Engineer", "companyName": "Acme", "startsAt": {"year": 2020}},
		{"title": "Engineer", "companyName": "Initech", "startsAt": {"year": 2016}, "endsAt": {"year": 2020}}
	],
	"skills": ["Go", {"name": "Kubernetes"}, "go", {"name": ""}]
}]`

func TestFetch(t *testing.T) {
	server, captured := newTestServer(t, http.StatusOK, sampleDataset)
	client := New(Config{Token: "apify-token", BaseURL: server.URL})

	p, err := client.Fetch(context.Background(), "https://www.linkedin.com/in/jane-doe")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, "/v2/acts/simpleapi~linkedin-profile-scraper/run-sync-get-dataset-items", captured.Path)
	assert.Equal(t, "Bearer apify-token", captured.Auth)
	assert.Equal(t, []interface{}{"https://www.linkedin.com/in/jane-doe"}, captured.Body["urls"])
	assert.Equal(t, map[string]interface{}{"useApifyProxy": true}, captured.Body["proxyConfiguration"])

	assert.Equal(t, &profile.Profile{
		Name:     "Jane Doe",
		Headline: "Senior Engineer at Acme",
		About:    "Builds distributed systems.",
		Experience: []profile.Experience{
			{Title: "Senior Engineer", Company: "Acme", Date: "2020 - Present"},
			{Title: "Engineer", Company: "Initech", Date: "2016 - 2020"},
		},
		Skills: []string{"Go", "Kubernetes"},
	}, p)
}

func TestFetchFallsBackToProfileName(t *testing.T) {
	server, _ := newTestServer(t, http.StatusOK, `[{"profileName": "jdoe", "experience": [{"title": "Intern"}], "skills": null}]`)
	client := New(Config{Token: "t", BaseURL: server.URL})

	p, err := client.Fetch(context.Background(), "https://example.com/in/jdoe")
	require.NoError(t, err)
	assert.Equal(t, "jdoe", p.Name)
	assert.Equal(t, []profile.Experience{{Title: "Intern", Date: " - Present"}}, p.Experience)
	assert.Empty(t, p.Skills)
}

func TestFetchErrors(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		client := New(Config{})
		_, err := client.Fetch(context.Background(), "https://example.com/in/x")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrProfileFetch))
	})

	t.Run("empty dataset", func(t *testing.T) {
		server, _ := newTestServer(t, http.StatusOK, `[]`)
		client := New(Config{Token: "t", BaseURL: server.URL})
		_, err := client.Fetch(context.Background(), "https://example.com/in/x")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrProfileNotFound))
	})

	t.Run("bad status", func(t *testing.T) {
		server, _ := newTestServer(t, http.StatusPaymentRequired,
			`{"error":{"type":"not-enough-usage","message":"Monthly usage hard limit exceeded"}}`)
		client := New(Config{Token: "t", BaseURL: server.URL})
		_, err := client.Fetch(context.Background(), "https://example.com/in/x")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrProfileFetch))
		assert.Contains(t, err.Error(), "Monthly usage hard limit exceeded")
	})

	t.Run("malformed body", func(t *testing.T) {
		server, _ := newTestServer(t, http.StatusOK, `{"not":"a list"}`)
		client := New(Config{Token: "t", BaseURL: server.URL})
		_, err := client.Fetch(context.Background(), "https://example.com/in/x")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrProfileFetch))
	})

	t.Run("cancelled context", func(t *testing.T) {
		server, _ := newTestServer(t, http.StatusOK, sampleDataset)
		client := New(Config{Token: "t", BaseURL: server.URL})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := client.Fetch(ctx, "https://example.com/in/x")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrProfileFetch))
	})
}

func TestRunURLCustomActor(t *testing.T) {
	client := New(Config{Token: "t", ActorID: "me/my-scraper", BaseURL: "https://proxy.local/"})
	assert.Equal(t, "https://proxy.local/v2/acts/me~my-scraper/run-sync-get-dataset-items", client.runURL())
}
