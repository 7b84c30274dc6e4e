// Package jira implements the issue-tracker collaborator over the Jira
// REST v2 API: listing versions, counting associated issues, and executing
// create/rename/archive/delete decisions. Retries, DNS caching and circuit
// breaking live here; the lifecycle engine sees only errors.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/jackalski/jira-version-manager/internal/core"
)

const dateLayout = "2006-01-02"

// Client talks to one Jira instance. It implements core.Tracker.
type Client struct {
	httpClient *http.Client
	endpoints  endpoints
	token      string
	userAgent  string
	maxRetries int
	baseDelay  time.Duration
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(j *Client) {
		j.httpClient = c
	}
}

// WithMaxRetries sets the maximum retry attempts per call.
func WithMaxRetries(n int) Option {
	return func(j *Client) {
		j.maxRetries = n
	}
}

// WithBaseDelay sets the base delay for exponential backoff between retries.
func WithBaseDelay(d time.Duration) Option {
	return func(j *Client) {
		j.baseDelay = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(j *Client) {
		j.userAgent = ua
	}
}

// WithLogger sets the request logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(j *Client) {
		j.logger = l
	}
}

// NewClient creates a client for the Jira instance at baseURL,
// authenticating with a bearer token.
func NewClient(baseURL, token string, opts ...Option) *Client {
	j := &Client{
		httpClient: newHTTPClient(),
		endpoints:  newEndpoints(baseURL),
		token:      token,
		userAgent:  "jira-version-manager/1.0",
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// versionResource is the wire form of a Jira version.
type versionResource struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Project     string `json:"project,omitempty"`
	Released    bool   `json:"released"`
	Archived    bool   `json:"archived,omitempty"`
	Description string `json:"description,omitempty"`
	ReleaseDate string `json:"releaseDate,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
}

func (v versionResource) record() core.VersionRecord {
	rec := core.VersionRecord{
		ID:          v.ID,
		Name:        v.Name,
		Released:    v.Released,
		Archived:    v.Archived,
		Description: v.Description,
	}
	if t, err := time.Parse(dateLayout, v.ReleaseDate); err == nil {
		rec.ReleaseDate = t
	}
	if t, err := time.Parse(dateLayout, v.StartDate); err == nil {
		rec.StartDate = t
	}
	return rec
}

// ListVersions returns all versions of a project.
func (j *Client) ListVersions(ctx context.Context, projectKey string) ([]core.VersionRecord, error) {
	var resources []versionResource
	if err := j.do(ctx, http.MethodGet, j.endpoints.ProjectVersions(projectKey), nil, &resources); err != nil {
		return nil, errors.Wrapf(err, "listing versions of %s", projectKey)
	}
	records := make([]core.VersionRecord, len(resources))
	for i, r := range resources {
		records[i] = r.record()
	}
	return records, nil
}

// IssueCount returns the number of issues fixed in a version.
func (j *Client) IssueCount(ctx context.Context, projectKey, versionName string, issueTypes []string) (int, error) {
	var result struct {
		Total int `json:"total"`
	}
	url := j.endpoints.Search(jqlForVersion(projectKey, versionName, issueTypes))
	if err := j.do(ctx, http.MethodGet, url, nil, &result); err != nil {
		return 0, errors.Wrapf(err, "counting issues for %s %q", projectKey, versionName)
	}
	return result.Total, nil
}

// CreateVersion creates an unreleased version. releaseDate may be zero.
func (j *Client) CreateVersion(ctx context.Context, projectKey, name string, releaseDate time.Time) (core.VersionRecord, error) {
	payload := versionResource{
		Name:     name,
		Project:  projectKey,
		Released: false,
	}
	if !releaseDate.IsZero() {
		payload.ReleaseDate = releaseDate.Format(dateLayout)
	}
	var created versionResource
	if err := j.do(ctx, http.MethodPost, j.endpoints.Versions(), payload, &created); err != nil {
		var apiErr *core.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
			// Jira reports a taken name as a 400 validation error.
			return core.VersionRecord{}, errors.Wrapf(core.ErrAlreadyExists, "creating %q in %s", name, projectKey)
		}
		return core.VersionRecord{}, errors.Wrapf(err, "creating %q in %s", name, projectKey)
	}
	return created.record(), nil
}

// RenameVersion changes a version's name.
func (j *Client) RenameVersion(ctx context.Context, id, newName string) error {
	payload := map[string]string{"name": newName}
	if err := j.do(ctx, http.MethodPut, j.endpoints.Version(id), payload, nil); err != nil {
		return errors.Wrapf(err, "renaming version %s", id)
	}
	return nil
}

// SetArchived marks a version archived and replaces its description.
func (j *Client) SetArchived(ctx context.Context, id, description string) error {
	payload := map[string]any{"archived": true, "description": description}
	if err := j.do(ctx, http.MethodPut, j.endpoints.Version(id), payload, nil); err != nil {
		return errors.Wrapf(err, "archiving version %s", id)
	}
	return nil
}

// DeleteVersion removes a version, optionally moving its fix-version issues.
func (j *Client) DeleteVersion(ctx context.Context, id, moveIssuesTo string) error {
	url := j.endpoints.Version(id)
	if moveIssuesTo != "" {
		url += "?moveFixIssuesTo=" + moveIssuesTo
	}
	if err := j.do(ctx, http.MethodDelete, url, nil, nil); err != nil {
		return errors.Wrapf(err, "deleting version %s", id)
	}
	return nil
}

// do issues one API call with retries. Rate limits and server errors retry
// with exponential backoff and jitter; client errors surface immediately.
func (j *Client) do(ctx context.Context, method, url string, body, out any) error {
	var lastErr error

	for attempt := 0; attempt <= j.maxRetries; attempt++ {
		if attempt > 0 {
			delay := j.baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			delay += time.Duration(float64(delay) * (rand.Float64() * 0.1))
			var apiErr *core.APIError
			if errors.As(lastErr, &apiErr) && apiErr.RetryAfter > 0 {
				delay = time.Duration(apiErr.RetryAfter) * time.Second
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := j.doOnce(ctx, method, url, body, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, core.ErrRateLimited) || errors.Is(err, core.ErrUpstreamDown) {
			j.logger.Debug("retrying tracker call",
				zap.String("method", method),
				zap.String("url", url),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			continue
		}
		return err
	}

	return lastErr
}

func (j *Client) doOnce(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	req.Header.Set("Authorization", "Bearer "+j.token)
	req.Header.Set("User-Agent", j.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "calling tracker")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &core.APIError{
			StatusCode: resp.StatusCode,
			URL:        url,
			Body:       string(snippet),
			RetryAfter: retryAfter(resp),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decoding response")
	}
	return nil
}

var _ core.Tracker = (*Client)(nil)

// retryAfter parses a Retry-After header value in seconds. Zero when absent
// or malformed.
func retryAfter(resp *http.Response) int {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}
