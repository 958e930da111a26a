// Package github implements the tracker contract for the GitHub REST API v3.
//
// Only the operations the sync engine needs are wrapped: listing issues,
// listing pull requests, creating issues, and updating issues. The client
// is deliberately thin; it owns authentication, pagination, and mapping
// API errors onto the tracker error taxonomy.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/fovi-llc/radsync/internal/tracker"
)

// DefaultBaseURL is the public GitHub API endpoint.
const DefaultBaseURL = "https://api.github.com"

// perPage is the page size used for list requests.
const perPage = 100

// Client talks to the GitHub REST API for a single repository.
type Client struct {
	// baseURL is the API root, overridable for tests and GHE
	baseURL string

	// token is the personal access token
	token string

	// repo is the repository in "owner/name" form
	repo string

	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (tests, GitHub Enterprise).
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for the given repository ("owner/name").
func New(token, repo string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		token:      token,
		repo:       repo,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Repo returns the configured "owner/name" repository.
func (c *Client) Repo() string {
	return c.repo
}

// apiIssue is the wire shape of a GitHub issue. Pull requests appear in
// the issues listing too, distinguished by the pull_request field.
type apiIssue struct {
	ID        int64      `json:"id"`
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	State     string     `json:"state"`
	HTMLURL   string     `json:"html_url"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	User      apiUser    `json:"user"`
	Labels    []apiLabel `json:"labels"`

	// PullRequest is non-nil when the "issue" is actually a PR
	PullRequest *struct{} `json:"pull_request,omitempty"`
}

type apiUser struct {
	Login string `json:"login"`
}

type apiLabel struct {
	Name string `json:"name"`
}

// apiPull is the wire shape of a GitHub pull request.
type apiPull struct {
	ID        int64      `json:"id"`
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	State     string     `json:"state"`
	HTMLURL   string     `json:"html_url"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	MergedAt  *time.Time `json:"merged_at"`
	User      apiUser    `json:"user"`
	Base      apiRef     `json:"base"`
	Head      apiRef     `json:"head"`
}

type apiRef struct {
	Ref string `json:"ref"`
}

// ListIssues returns all issues in the repository, newest first per the
// API default. Pull requests are filtered out (the issues endpoint
// includes them).
func (c *Client) ListIssues(ctx context.Context) ([]tracker.Issue, error) {
	var issues []tracker.Issue

	for page := 1; ; page++ {
		var batch []apiIssue
		path := fmt.Sprintf("/repos/%s/issues?state=all&per_page=%d&page=%d", c.repo, perPage, page)
		if err := c.get(ctx, path, &batch); err != nil {
			return nil, err
		}

		for _, it := range batch {
			if it.PullRequest != nil {
				continue
			}
			issues = append(issues, issueFromAPI(it))
		}

		if len(batch) < perPage {
			break
		}
	}

	return issues, nil
}

// ListPatches returns all pull requests in the repository.
func (c *Client) ListPatches(ctx context.Context) ([]tracker.Patch, error) {
	var patches []tracker.Patch

	for page := 1; ; page++ {
		var batch []apiPull
		path := fmt.Sprintf("/repos/%s/pulls?state=all&per_page=%d&page=%d", c.repo, perPage, page)
		if err := c.get(ctx, path, &batch); err != nil {
			return nil, err
		}

		for _, pr := range batch {
			patches = append(patches, patchFromAPI(pr))
		}

		if len(batch) < perPage {
			break
		}
	}

	return patches, nil
}

// CreateIssue creates a new issue and returns its descriptor.
func (c *Client) CreateIssue(ctx context.Context, in tracker.NewIssue) (tracker.Issue, error) {
	payload := struct {
		Title  string   `json:"title"`
		Body   string   `json:"body"`
		Labels []string `json:"labels"`
	}{
		Title:  in.Title,
		Body:   in.Body,
		Labels: in.Labels,
	}
	if payload.Labels == nil {
		payload.Labels = []string{}
	}

	var created apiIssue
	path := fmt.Sprintf("/repos/%s/issues", c.repo)
	if err := c.do(ctx, http.MethodPost, path, payload, &created); err != nil {
		return tracker.Issue{}, err
	}

	return issueFromAPI(created), nil
}

// UpdateIssueFields selects which issue fields UpdateIssue changes.
// Nil fields are left untouched.
type UpdateIssueFields struct {
	Title  *string
	Body   *string
	State  *string
	Labels []string
}

// UpdateIssue patches an existing issue identified by its display number.
func (c *Client) UpdateIssue(ctx context.Context, number int, fields UpdateIssueFields) (tracker.Issue, error) {
	payload := map[string]any{}
	if fields.Title != nil {
		payload["title"] = *fields.Title
	}
	if fields.Body != nil {
		payload["body"] = *fields.Body
	}
	if fields.State != nil {
		payload["state"] = *fields.State
	}
	if fields.Labels != nil {
		payload["labels"] = fields.Labels
	}

	var updated apiIssue
	path := fmt.Sprintf("/repos/%s/issues/%d", c.repo, number)
	if err := c.do(ctx, http.MethodPatch, path, payload, &updated); err != nil {
		return tracker.Issue{}, err
	}

	return issueFromAPI(updated), nil
}

// get issues a GET request and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// do issues a request with the standard headers and maps HTTP error
// statuses onto the tracker error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", tracker.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", tracker.ErrParse, err)
	}
	return nil
}

// checkStatus maps non-2xx responses onto sentinel errors.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: HTTP 401", tracker.ErrUnauthorized)
	case http.StatusForbidden:
		// GitHub signals rate limiting with 403 and a zeroed remaining header
		if resp.Header.Get("X-Ratelimit-Remaining") == "0" {
			return fmt.Errorf("%w: resets at %s", tracker.ErrRateLimited,
				resp.Header.Get("X-Ratelimit-Reset"))
		}
		return fmt.Errorf("%w: HTTP 403", tracker.ErrUnauthorized)
	case http.StatusNotFound:
		return fmt.Errorf("%w: HTTP 404", tracker.ErrNotFound)
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("github: unexpected HTTP %d: %s", resp.StatusCode, msg)
}

// issueFromAPI maps a wire issue onto the tracker record.
func issueFromAPI(it apiIssue) tracker.Issue {
	labels := make([]string, 0, len(it.Labels))
	for _, l := range it.Labels {
		labels = append(labels, l.Name)
	}

	return tracker.Issue{
		ID:        strconv.FormatInt(it.ID, 10),
		Number:    it.Number,
		Title:     it.Title,
		Body:      it.Body,
		Author:    it.User.Login,
		Labels:    labels,
		URL:       it.HTMLURL,
		CreatedAt: it.CreatedAt,
		UpdatedAt: it.UpdatedAt,
	}
}

// patchFromAPI maps a wire pull request onto the tracker record.
// GitHub reports merged PRs as state=closed with merged_at set.
func patchFromAPI(pr apiPull) tracker.Patch {
	state := tracker.State(pr.State)
	if pr.MergedAt != nil {
		state = tracker.StateMerged
	}

	return tracker.Patch{
		ID:         strconv.FormatInt(pr.ID, 10),
		Number:     pr.Number,
		Title:      pr.Title,
		Body:       pr.Body,
		Author:     pr.User.Login,
		State:      state,
		BaseBranch: pr.Base.Ref,
		HeadBranch: pr.Head.Ref,
		URL:        pr.HTMLURL,
		CreatedAt:  pr.CreatedAt,
		UpdatedAt:  pr.UpdatedAt,
	}
}
