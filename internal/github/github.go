package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	gh "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// ErrNoToken is returned when no GitHub token is configured.
var ErrNoToken = errors.New("GITHUB_TOKEN or AGENT_GITHUB_TOKEN environment variable is not set")

// Client provides access to the GitHub REST API.
type Client struct {
	gh *gh.Client
}

// Token returns the GitHub token from the environment.
func Token() string {
	if t := os.Getenv("GITHUB_TOKEN"); t != "" {
		return t
	}
	return os.Getenv("AGENT_GITHUB_TOKEN")
}

// NewClient creates a client authenticated with Token. GITHUB_API_URL
// selects a GitHub Enterprise server.
func NewClient(ctx context.Context) (*Client, error) {
	token := Token()
	if token == "" {
		return nil, ErrNoToken
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return newClient(oauth2.NewClient(ctx, ts), os.Getenv("GITHUB_API_URL"))
}

func newClient(httpClient *http.Client, apiURL string) (*Client, error) {
	c := gh.NewClient(httpClient)
	if apiURL != "" {
		u, err := url.Parse(strings.TrimRight(apiURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GITHUB_API_URL: %w", err)
		}
		c.BaseURL = u
	}
	return &Client{gh: c}, nil
}

// CreateComment posts body on pull request pr and returns the comment URL.
func (c *Client) CreateComment(ctx context.Context, owner, repo string, pr int, body string) (string, error) {
	created, _, err := c.gh.Issues.CreateComment(ctx, owner, repo, pr, &gh.IssueComment{Body: &body})
	if err != nil {
		return "", fmt.Errorf("creating comment on %s/%s#%d: %w", owner, repo, pr, err)
	}
	return created.GetHTMLURL(), nil
}

// SplitRepo splits "owner/name".
func SplitRepo(s string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid repository %q: expected owner/name", s)
	}
	return owner, repo, nil
}

// RepoFromEnv reads GITHUB_REPOSITORY. ok is false when it is unset.
func RepoFromEnv() (owner, repo string, ok bool, err error) {
	v := os.Getenv("GITHUB_REPOSITORY")
	if v == "" {
		return "", "", false, nil
	}
	owner, repo, err = SplitRepo(v)
	return owner, repo, err == nil, err
}

// event is the part of a workflow event payload that names a pull request.
type event struct {
	Number      int `json:"number"`
	PullRequest *struct {
		Number int `json:"number"`
	} `json:"pull_request"`
	Issue *struct {
		Number      int       `json:"number"`
		PullRequest *struct{} `json:"pull_request"`
	} `json:"issue"`
}

// PRNumberFromEvent returns the pull-request number of the workflow event
// payload at path, or 0 when the event is not about a pull request.
func PRNumberFromEvent(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading event payload: %w", err)
	}
	var ev event
	if err := json.Unmarshal(data, &ev); err != nil {
		return 0, fmt.Errorf("parsing event payload: %w", err)
	}
	switch {
	case ev.PullRequest != nil && ev.PullRequest.Number > 0:
		return ev.PullRequest.Number, nil
	case ev.Issue != nil && ev.Issue.PullRequest != nil:
		return ev.Issue.Number, nil
	default:
		return 0, nil
	}
}

// PRNumberFromEnv reads the pull-request number of GITHUB_EVENT_PATH, or 0
// when unset.
func PRNumberFromEnv() (int, error) {
	path := os.Getenv("GITHUB_EVENT_PATH")
	if path == "" {
		return 0, nil
	}
	return PRNumberFromEvent(path)
}

var (
	httpsRemoteRe = regexp.MustCompile(`https?://(?:[^@/]+@)?[^/]+/([^/]+)/([^/\s]+)`)
	sshRemoteRe   = regexp.MustCompile(`[^@]+@[^:]+:([^/]+)/([^/\s]+)`)
)

// ParseRemoteURL extracts owner/repo from a git remote URL.
func ParseRemoteURL(url string) (owner, repo string, err error) {
	url = strings.TrimSuffix(strings.TrimSpace(url), ".git")

	if m := httpsRemoteRe.FindStringSubmatch(url); len(m) == 3 {
		return m[1], m[2], nil
	}
	if m := sshRemoteRe.FindStringSubmatch(url); len(m) == 3 {
		return m[1], m[2], nil
	}
	return "", "", fmt.Errorf("cannot parse owner/repo from remote URL: %s", url)
}
