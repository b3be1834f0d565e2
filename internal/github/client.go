// internal/github/client.go
package github

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"

	apperrors "github.com/FishTankManager/GithubAquarium-Back/internal/errors"
	"github.com/FishTankManager/GithubAquarium-Back/internal/model"
)

// Client is a wrapper around the go-github client. It translates API types to
// internal ones and classifies failures into the pipeline's error taxonomy.
type Client struct {
	gh     *github.Client
	logger *slog.Logger
}

// NewClient creates and configures a new Client instance.
// The provided token is used to create an authenticated http.Client. A
// non-empty baseURL redirects all calls to that endpoint, for GitHub
// Enterprise deployments.
func NewClient(token, baseURL string, logger *slog.Logger) *Client {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	gh := github.NewClient(tc)
	if baseURL != "" {
		parsed, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
		if err != nil {
			logger.Error("Invalid GitHub base URL, using the default", "url", baseURL, "error", err)
		} else {
			gh.BaseURL = parsed
		}
	}

	return &Client{
		gh:     gh,
		logger: logger,
	}
}

// RepoMeta is repository metadata as reported by the API. Owner identity is
// carried as raw GitHub identifiers; mapping to a registered user is the
// caller's concern.
type RepoMeta struct {
	GithubID        int64
	OwnerGithubID   int64
	OwnerLogin      string
	Name            string
	FullName        string
	Description     *string
	HTMLURL         string
	Language        *string
	StargazersCount int
	DefaultBranch   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Commit is a commit as returned by the commit listing. AuthorGithubID is nil
// when GitHub could not associate the commit with an account.
type Commit struct {
	SHA            string
	Message        string
	AuthorName     string
	AuthorEmail    string
	AuthorGithubID *int64
	CommittedAt    time.Time
}

// GetRepoMeta fetches repository details.
func (c *Client) GetRepoMeta(ctx context.Context, owner, name string) (RepoMeta, error) {
	repo, _, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		return RepoMeta{}, classify("get repository", err)
	}
	return toRepoMeta(repo), nil
}

// GetBranchHead returns the branch's head SHA and the authoritative total
// commit count on that branch. An empty repository yields ("", 0, nil).
//
// The total is read from the pagination Link header: with one commit per page
// the last page number equals the commit count.
func (c *Client) GetBranchHead(ctx context.Context, owner, name, branch string) (string, int, error) {
	opts := &github.CommitsListOptions{
		SHA:         branch,
		ListOptions: github.ListOptions{PerPage: 1},
	}

	commits, resp, err := c.gh.Repositories.ListCommits(ctx, owner, name, opts)
	if err != nil {
		if isEmptyRepo(err) {
			return "", 0, nil
		}
		return "", 0, classify("get branch head", err)
	}
	if len(commits) == 0 {
		return "", 0, nil
	}

	total := len(commits)
	if resp.LastPage > 0 {
		total = resp.LastPage
	}
	return commits[0].GetSHA(), total, nil
}

// WalkCommits streams the branch's commits in reverse-chronological order,
// calling fn for each. The walk stops when fn returns true or the stream is
// exhausted. Pagination is handled transparently.
func (c *Client) WalkCommits(ctx context.Context, owner, name, branch string, fn func(Commit) (bool, error)) error {
	opts := &github.CommitsListOptions{
		SHA:         branch,
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		c.logger.Debug("Fetching commits page", "owner", owner, "repo", name, "page", opts.Page)

		commits, resp, err := c.gh.Repositories.ListCommits(ctx, owner, name, opts)
		if err != nil {
			if isEmptyRepo(err) {
				return nil
			}
			return classify("list commits", err)
		}

		for _, commit := range commits {
			stop, err := fn(toCommit(commit))
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}

		if resp.NextPage == 0 {
			return nil
		}
		opts.Page = resp.NextPage
	}
}

// ListContributors returns the authoritative per-contributor contribution
// totals for the repository.
func (c *Client) ListContributors(ctx context.Context, owner, name string) ([]model.ContributorStat, error) {
	var stats []model.ContributorStat

	opts := &github.ListContributorsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		contributors, resp, err := c.gh.Repositories.ListContributors(ctx, owner, name, opts)
		if err != nil {
			if isEmptyRepo(err) {
				return nil, nil
			}
			return nil, classify("list contributors", err)
		}

		for _, contrib := range contributors {
			stats = append(stats, model.ContributorStat{
				GithubID:      contrib.GetID(),
				Login:         contrib.GetLogin(),
				Contributions: contrib.GetContributions(),
			})
		}

		if resp.NextPage == 0 {
			return stats, nil
		}
		opts.Page = resp.NextPage
	}
}

// ListUserRepos returns the repositories the given GitHub login contributes
// to, most recently pushed first. "all" covers owned repositories plus
// collaborations and organization memberships, so a login-triggered sync also
// settles repositories the user does not own.
func (c *Client) ListUserRepos(ctx context.Context, login string) ([]RepoMeta, error) {
	var repos []RepoMeta

	opts := &github.RepositoryListByUserOptions{
		Type:        "all",
		Sort:        "pushed",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		page, resp, err := c.gh.Repositories.ListByUser(ctx, login, opts)
		if err != nil {
			return nil, classify("list user repositories", err)
		}

		for _, repo := range page {
			repos = append(repos, toRepoMeta(repo))
		}

		if resp.NextPage == 0 {
			return repos, nil
		}
		opts.Page = resp.NextPage
	}
}

// classify wraps an upstream error into the pipeline's taxonomy. Rate limit
// and secondary rate limit responses are distinguished from other upstream
// failures so the orchestrator can log them at a lower severity.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return &apperrors.RateLimitError{Err: err}
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		code := respErr.Response.StatusCode
		if code == http.StatusForbidden || code == http.StatusTooManyRequests {
			return &apperrors.RateLimitError{Err: err}
		}
	}

	return &apperrors.SourceAPIError{Op: op, Err: err}
}

// isEmptyRepo reports the 409 GitHub returns when listing commits of a
// repository with no history.
func isEmptyRepo(err error) bool {
	var respErr *github.ErrorResponse
	return errors.As(err, &respErr) && respErr.Response != nil &&
		respErr.Response.StatusCode == http.StatusConflict
}

// toRepoMeta translates a github.Repository object to our internal RepoMeta.
func toRepoMeta(r *github.Repository) RepoMeta {
	return RepoMeta{
		GithubID:        r.GetID(),
		OwnerGithubID:   r.GetOwner().GetID(),
		OwnerLogin:      r.GetOwner().GetLogin(),
		Name:            r.GetName(),
		FullName:        r.GetFullName(),
		Description:     r.Description,
		HTMLURL:         r.GetHTMLURL(),
		Language:        r.Language,
		StargazersCount: r.GetStargazersCount(),
		DefaultBranch:   r.GetDefaultBranch(),
		CreatedAt:       r.GetCreatedAt().Time,
		UpdatedAt:       r.GetUpdatedAt().Time,
	}
}

// toCommit translates a github.RepositoryCommit object to our internal Commit.
func toCommit(c *github.RepositoryCommit) Commit {
	commit := Commit{
		SHA:         c.GetSHA(),
		Message:     c.GetCommit().GetMessage(),
		AuthorName:  c.GetCommit().GetAuthor().GetName(),
		AuthorEmail: c.GetCommit().GetAuthor().GetEmail(),
		CommittedAt: c.GetCommit().GetAuthor().GetDate().Time,
	}
	if c.Author != nil {
		id := c.Author.GetID()
		commit.AuthorGithubID = &id
	}
	return commit
}
