// internal/ingest/processor.go

// Package ingest processes webhook events. Ingest is deliberately
// non-authoritative: it persists commit descriptors and raises the staleness
// marker, but never touches contributor totals or rewards — push payloads can
// be partial, reordered, or truncated, so only pull-based reconciliation
// settles rewards.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/FishTankManager/GithubAquarium-Back/internal/model"
	"github.com/FishTankManager/GithubAquarium-Back/internal/store"
)

// Processor applies webhook events to local storage. It performs no external
// network calls.
type Processor struct {
	q      store.Querier
	logger *slog.Logger
	now    func() time.Time
}

// NewProcessor creates a Processor over the given query surface.
func NewProcessor(q store.Querier, logger *slog.Logger) *Processor {
	return &Processor{q: q, logger: logger, now: time.Now}
}

// ProcessPush handles a verified push event. Events targeting anything but
// the repository's default branch are accepted and ignored: activity on side
// branches must never raise staleness, create commits, or trigger rewards.
func (p *Processor) ProcessPush(ctx context.Context, ev PushEvent) error {
	branch := BranchFromRef(ev.Ref)
	logger := p.logger.With("repo", ev.Repository.FullName, "branch", branch)

	defaultBranch, err := p.defaultBranchFor(ctx, ev.Repository)
	if err != nil {
		return err
	}
	if !branchAllowed(branch, defaultBranch) {
		logger.Debug("Ignoring push to non-default branch")
		return nil
	}

	repo, err := p.upsertRepository(ctx, ev.Repository)
	if err != nil {
		return err
	}

	staleAt := ev.Repository.PushedAt.Time
	if staleAt.IsZero() {
		staleAt = p.now()
	}
	if err := p.q.MarkRepositoryStale(ctx, repo.ID, staleAt); err != nil {
		return err
	}

	for _, commit := range ev.Commits {
		authorID, err := p.resolveAuthor(ctx, commit.Author)
		if err != nil {
			return err
		}

		err = p.q.UpsertCommit(ctx, store.CreateCommitParams{
			SHA:          commit.SHA,
			RepositoryID: repo.ID,
			AuthorID:     authorID,
			Message:      commit.Message,
			CommittedAt:  commit.Timestamp.Time,
			AuthorName:   commit.Author.Name,
			AuthorEmail:  commit.Author.Email,
		})
		if err != nil {
			return err
		}

		// Ensure the contributor row exists so reconciliation observes the
		// pair; its reward total stays untouched here.
		if authorID != nil {
			if _, err := p.q.GetOrCreateContributor(ctx, *authorID, repo.ID); err != nil {
				return err
			}
		}
	}

	logger.Info("Processed push event", "commits", len(ev.Commits), "stale_since", staleAt)
	return nil
}

// ProcessStar handles a star event by refreshing the stargazer count.
func (p *Processor) ProcessStar(ctx context.Context, ev StarEvent) error {
	repo, err := p.q.GetRepositoryByGithubID(ctx, ev.Repository.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		repo, err = p.upsertRepository(ctx, ev.Repository)
	}
	if err != nil {
		return err
	}

	if err := p.q.UpdateRepositoryStargazers(ctx, repo.ID, ev.Repository.StargazersCount); err != nil {
		return err
	}
	p.logger.Info("Updated star count", "repo", ev.Repository.FullName, "stars", ev.Repository.StargazersCount)
	return nil
}

// defaultBranchFor returns the branch pushes must target: the recorded
// default branch when the repository is known locally, otherwise the one the
// payload declares. Empty means unset; branchAllowed falls back to
// main/master in that case.
func (p *Processor) defaultBranchFor(ctx context.Context, payload RepoPayload) (string, error) {
	repo, err := p.q.GetRepositoryByGithubID(ctx, payload.ID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return payload.DefaultBranch, nil
	case err != nil:
		return "", err
	case repo.DefaultBranch != "":
		return repo.DefaultBranch, nil
	default:
		return payload.DefaultBranch, nil
	}
}

func branchAllowed(branch, defaultBranch string) bool {
	if defaultBranch != "" {
		return branch == defaultBranch
	}
	return branch == "main" || branch == "master"
}

func (p *Processor) upsertRepository(ctx context.Context, payload RepoPayload) (model.Repository, error) {
	var ownerID *int64
	owner, err := p.q.GetUserByGithubID(ctx, payload.Owner.ID)
	switch {
	case err == nil:
		ownerID = &owner.ID
	case !errors.Is(err, pgx.ErrNoRows):
		return model.Repository{}, err
	}

	return p.q.UpsertRepository(ctx, store.UpsertRepositoryParams{
		GithubID:        payload.ID,
		OwnerUserID:     ownerID,
		Name:            payload.Name,
		FullName:        payload.FullName,
		Description:     payload.Description,
		HTMLURL:         payload.HTMLURL,
		Language:        payload.Language,
		StargazersCount: payload.StargazersCount,
		DefaultBranch:   payload.DefaultBranch,
		RepoCreatedAt:   payload.CreatedAt.Time,
		RepoUpdatedAt:   payload.UpdatedAt.Time,
	})
}

// resolveAuthor maps a commit author to a registered user: exact login match
// first, then email. No match is a valid outcome — the commit is stored with
// its raw author fields and a null author reference.
func (p *Processor) resolveAuthor(ctx context.Context, author CommitAuthorPayload) (*int64, error) {
	if author.Username != "" {
		user, err := p.q.GetUserByGithubUsername(ctx, author.Username)
		if err == nil {
			return &user.ID, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}

	if author.Email != "" {
		user, err := p.q.GetUserByEmail(ctx, author.Email)
		if err == nil {
			return &user.ID, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}

	return nil, nil
}
