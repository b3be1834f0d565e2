// internal/reconcile/gapfill.go
package reconcile

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/FishTankManager/GithubAquarium-Back/internal/github"
	"github.com/FishTankManager/GithubAquarium-Back/internal/model"
	"github.com/FishTankManager/GithubAquarium-Back/internal/store"
)

// fillCommitGap walks the branch's commit stream backward from its head and
// persists exactly the commits missing locally. The walk stops at the
// recorded anchor SHA, so API cost is bounded by the unsynced gap; a first
// sync (or a missing anchor row) walks the whole stream.
func (r *Reconciler) fillCommitGap(ctx context.Context, q store.Querier, repo *model.Repository) error {
	logger := r.logger.With("repo", repo.FullName, "repo_id", repo.ID)

	owner, name, ok := splitFullName(repo.FullName)
	if !ok {
		return errors.New("malformed repository full name: " + repo.FullName)
	}

	branch := repo.DefaultBranch
	if branch == "" {
		branch = "main"
	}

	head, total, err := r.source.GetBranchHead(ctx, owner, name, branch)
	if err != nil {
		return err
	}
	if head == "" {
		logger.Info("Repository is empty, nothing to sync")
		return nil
	}

	firstSync := repo.AnchorSHA == nil
	if !firstSync {
		if *repo.AnchorSHA == head && repo.StaleSince == nil {
			// Up to date. A force push can still change the total without
			// moving the head, so reconcile the denormalized count.
			if repo.CommitCount != total {
				return q.UpdateRepositoryAnchor(ctx, store.UpdateRepositoryAnchorParams{
					ID: repo.ID, AnchorSHA: head, CommitCount: total,
				})
			}
			logger.Debug("Repository is up to date")
			return nil
		}

		exists, err := q.CommitExists(ctx, repo.ID, *repo.AnchorSHA)
		if err != nil {
			return err
		}
		if !exists {
			logger.Warn("Anchor commit not found locally, falling back to full walk", "anchor", *repo.AnchorSHA)
			firstSync = true
		}
	}

	var batch []store.CreateCommitParams
	authorCache := make(map[int64]*int64)

	err = r.source.WalkCommits(ctx, owner, name, branch, func(c github.Commit) (bool, error) {
		if !firstSync && c.SHA == *repo.AnchorSHA {
			return true, nil // reached known history
		}

		authorID, err := r.resolveAuthorID(ctx, q, authorCache, c.AuthorGithubID)
		if err != nil {
			return false, err
		}

		batch = append(batch, store.CreateCommitParams{
			SHA:          c.SHA,
			RepositoryID: repo.ID,
			AuthorID:     authorID,
			Message:      c.Message,
			CommittedAt:  c.CommittedAt,
			AuthorName:   c.AuthorName,
			AuthorEmail:  c.AuthorEmail,
		})
		return false, nil
	})
	if err != nil {
		return err
	}

	if len(batch) > 0 {
		inserted, err := q.CreateCommits(ctx, batch)
		if err != nil {
			return err
		}
		logger.Info("Gap-filled commits", "walked", len(batch), "inserted", inserted)
	}

	// The walked head becomes the new anchor only now that every commit
	// behind it is persisted.
	return q.UpdateRepositoryAnchor(ctx, store.UpdateRepositoryAnchorParams{
		ID: repo.ID, AnchorSHA: head, CommitCount: total,
	})
}

// resolveAuthorID maps a GitHub account ID to a registered user ID, caching
// lookups for the duration of one walk. Unknown accounts map to nil.
func (r *Reconciler) resolveAuthorID(ctx context.Context, q store.Querier, cache map[int64]*int64, githubID *int64) (*int64, error) {
	if githubID == nil {
		return nil, nil
	}
	if cached, ok := cache[*githubID]; ok {
		return cached, nil
	}

	user, err := q.GetUserByGithubID(ctx, *githubID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		cache[*githubID] = nil
		return nil, nil
	case err != nil:
		return nil, err
	}

	id := user.ID
	cache[*githubID] = &id
	return &id, nil
}
