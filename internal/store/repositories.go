// internal/store/repositories.go
package store

import (
	"context"
	"time"

	"github.com/FishTankManager/GithubAquarium-Back/internal/model"
)

const repoColumns = `id, github_id, owner_user_id, name, full_name, description, html_url,
	language, stargazers_count, default_branch, anchor_sha, stale_since, commit_count,
	repo_created_at, repo_updated_at, last_synced_at`

func scanRepository(row interface{ Scan(dest ...any) error }) (model.Repository, error) {
	var r model.Repository
	err := row.Scan(
		&r.ID, &r.GithubID, &r.OwnerUserID, &r.Name, &r.FullName, &r.Description, &r.HTMLURL,
		&r.Language, &r.StargazersCount, &r.DefaultBranch, &r.AnchorSHA, &r.StaleSince, &r.CommitCount,
		&r.RepoCreatedAt, &r.RepoUpdatedAt, &r.LastSyncedAt,
	)
	return r, err
}

// UpsertRepository inserts or refreshes a repository by its GitHub ID.
// Metadata columns are always overwritten; anchor_sha, stale_since and
// commit_count are preserved across upserts.
func (q *Queries) UpsertRepository(ctx context.Context, arg UpsertRepositoryParams) (model.Repository, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO repositories (
			github_id, owner_user_id, name, full_name, description, html_url,
			language, stargazers_count, default_branch, repo_created_at, repo_updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (github_id) DO UPDATE SET
			owner_user_id    = EXCLUDED.owner_user_id,
			name             = EXCLUDED.name,
			full_name        = EXCLUDED.full_name,
			description      = EXCLUDED.description,
			html_url         = EXCLUDED.html_url,
			language         = EXCLUDED.language,
			stargazers_count = EXCLUDED.stargazers_count,
			default_branch   = EXCLUDED.default_branch,
			repo_created_at  = EXCLUDED.repo_created_at,
			repo_updated_at  = EXCLUDED.repo_updated_at
		RETURNING `+repoColumns,
		arg.GithubID, arg.OwnerUserID, arg.Name, arg.FullName, arg.Description, arg.HTMLURL,
		arg.Language, arg.StargazersCount, arg.DefaultBranch, arg.RepoCreatedAt, arg.RepoUpdatedAt,
	)
	return scanRepository(row)
}

// GetRepositoryByGithubID returns the repository with the given GitHub ID.
func (q *Queries) GetRepositoryByGithubID(ctx context.Context, githubID int64) (model.Repository, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+repoColumns+` FROM repositories WHERE github_id = $1`, githubID)
	return scanRepository(row)
}

// GetRepositoryByFullName returns the repository with the given "owner/name".
func (q *Queries) GetRepositoryByFullName(ctx context.Context, fullName string) (model.Repository, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+repoColumns+` FROM repositories WHERE full_name = $1`, fullName)
	return scanRepository(row)
}

// GetRepositoryForUpdate re-reads a repository row under an exclusive row
// lock. Serializes concurrent reconciliations of the same repository.
func (q *Queries) GetRepositoryForUpdate(ctx context.Context, id int64) (model.Repository, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+repoColumns+` FROM repositories WHERE id = $1 FOR UPDATE`, id)
	return scanRepository(row)
}

// ListStaleRepositories returns repositories whose staleness marker is set,
// oldest markers first.
func (q *Queries) ListStaleRepositories(ctx context.Context, limit int32) ([]model.Repository, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+repoColumns+` FROM repositories
		 WHERE stale_since IS NOT NULL
		 ORDER BY stale_since ASC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var repos []model.Repository
	for rows.Next() {
		r, err := scanRepository(rows)
		if err != nil {
			return nil, err
		}
		repos = append(repos, r)
	}
	return repos, rows.Err()
}

// MarkRepositoryStale raises the staleness marker. The marker records the
// oldest unresolved staleness: a null marker takes the given time, an existing
// marker is only moved further into the past, never forward.
func (q *Queries) MarkRepositoryStale(ctx context.Context, id int64, at time.Time) error {
	_, err := q.db.Exec(ctx,
		`UPDATE repositories SET stale_since = LEAST(COALESCE(stale_since, $2), $2) WHERE id = $1`,
		id, at)
	return err
}

// ClearRepositoryStale resets the staleness marker. Callers must hold the row
// lock and have verified the marker predates the sync they just completed.
func (q *Queries) ClearRepositoryStale(ctx context.Context, id int64) error {
	_, err := q.db.Exec(ctx,
		`UPDATE repositories SET stale_since = NULL WHERE id = $1`, id)
	return err
}

// UpdateRepositoryAnchor records a completed gap-fill: the new anchor SHA, the
// authoritative total commit count, and the sync time.
func (q *Queries) UpdateRepositoryAnchor(ctx context.Context, arg UpdateRepositoryAnchorParams) error {
	_, err := q.db.Exec(ctx,
		`UPDATE repositories SET anchor_sha = $2, commit_count = $3, last_synced_at = now() WHERE id = $1`,
		arg.ID, arg.AnchorSHA, arg.CommitCount)
	return err
}

// UpdateRepositoryStargazers updates the star count (star webhook events).
func (q *Queries) UpdateRepositoryStargazers(ctx context.Context, id int64, count int) error {
	_, err := q.db.Exec(ctx,
		`UPDATE repositories SET stargazers_count = $2 WHERE id = $1`, id, count)
	return err
}
