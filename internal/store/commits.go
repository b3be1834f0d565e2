// internal/store/commits.go
package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/FishTankManager/GithubAquarium-Back/internal/model"
)

const insertCommitSQL = `
	INSERT INTO commits (sha, repository_id, author_id, message, committed_at, author_name, author_email)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (sha) DO NOTHING`

// UpsertCommit inserts one commit by SHA. Re-applying an already-known SHA is
// a no-op; commit rows are write-once.
func (q *Queries) UpsertCommit(ctx context.Context, arg CreateCommitParams) error {
	_, err := q.db.Exec(ctx, insertCommitSQL,
		arg.SHA, arg.RepositoryID, arg.AuthorID, arg.Message, arg.CommittedAt, arg.AuthorName, arg.AuthorEmail)
	return err
}

// CreateCommits bulk-inserts commits with the same write-once semantics as
// UpsertCommit. Returns the number of rows actually inserted.
func (q *Queries) CreateCommits(ctx context.Context, arg []CreateCommitParams) (int64, error) {
	batch := &pgx.Batch{}
	for _, c := range arg {
		batch.Queue(insertCommitSQL,
			c.SHA, c.RepositoryID, c.AuthorID, c.Message, c.CommittedAt, c.AuthorName, c.AuthorEmail)
	}

	br := q.db.SendBatch(ctx, batch)
	defer br.Close()

	var inserted int64
	for range arg {
		tag, err := br.Exec()
		if err != nil {
			return inserted, err
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// CommitExists reports whether a commit row exists for the repository.
func (q *Queries) CommitExists(ctx context.Context, repositoryID int64, sha string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM commits WHERE sha = $1 AND repository_id = $2)`,
		sha, repositoryID).Scan(&exists)
	return exists, err
}

// GetCommitsByRepoID returns a repository's commits, newest first.
func (q *Queries) GetCommitsByRepoID(ctx context.Context, repositoryID int64) ([]model.Commit, error) {
	rows, err := q.db.Query(ctx, `
		SELECT sha, repository_id, author_id, message, committed_at, author_name, author_email
		FROM commits
		WHERE repository_id = $1
		ORDER BY committed_at DESC`, repositoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commits []model.Commit
	for rows.Next() {
		var c model.Commit
		if err := rows.Scan(&c.SHA, &c.RepositoryID, &c.AuthorID, &c.Message, &c.CommittedAt, &c.AuthorName, &c.AuthorEmail); err != nil {
			return nil, err
		}
		commits = append(commits, c)
	}
	return commits, rows.Err()
}

// GetTopCommitAuthors aggregates commit counts per raw author identity.
func (q *Queries) GetTopCommitAuthors(ctx context.Context, repositoryID int64, limit int32) ([]model.CommitAuthorStat, error) {
	rows, err := q.db.Query(ctx, `
		SELECT author_name, author_email, COUNT(*) AS commit_count
		FROM commits
		WHERE repository_id = $1
		GROUP BY author_name, author_email
		ORDER BY commit_count DESC
		LIMIT $2`, repositoryID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []model.CommitAuthorStat
	for rows.Next() {
		var s model.CommitAuthorStat
		if err := rows.Scan(&s.AuthorName, &s.AuthorEmail, &s.CommitCount); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
