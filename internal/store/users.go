// internal/store/users.go
package store

import (
	"context"

	"github.com/FishTankManager/GithubAquarium-Back/internal/model"
)

const userColumns = `id, github_id, username, github_username, email, avatar_url`

func scanUser(row interface{ Scan(dest ...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.GithubID, &u.Username, &u.GithubUsername, &u.Email, &u.AvatarURL)
	return u, err
}

// GetUserByGithubID returns the registered user with the given GitHub account ID.
func (q *Queries) GetUserByGithubID(ctx context.Context, githubID int64) (model.User, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = $1`, githubID)
	return scanUser(row)
}

// GetUserByGithubUsername returns the registered user with the given GitHub login.
func (q *Queries) GetUserByGithubUsername(ctx context.Context, username string) (model.User, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_username = $1`, username)
	return scanUser(row)
}

// GetUserByEmail returns the registered user with the given email address.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := q.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// ListUsersByGithubIDs returns the registered users among the given GitHub
// account IDs. IDs with no matching user are silently absent from the result.
func (q *Queries) ListUsersByGithubIDs(ctx context.Context, githubIDs []int64) ([]model.User, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ANY($1)`, githubIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
