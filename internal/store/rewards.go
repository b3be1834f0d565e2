// internal/store/rewards.go
package store

import (
	"context"

	"github.com/FishTankManager/GithubAquarium-Back/internal/model"
)

// GetOrCreateContributor returns the contributor row for the (user,
// repository) pair, creating it with a zero reward total on first
// observation. The no-op DO UPDATE lets the statement return the existing row
// on conflict.
func (q *Queries) GetOrCreateContributor(ctx context.Context, userID, repositoryID int64) (model.Contributor, error) {
	var c model.Contributor
	err := q.db.QueryRow(ctx, `
		INSERT INTO contributors (user_id, repository_id, reward_total)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id, repository_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, user_id, repository_id, reward_total`,
		userID, repositoryID).Scan(&c.ID, &c.UserID, &c.RepositoryID, &c.RewardTotal)
	return c, err
}

// UpdateContributorRewardTotal advances the settled contribution count.
func (q *Queries) UpdateContributorRewardTotal(ctx context.Context, id int64, rewardTotal int) error {
	_, err := q.db.Exec(ctx,
		`UPDATE contributors SET reward_total = $2 WHERE id = $1`, id, rewardTotal)
	return err
}

// ListRepositoryContributors returns contributors of a repository, highest
// settled totals first.
func (q *Queries) ListRepositoryContributors(ctx context.Context, repositoryID int64) ([]model.Contributor, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, user_id, repository_id, reward_total
		FROM contributors
		WHERE repository_id = $1
		ORDER BY reward_total DESC`, repositoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contributors []model.Contributor
	for rows.Next() {
		var c model.Contributor
		if err := rows.Scan(&c.ID, &c.UserID, &c.RepositoryID, &c.RewardTotal); err != nil {
			return nil, err
		}
		contributors = append(contributors, c)
	}
	return contributors, rows.Err()
}

// GetCurrencyForUpdate returns the user's wallet under an exclusive row lock,
// creating it first if the user has never earned anything. Concurrent
// settlements for the same user serialize on this lock.
func (q *Queries) GetCurrencyForUpdate(ctx context.Context, userID int64) (model.CurrencyBalance, error) {
	if _, err := q.db.Exec(ctx,
		`INSERT INTO currency_balances (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		userID); err != nil {
		return model.CurrencyBalance{}, err
	}

	var b model.CurrencyBalance
	err := q.db.QueryRow(ctx,
		`SELECT user_id, balance, total_earned, updated_at FROM currency_balances WHERE user_id = $1 FOR UPDATE`,
		userID).Scan(&b.UserID, &b.Balance, &b.TotalEarned, &b.UpdatedAt)
	return b, err
}

// CreditCurrency adds a positive amount to balance and lifetime earnings.
func (q *Queries) CreditCurrency(ctx context.Context, userID int64, amount int64) (model.CurrencyBalance, error) {
	var b model.CurrencyBalance
	err := q.db.QueryRow(ctx, `
		UPDATE currency_balances
		SET balance = balance + $2, total_earned = total_earned + $2, updated_at = now()
		WHERE user_id = $1
		RETURNING user_id, balance, total_earned, updated_at`,
		userID, amount).Scan(&b.UserID, &b.Balance, &b.TotalEarned, &b.UpdatedAt)
	return b, err
}

// GetCurrencyBalance returns the user's wallet without locking.
func (q *Queries) GetCurrencyBalance(ctx context.Context, userID int64) (model.CurrencyBalance, error) {
	var b model.CurrencyBalance
	err := q.db.QueryRow(ctx,
		`SELECT user_id, balance, total_earned, updated_at FROM currency_balances WHERE user_id = $1`,
		userID).Scan(&b.UserID, &b.Balance, &b.TotalEarned, &b.UpdatedAt)
	return b, err
}

// CreateRewardEntry appends one row to the currency audit trail.
func (q *Queries) CreateRewardEntry(ctx context.Context, arg CreateRewardEntryParams) (model.RewardEntry, error) {
	var e model.RewardEntry
	err := q.db.QueryRow(ctx, `
		INSERT INTO reward_ledger (user_id, amount, reason, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, amount, reason, description, created_at`,
		arg.UserID, arg.Amount, arg.Reason, arg.Description).
		Scan(&e.ID, &e.UserID, &e.Amount, &e.Reason, &e.Description, &e.CreatedAt)
	return e, err
}

// ListRewardEntriesByUser returns a user's ledger entries, newest first.
func (q *Queries) ListRewardEntriesByUser(ctx context.Context, userID int64, limit int32) ([]model.RewardEntry, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, user_id, amount, reason, description, created_at
		FROM reward_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.RewardEntry
	for rows.Next() {
		var e model.RewardEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Reason, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
