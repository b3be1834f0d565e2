// internal/reconcile/settlement.go
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/FishTankManager/GithubAquarium-Back/internal/model"
	"github.com/FishTankManager/GithubAquarium-Back/internal/store"
)

// settleContributors compares the source API's authoritative per-contributor
// totals against the last settled totals and issues rewards for positive
// deltas. Only contributors who are registered users participate.
func (r *Reconciler) settleContributors(ctx context.Context, q store.Querier, repo *model.Repository) error {
	owner, name, ok := splitFullName(repo.FullName)
	if !ok {
		return errors.New("malformed repository full name: " + repo.FullName)
	}

	stats, err := r.source.ListContributors(ctx, owner, name)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		return nil
	}

	githubIDs := make([]int64, 0, len(stats))
	for _, stat := range stats {
		githubIDs = append(githubIDs, stat.GithubID)
	}
	users, err := q.ListUsersByGithubIDs(ctx, githubIDs)
	if err != nil {
		return err
	}
	usersByGithubID := make(map[int64]model.User, len(users))
	for _, u := range users {
		usersByGithubID[u.GithubID] = u
	}

	for _, stat := range stats {
		user, registered := usersByGithubID[stat.GithubID]
		if !registered {
			continue
		}
		if err := r.settleOne(ctx, q, repo, user, stat.Contributions); err != nil {
			return err
		}
	}
	return nil
}

// settleOne settles a single contributor: credit the wallet for a positive
// delta (balance, lifetime total and one ledger entry move together), adopt a
// shrunken total without clawback, then recompute the fish.
func (r *Reconciler) settleOne(ctx context.Context, q store.Querier, repo *model.Repository, user model.User, authoritativeTotal int) error {
	contributor, err := q.GetOrCreateContributor(ctx, user.ID, repo.ID)
	if err != nil {
		return err
	}

	delta := authoritativeTotal - contributor.RewardTotal
	if delta > 0 {
		reward := int64(delta) * r.rewardRate

		// Lock the wallet row first: settlements for the same user running
		// against other repositories serialize here.
		if _, err := q.GetCurrencyForUpdate(ctx, user.ID); err != nil {
			return err
		}
		if _, err := q.CreditCurrency(ctx, user.ID, reward); err != nil {
			return err
		}
		if _, err := q.CreateRewardEntry(ctx, store.CreateRewardEntryParams{
			UserID:      user.ID,
			Amount:      reward,
			Reason:      model.ReasonCommitReward,
			Description: fmt.Sprintf("%s: +%d commits", repo.Name, delta),
		}); err != nil {
			return err
		}

		r.logger.Info("Issued commit reward",
			"user", user.Username, "repo", repo.FullName, "commits", delta, "points", reward)
	}

	if delta != 0 {
		// A negative delta means rewritten history (force push, rebase).
		// Adopt the new total with no reward and no ledger entry.
		if err := q.UpdateContributorRewardTotal(ctx, contributor.ID, authoritativeTotal); err != nil {
			return err
		}
		contributor.RewardTotal = authoritativeTotal
	}

	return r.evolve(ctx, q, contributor, user)
}
