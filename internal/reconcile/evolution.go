// internal/reconcile/evolution.go
package reconcile

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/FishTankManager/GithubAquarium-Back/internal/model"
	"github.com/FishTankManager/GithubAquarium-Back/internal/store"
)

// evolve recomputes the contributor's fish from the settled total: within the
// contributor's lineage, the highest tier whose threshold is met, or the entry
// tier when none is. The tier write is a ratchet; a computed decrease is
// discarded by the store.
func (r *Reconciler) evolve(ctx context.Context, q store.Querier, contributor model.Contributor, user model.User) error {
	state, err := q.GetEvolutionState(ctx, contributor.ID)
	group := state.GroupCode
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// First acquisition: assign a lineage at random.
		group, err = q.RandomSpeciesGroup(ctx)
		if errors.Is(err, pgx.ErrNoRows) {
			group = r.defaultGrp
		} else if err != nil {
			return err
		}
	case err != nil:
		return err
	}

	target, err := q.GetSpeciesForCount(ctx, group, contributor.RewardTotal)
	if errors.Is(err, pgx.ErrNoRows) {
		target, err = q.GetLowestTierSpecies(ctx, group)
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Error("No species defined for group", "group", group)
			return nil
		}
	}
	if err != nil {
		return err
	}

	if _, err := q.UpsertEvolutionState(ctx, store.UpsertEvolutionStateParams{
		ContributorID: contributor.ID,
		GroupCode:     group,
		Tier:          target.Tier,
	}); err != nil {
		return err
	}

	// Record the species in the user's fishdex.
	return q.UnlockSpecies(ctx, user.ID, target.ID)
}
