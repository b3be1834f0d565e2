// internal/store/species.go
package store

import (
	"context"

	"github.com/FishTankManager/GithubAquarium-Back/internal/model"
)

// RandomSpeciesGroup picks a species group at random from the catalog. Used
// once per contributor, when a lineage is first assigned.
func (q *Queries) RandomSpeciesGroup(ctx context.Context) (string, error) {
	var group string
	err := q.db.QueryRow(ctx,
		`SELECT group_code FROM fish_species GROUP BY group_code ORDER BY random() LIMIT 1`).
		Scan(&group)
	return group, err
}

// GetSpeciesForCount returns the highest tier in the group whose unlock
// threshold is at or below the given contribution count.
func (q *Queries) GetSpeciesForCount(ctx context.Context, groupCode string, commitCount int) (model.FishSpecies, error) {
	var s model.FishSpecies
	err := q.db.QueryRow(ctx, `
		SELECT id, name, group_code, tier, required_commits
		FROM fish_species
		WHERE group_code = $1 AND required_commits <= $2
		ORDER BY tier DESC
		LIMIT 1`, groupCode, commitCount).
		Scan(&s.ID, &s.Name, &s.GroupCode, &s.Tier, &s.RequiredCommits)
	return s, err
}

// GetLowestTierSpecies returns the entry tier of a group.
func (q *Queries) GetLowestTierSpecies(ctx context.Context, groupCode string) (model.FishSpecies, error) {
	var s model.FishSpecies
	err := q.db.QueryRow(ctx, `
		SELECT id, name, group_code, tier, required_commits
		FROM fish_species
		WHERE group_code = $1
		ORDER BY tier ASC
		LIMIT 1`, groupCode).
		Scan(&s.ID, &s.Name, &s.GroupCode, &s.Tier, &s.RequiredCommits)
	return s, err
}

// GetEvolutionState returns the contributor's fish state.
func (q *Queries) GetEvolutionState(ctx context.Context, contributorID int64) (model.EvolutionState, error) {
	var s model.EvolutionState
	err := q.db.QueryRow(ctx,
		`SELECT contributor_id, group_code, tier FROM evolution_states WHERE contributor_id = $1`,
		contributorID).Scan(&s.ContributorID, &s.GroupCode, &s.Tier)
	return s, err
}

// UpsertEvolutionState writes the contributor's fish state. The group code is
// only written on first insert; the tier is a ratchet and never moves down.
func (q *Queries) UpsertEvolutionState(ctx context.Context, arg UpsertEvolutionStateParams) (model.EvolutionState, error) {
	var s model.EvolutionState
	err := q.db.QueryRow(ctx, `
		INSERT INTO evolution_states (contributor_id, group_code, tier)
		VALUES ($1, $2, $3)
		ON CONFLICT (contributor_id) DO UPDATE
			SET tier = GREATEST(evolution_states.tier, EXCLUDED.tier)
		RETURNING contributor_id, group_code, tier`,
		arg.ContributorID, arg.GroupCode, arg.Tier).
		Scan(&s.ContributorID, &s.GroupCode, &s.Tier)
	return s, err
}

// UnlockSpecies records a species in the user's fishdex. Idempotent.
func (q *Queries) UnlockSpecies(ctx context.Context, userID, speciesID int64) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO unlocked_species (user_id, species_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, species_id) DO NOTHING`,
		userID, speciesID)
	return err
}

// ListContributorFish returns the user's fish across all repositories they
// contribute to, joined with the species catalog.
func (q *Queries) ListContributorFish(ctx context.Context, userID int64) ([]model.ContributorFish, error) {
	rows, err := q.db.Query(ctx, `
		SELECT r.full_name, c.reward_total, fs.name, es.group_code, es.tier
		FROM contributors c
		JOIN repositories r ON r.id = c.repository_id
		JOIN evolution_states es ON es.contributor_id = c.id
		JOIN fish_species fs ON fs.group_code = es.group_code AND fs.tier = es.tier
		WHERE c.user_id = $1
		ORDER BY c.reward_total DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fish []model.ContributorFish
	for rows.Next() {
		var f model.ContributorFish
		if err := rows.Scan(&f.RepositoryFullName, &f.RewardTotal, &f.SpeciesName, &f.GroupCode, &f.Tier); err != nil {
			return nil, err
		}
		fish = append(fish, f)
	}
	return fish, rows.Err()
}
