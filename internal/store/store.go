// internal/store/store.go
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FishTankManager/GithubAquarium-Back/internal/model"
)

// DBTX is the subset of pgx satisfied by both *pgxpool.Pool and pgx.Tx, so the
// same queries run standalone or inside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Queries implements Querier over a DBTX.
type Queries struct {
	db DBTX
}

// New returns a Queries bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// UpsertRepositoryParams carries repository metadata refreshed on every
// observation. Sync bookkeeping (anchor_sha, stale_since, commit_count) is
// deliberately absent: those columns are owned by the reconciliation pipeline
// and only move through their dedicated operations.
type UpsertRepositoryParams struct {
	GithubID        int64
	OwnerUserID     *int64
	Name            string
	FullName        string
	Description     *string
	HTMLURL         string
	Language        *string
	StargazersCount int
	DefaultBranch   string
	RepoCreatedAt   time.Time
	RepoUpdatedAt   time.Time
}

// UpdateRepositoryAnchorParams records the result of a completed gap-fill.
type UpdateRepositoryAnchorParams struct {
	ID          int64
	AnchorSHA   string
	CommitCount int
}

// CreateCommitParams is one commit row for insertion.
type CreateCommitParams struct {
	SHA          string
	RepositoryID int64
	AuthorID     *int64
	Message      string
	CommittedAt  time.Time
	AuthorName   string
	AuthorEmail  string
}

// CreateRewardEntryParams is one append-only ledger row.
type CreateRewardEntryParams struct {
	UserID      int64
	Amount      int64
	Reason      string
	Description string
}

// UpsertEvolutionStateParams writes a contributor's fish state. On conflict
// the group code is left untouched (lineage is insert-only) and the tier only
// moves upward.
type UpsertEvolutionStateParams struct {
	ContributorID int64
	GroupCode     string
	Tier          int
}

// Querier is the persistence surface used by the pipeline and the API layer.
type Querier interface {
	GetUserByGithubID(ctx context.Context, githubID int64) (model.User, error)
	GetUserByGithubUsername(ctx context.Context, username string) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	ListUsersByGithubIDs(ctx context.Context, githubIDs []int64) ([]model.User, error)

	UpsertRepository(ctx context.Context, arg UpsertRepositoryParams) (model.Repository, error)
	GetRepositoryByGithubID(ctx context.Context, githubID int64) (model.Repository, error)
	GetRepositoryByFullName(ctx context.Context, fullName string) (model.Repository, error)
	GetRepositoryForUpdate(ctx context.Context, id int64) (model.Repository, error)
	ListStaleRepositories(ctx context.Context, limit int32) ([]model.Repository, error)
	MarkRepositoryStale(ctx context.Context, id int64, at time.Time) error
	ClearRepositoryStale(ctx context.Context, id int64) error
	UpdateRepositoryAnchor(ctx context.Context, arg UpdateRepositoryAnchorParams) error
	UpdateRepositoryStargazers(ctx context.Context, id int64, count int) error

	CreateCommits(ctx context.Context, arg []CreateCommitParams) (int64, error)
	UpsertCommit(ctx context.Context, arg CreateCommitParams) error
	CommitExists(ctx context.Context, repositoryID int64, sha string) (bool, error)
	GetCommitsByRepoID(ctx context.Context, repositoryID int64) ([]model.Commit, error)
	GetTopCommitAuthors(ctx context.Context, repositoryID int64, limit int32) ([]model.CommitAuthorStat, error)

	GetOrCreateContributor(ctx context.Context, userID, repositoryID int64) (model.Contributor, error)
	UpdateContributorRewardTotal(ctx context.Context, id int64, rewardTotal int) error
	ListRepositoryContributors(ctx context.Context, repositoryID int64) ([]model.Contributor, error)

	GetCurrencyForUpdate(ctx context.Context, userID int64) (model.CurrencyBalance, error)
	CreditCurrency(ctx context.Context, userID int64, amount int64) (model.CurrencyBalance, error)
	GetCurrencyBalance(ctx context.Context, userID int64) (model.CurrencyBalance, error)
	CreateRewardEntry(ctx context.Context, arg CreateRewardEntryParams) (model.RewardEntry, error)
	ListRewardEntriesByUser(ctx context.Context, userID int64, limit int32) ([]model.RewardEntry, error)

	RandomSpeciesGroup(ctx context.Context) (string, error)
	GetSpeciesForCount(ctx context.Context, groupCode string, commitCount int) (model.FishSpecies, error)
	GetLowestTierSpecies(ctx context.Context, groupCode string) (model.FishSpecies, error)
	GetEvolutionState(ctx context.Context, contributorID int64) (model.EvolutionState, error)
	UpsertEvolutionState(ctx context.Context, arg UpsertEvolutionStateParams) (model.EvolutionState, error)
	UnlockSpecies(ctx context.Context, userID, speciesID int64) error
	ListContributorFish(ctx context.Context, userID int64) ([]model.ContributorFish, error)
}

var _ Querier = (*Queries)(nil)
