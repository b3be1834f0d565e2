// internal/model/models.go
package model

import "time"

// User is a registered account linked to a GitHub identity. Users are created
// by the authentication flow; this service only reads them to resolve commit
// authors and credit rewards.
type User struct {
	ID             int64
	GithubID       int64
	Username       string
	GithubUsername string
	Email          string
	AvatarURL      string
}

// Repository is the local replica of a GitHub repository.
//
// AnchorSHA is the most recent commit known to be fully synced; a nil anchor
// means the repository has never completed a sync. StaleSince is the staleness
// marker: nil means "known consistent", non-nil records the oldest moment at
// which the replica may have fallen behind.
type Repository struct {
	ID              int64
	GithubID        int64
	OwnerUserID     *int64
	Name            string
	FullName        string
	Description     *string
	HTMLURL         string
	Language        *string
	StargazersCount int
	DefaultBranch   string
	AnchorSHA       *string
	StaleSince      *time.Time
	CommitCount     int
	RepoCreatedAt   time.Time
	RepoUpdatedAt   time.Time
	LastSyncedAt    *time.Time
}

// Commit is a single commit on a repository's default branch. Rows are
// write-once: re-applying the same SHA is a no-op.
type Commit struct {
	SHA          string
	RepositoryID int64
	AuthorID     *int64
	Message      string
	CommittedAt  time.Time
	AuthorName   string
	AuthorEmail  string
}

// Contributor links a registered user to a repository they have committed to.
// RewardTotal is the last authoritative contribution count for which reward
// has been settled; reconciliation never decreases the reward already issued.
type Contributor struct {
	ID           int64
	UserID       int64
	RepositoryID int64
	RewardTotal  int
}

// CurrencyBalance is a user's point wallet. Balance and TotalEarned move only
// inside settlement's transaction, always together with a ledger entry.
type CurrencyBalance struct {
	UserID      int64
	Balance     int64
	TotalEarned int64
	UpdatedAt   time.Time
}

// Reasons recorded on reward ledger entries.
const (
	ReasonCommitReward = "COMMIT"
	ReasonShopPurchase = "BUY"
	ReasonItemUse      = "USE"
	ReasonAdmin        = "ADMIN"
)

// RewardEntry is one append-only row in the currency audit trail.
type RewardEntry struct {
	ID          int64
	UserID      int64
	Amount      int64
	Reason      string
	Description string
	CreatedAt   time.Time
}

// FishSpecies is catalog data: one evolution stage of one species group.
type FishSpecies struct {
	ID              int64
	Name            string
	GroupCode       string
	Tier            int
	RequiredCommits int
}

// EvolutionState is a contributor's fish. GroupCode (the lineage) is assigned
// once and never changes; Tier only ratchets upward.
type EvolutionState struct {
	ContributorID int64
	GroupCode     string
	Tier          int
}

// ContributorStat is the authoritative per-contributor total reported by the
// source API's contributor listing.
type ContributorStat struct {
	GithubID      int64
	Login         string
	Contributions int
}

// CommitAuthorStat is an aggregate used by the top-committers endpoint.
type CommitAuthorStat struct {
	AuthorName  string
	AuthorEmail string
	CommitCount int64
}

// ContributorFish is the joined view served by the aquarium endpoint.
type ContributorFish struct {
	RepositoryFullName string
	RewardTotal        int
	SpeciesName        string
	GroupCode          string
	Tier               int
}
