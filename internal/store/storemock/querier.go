// internal/store/storemock/querier.go

// Package storemock provides a testify mock of store.Querier for unit tests.
package storemock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/FishTankManager/GithubAquarium-Back/internal/model"
	"github.com/FishTankManager/GithubAquarium-Back/internal/store"
)

// Querier is a mock of the store.Querier interface.
type Querier struct {
	mock.Mock
}

var _ store.Querier = (*Querier)(nil)

func (m *Querier) GetUserByGithubID(ctx context.Context, githubID int64) (model.User, error) {
	args := m.Called(ctx, githubID)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *Querier) GetUserByGithubUsername(ctx context.Context, username string) (model.User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *Querier) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *Querier) ListUsersByGithubIDs(ctx context.Context, githubIDs []int64) ([]model.User, error) {
	args := m.Called(ctx, githubIDs)
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *Querier) UpsertRepository(ctx context.Context, arg store.UpsertRepositoryParams) (model.Repository, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(model.Repository), args.Error(1)
}

func (m *Querier) GetRepositoryByGithubID(ctx context.Context, githubID int64) (model.Repository, error) {
	args := m.Called(ctx, githubID)
	return args.Get(0).(model.Repository), args.Error(1)
}

func (m *Querier) GetRepositoryByFullName(ctx context.Context, fullName string) (model.Repository, error) {
	args := m.Called(ctx, fullName)
	return args.Get(0).(model.Repository), args.Error(1)
}

func (m *Querier) GetRepositoryForUpdate(ctx context.Context, id int64) (model.Repository, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Repository), args.Error(1)
}

func (m *Querier) ListStaleRepositories(ctx context.Context, limit int32) ([]model.Repository, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]model.Repository), args.Error(1)
}

func (m *Querier) MarkRepositoryStale(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *Querier) ClearRepositoryStale(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *Querier) UpdateRepositoryAnchor(ctx context.Context, arg store.UpdateRepositoryAnchorParams) error {
	args := m.Called(ctx, arg)
	return args.Error(0)
}

func (m *Querier) UpdateRepositoryStargazers(ctx context.Context, id int64, count int) error {
	args := m.Called(ctx, id, count)
	return args.Error(0)
}

func (m *Querier) CreateCommits(ctx context.Context, arg []store.CreateCommitParams) (int64, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(int64), args.Error(1)
}

func (m *Querier) UpsertCommit(ctx context.Context, arg store.CreateCommitParams) error {
	args := m.Called(ctx, arg)
	return args.Error(0)
}

func (m *Querier) CommitExists(ctx context.Context, repositoryID int64, sha string) (bool, error) {
	args := m.Called(ctx, repositoryID, sha)
	return args.Bool(0), args.Error(1)
}

func (m *Querier) GetCommitsByRepoID(ctx context.Context, repositoryID int64) ([]model.Commit, error) {
	args := m.Called(ctx, repositoryID)
	return args.Get(0).([]model.Commit), args.Error(1)
}

func (m *Querier) GetTopCommitAuthors(ctx context.Context, repositoryID int64, limit int32) ([]model.CommitAuthorStat, error) {
	args := m.Called(ctx, repositoryID, limit)
	return args.Get(0).([]model.CommitAuthorStat), args.Error(1)
}

func (m *Querier) GetOrCreateContributor(ctx context.Context, userID, repositoryID int64) (model.Contributor, error) {
	args := m.Called(ctx, userID, repositoryID)
	return args.Get(0).(model.Contributor), args.Error(1)
}

func (m *Querier) UpdateContributorRewardTotal(ctx context.Context, id int64, rewardTotal int) error {
	args := m.Called(ctx, id, rewardTotal)
	return args.Error(0)
}

func (m *Querier) ListRepositoryContributors(ctx context.Context, repositoryID int64) ([]model.Contributor, error) {
	args := m.Called(ctx, repositoryID)
	return args.Get(0).([]model.Contributor), args.Error(1)
}

func (m *Querier) GetCurrencyForUpdate(ctx context.Context, userID int64) (model.CurrencyBalance, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.CurrencyBalance), args.Error(1)
}

func (m *Querier) CreditCurrency(ctx context.Context, userID int64, amount int64) (model.CurrencyBalance, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(model.CurrencyBalance), args.Error(1)
}

func (m *Querier) GetCurrencyBalance(ctx context.Context, userID int64) (model.CurrencyBalance, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.CurrencyBalance), args.Error(1)
}

func (m *Querier) CreateRewardEntry(ctx context.Context, arg store.CreateRewardEntryParams) (model.RewardEntry, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(model.RewardEntry), args.Error(1)
}

func (m *Querier) ListRewardEntriesByUser(ctx context.Context, userID int64, limit int32) ([]model.RewardEntry, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]model.RewardEntry), args.Error(1)
}

func (m *Querier) RandomSpeciesGroup(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *Querier) GetSpeciesForCount(ctx context.Context, groupCode string, commitCount int) (model.FishSpecies, error) {
	args := m.Called(ctx, groupCode, commitCount)
	return args.Get(0).(model.FishSpecies), args.Error(1)
}

func (m *Querier) GetLowestTierSpecies(ctx context.Context, groupCode string) (model.FishSpecies, error) {
	args := m.Called(ctx, groupCode)
	return args.Get(0).(model.FishSpecies), args.Error(1)
}

func (m *Querier) GetEvolutionState(ctx context.Context, contributorID int64) (model.EvolutionState, error) {
	args := m.Called(ctx, contributorID)
	return args.Get(0).(model.EvolutionState), args.Error(1)
}

func (m *Querier) UpsertEvolutionState(ctx context.Context, arg store.UpsertEvolutionStateParams) (model.EvolutionState, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(model.EvolutionState), args.Error(1)
}

func (m *Querier) UnlockSpecies(ctx context.Context, userID, speciesID int64) error {
	args := m.Called(ctx, userID, speciesID)
	return args.Error(0)
}

func (m *Querier) ListContributorFish(ctx context.Context, userID int64) ([]model.ContributorFish, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.ContributorFish), args.Error(1)
}
