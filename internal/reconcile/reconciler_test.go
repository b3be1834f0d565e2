// internal/reconcile/reconciler_test.go
package reconcile

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/FishTankManager/GithubAquarium-Back/internal/errors"
	"github.com/FishTankManager/GithubAquarium-Back/internal/github"
	"github.com/FishTankManager/GithubAquarium-Back/internal/model"
	"github.com/FishTankManager/GithubAquarium-Back/internal/store"
	"github.com/FishTankManager/GithubAquarium-Back/internal/store/storemock"
)

// stubSource is a scriptable SourceAPI double.
type stubSource struct {
	head         string
	total        int
	headErr      error
	commits      []github.Commit // reverse-chronological, like the real API
	walkErr      error
	walkCalled   bool
	contributors []model.ContributorStat
	contribErr   error
}

func (s *stubSource) GetRepoMeta(ctx context.Context, owner, name string) (github.RepoMeta, error) {
	return github.RepoMeta{}, nil
}

func (s *stubSource) GetBranchHead(ctx context.Context, owner, name, branch string) (string, int, error) {
	return s.head, s.total, s.headErr
}

func (s *stubSource) WalkCommits(ctx context.Context, owner, name, branch string, fn func(github.Commit) (bool, error)) error {
	s.walkCalled = true
	if s.walkErr != nil {
		return s.walkErr
	}
	for _, c := range s.commits {
		stop, err := fn(c)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}

func (s *stubSource) ListContributors(ctx context.Context, owner, name string) ([]model.ContributorStat, error) {
	return s.contributors, s.contribErr
}

func (s *stubSource) ListUserRepos(ctx context.Context, login string) ([]github.RepoMeta, error) {
	return nil, nil
}

func newTestReconciler(source SourceAPI) *Reconciler {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return &Reconciler{
		source:     source,
		logger:     logger,
		rewardRate: 10,
		defaultGrp: "SHRIMP",
		now:        time.Now,
	}
}

func strPtr(s string) *string { return &s }

func ghCommit(sha string) github.Commit {
	return github.Commit{
		SHA:         sha,
		Message:     "message for " + sha,
		AuthorName:  "tester",
		AuthorEmail: "tester@example.com",
		CommittedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFillCommitGap(t *testing.T) {
	ctx := context.Background()
	repo := model.Repository{ID: 7, FullName: "octo/reef", Name: "reef", DefaultBranch: "main"}

	t.Run("fast path skips the walk when anchor matches and marker is clear", func(t *testing.T) {
		mockQ := new(storemock.Querier)
		source := &stubSource{head: "abc", total: 5}
		r := newTestReconciler(source)

		synced := repo
		synced.AnchorSHA = strPtr("abc")
		synced.CommitCount = 5

		err := r.fillCommitGap(ctx, mockQ, &synced)

		require.NoError(t, err)
		assert.False(t, source.walkCalled)
		mockQ.AssertExpectations(t)
	})

	t.Run("fast path still corrects a drifted commit count", func(t *testing.T) {
		mockQ := new(storemock.Querier)
		source := &stubSource{head: "abc", total: 6}
		r := newTestReconciler(source)

		synced := repo
		synced.AnchorSHA = strPtr("abc")
		synced.CommitCount = 5

		mockQ.On("UpdateRepositoryAnchor", ctx, store.UpdateRepositoryAnchorParams{
			ID: 7, AnchorSHA: "abc", CommitCount: 6,
		}).Return(nil).Once()

		err := r.fillCommitGap(ctx, mockQ, &synced)

		require.NoError(t, err)
		assert.False(t, source.walkCalled)
		mockQ.AssertExpectations(t)
	})

	t.Run("first sync walks the entire stream", func(t *testing.T) {
		mockQ := new(storemock.Querier)
		source := &stubSource{
			head:    "s1",
			total:   3,
			commits: []github.Commit{ghCommit("s1"), ghCommit("s2"), ghCommit("s3")},
		}
		r := newTestReconciler(source)

		fresh := repo
		mockQ.On("CreateCommits", ctx, mock.MatchedBy(func(arg []store.CreateCommitParams) bool {
			return len(arg) == 3 && arg[0].SHA == "s1" && arg[2].SHA == "s3"
		})).Return(int64(3), nil).Once()
		mockQ.On("UpdateRepositoryAnchor", ctx, store.UpdateRepositoryAnchorParams{
			ID: 7, AnchorSHA: "s1", CommitCount: 3,
		}).Return(nil).Once()

		err := r.fillCommitGap(ctx, mockQ, &fresh)

		require.NoError(t, err)
		mockQ.AssertExpectations(t)
	})

	t.Run("incremental sync stops at the anchor", func(t *testing.T) {
		mockQ := new(storemock.Querier)
		source := &stubSource{
			head:    "s1",
			total:   4,
			commits: []github.Commit{ghCommit("s1"), ghCommit("s2"), ghCommit("s3"), ghCommit("s4")},
		}
		r := newTestReconciler(source)

		stale := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
		behind := repo
		behind.AnchorSHA = strPtr("s3")
		behind.StaleSince = &stale
		behind.CommitCount = 2

		mockQ.On("CommitExists", ctx, int64(7), "s3").Return(true, nil).Once()
		mockQ.On("CreateCommits", ctx, mock.MatchedBy(func(arg []store.CreateCommitParams) bool {
			return len(arg) == 2 && arg[0].SHA == "s1" && arg[1].SHA == "s2"
		})).Return(int64(2), nil).Once()
		mockQ.On("UpdateRepositoryAnchor", ctx, store.UpdateRepositoryAnchorParams{
			ID: 7, AnchorSHA: "s1", CommitCount: 4,
		}).Return(nil).Once()

		err := r.fillCommitGap(ctx, mockQ, &behind)

		require.NoError(t, err)
		mockQ.AssertExpectations(t)
	})

	t.Run("missing anchor row falls back to a full walk", func(t *testing.T) {
		mockQ := new(storemock.Querier)
		source := &stubSource{
			head:    "s1",
			total:   2,
			commits: []github.Commit{ghCommit("s1"), ghCommit("s2")},
		}
		r := newTestReconciler(source)

		broken := repo
		broken.AnchorSHA = strPtr("vanished")

		mockQ.On("CommitExists", ctx, int64(7), "vanished").Return(false, nil).Once()
		mockQ.On("CreateCommits", ctx, mock.MatchedBy(func(arg []store.CreateCommitParams) bool {
			return len(arg) == 2
		})).Return(int64(2), nil).Once()
		mockQ.On("UpdateRepositoryAnchor", ctx, mock.Anything).Return(nil).Once()

		err := r.fillCommitGap(ctx, mockQ, &broken)

		require.NoError(t, err)
		mockQ.AssertExpectations(t)
	})

	t.Run("empty repository is a clean no-op", func(t *testing.T) {
		mockQ := new(storemock.Querier)
		source := &stubSource{head: ""}
		r := newTestReconciler(source)

		fresh := repo
		err := r.fillCommitGap(ctx, mockQ, &fresh)

		require.NoError(t, err)
		assert.False(t, source.walkCalled)
		mockQ.AssertExpectations(t)
	})

	t.Run("rate limit aborts before the anchor is written", func(t *testing.T) {
		mockQ := new(storemock.Querier)
		source := &stubSource{headErr: &apperrors.RateLimitError{Err: assert.AnError}}
		r := newTestReconciler(source)

		fresh := repo
		err := r.fillCommitGap(ctx, mockQ, &fresh)

		require.Error(t, err)
		assert.True(t, apperrors.IsRateLimit(err))
		mockQ.AssertNotCalled(t, "UpdateRepositoryAnchor", mock.Anything, mock.Anything)
	})

	t.Run("registered authors are resolved during the walk", func(t *testing.T) {
		mockQ := new(storemock.Querier)
		authorID := int64(99)
		commit := ghCommit("s1")
		commit.AuthorGithubID = &authorID
		source := &stubSource{head: "s1", total: 1, commits: []github.Commit{commit}}
		r := newTestReconciler(source)

		fresh := repo
		mockQ.On("GetUserByGithubID", ctx, int64(99)).Return(model.User{ID: 3, GithubID: 99}, nil).Once()
		mockQ.On("CreateCommits", ctx, mock.MatchedBy(func(arg []store.CreateCommitParams) bool {
			return len(arg) == 1 && arg[0].AuthorID != nil && *arg[0].AuthorID == 3
		})).Return(int64(1), nil).Once()
		mockQ.On("UpdateRepositoryAnchor", ctx, mock.Anything).Return(nil).Once()

		err := r.fillCommitGap(ctx, mockQ, &fresh)

		require.NoError(t, err)
		mockQ.AssertExpectations(t)
	})
}

func TestSettleContributors(t *testing.T) {
	ctx := context.Background()
	repo := model.Repository{ID: 7, FullName: "octo/reef", Name: "reef"}
	user := model.User{ID: 3, GithubID: 99, Username: "tester"}

	expectEvolution := func(mockQ *storemock.Querier, contributorID int64, total int) {
		mockQ.On("GetEvolutionState", ctx, contributorID).
			Return(model.EvolutionState{ContributorID: contributorID, GroupCode: "SALMON", Tier: 1}, nil).Once()
		mockQ.On("GetSpeciesForCount", ctx, "SALMON", total).
			Return(model.FishSpecies{ID: 12, GroupCode: "SALMON", Tier: 2}, nil).Once()
		mockQ.On("UpsertEvolutionState", ctx, store.UpsertEvolutionStateParams{
			ContributorID: contributorID, GroupCode: "SALMON", Tier: 2,
		}).Return(model.EvolutionState{ContributorID: contributorID, GroupCode: "SALMON", Tier: 2}, nil).Once()
		mockQ.On("UnlockSpecies", ctx, user.ID, int64(12)).Return(nil).Once()
	}

	t.Run("positive delta credits the wallet and writes one ledger entry", func(t *testing.T) {
		mockQ := new(storemock.Querier)
		source := &stubSource{contributors: []model.ContributorStat{{GithubID: 99, Login: "tester", Contributions: 42}}}
		r := newTestReconciler(source)

		mockQ.On("ListUsersByGithubIDs", ctx, []int64{99}).Return([]model.User{user}, nil).Once()
		mockQ.On("GetOrCreateContributor", ctx, user.ID, repo.ID).
			Return(model.Contributor{ID: 21, UserID: user.ID, RepositoryID: repo.ID, RewardTotal: 30}, nil).Once()
		mockQ.On("GetCurrencyForUpdate", ctx, user.ID).
			Return(model.CurrencyBalance{UserID: user.ID, Balance: 100, TotalEarned: 300}, nil).Once()
		mockQ.On("CreditCurrency", ctx, user.ID, int64(120)).
			Return(model.CurrencyBalance{UserID: user.ID, Balance: 220, TotalEarned: 420}, nil).Once()
		mockQ.On("CreateRewardEntry", ctx, store.CreateRewardEntryParams{
			UserID: user.ID, Amount: 120, Reason: model.ReasonCommitReward, Description: "reef: +12 commits",
		}).Return(model.RewardEntry{ID: 1}, nil).Once()
		mockQ.On("UpdateContributorRewardTotal", ctx, int64(21), 42).Return(nil).Once()
		expectEvolution(mockQ, 21, 42)

		err := r.settleContributors(ctx, mockQ, &repo)

		require.NoError(t, err)
		mockQ.AssertExpectations(t)
	})

	t.Run("unregistered contributors are skipped entirely", func(t *testing.T) {
		mockQ := new(storemock.Querier)
		source := &stubSource{contributors: []model.ContributorStat{{GithubID: 404, Login: "stranger", Contributions: 10}}}
		r := newTestReconciler(source)

		mockQ.On("ListUsersByGithubIDs", ctx, []int64{404}).Return([]model.User{}, nil).Once()

		err := r.settleContributors(ctx, mockQ, &repo)

		require.NoError(t, err)
		mockQ.AssertNotCalled(t, "GetOrCreateContributor", mock.Anything, mock.Anything, mock.Anything)
		mockQ.AssertExpectations(t)
	})

	t.Run("shrunken total advances silently with no reward", func(t *testing.T) {
		mockQ := new(storemock.Querier)
		source := &stubSource{contributors: []model.ContributorStat{{GithubID: 99, Contributions: 47}}}
		r := newTestReconciler(source)

		mockQ.On("ListUsersByGithubIDs", ctx, []int64{99}).Return([]model.User{user}, nil).Once()
		mockQ.On("GetOrCreateContributor", ctx, user.ID, repo.ID).
			Return(model.Contributor{ID: 21, UserID: user.ID, RepositoryID: repo.ID, RewardTotal: 50}, nil).Once()
		mockQ.On("UpdateContributorRewardTotal", ctx, int64(21), 47).Return(nil).Once()
		expectEvolution(mockQ, 21, 47)

		err := r.settleContributors(ctx, mockQ, &repo)

		require.NoError(t, err)
		mockQ.AssertNotCalled(t, "CreditCurrency", mock.Anything, mock.Anything, mock.Anything)
		mockQ.AssertNotCalled(t, "CreateRewardEntry", mock.Anything, mock.Anything)
		mockQ.AssertExpectations(t)
	})

	t.Run("unchanged total only recomputes the fish", func(t *testing.T) {
		mockQ := new(storemock.Querier)
		source := &stubSource{contributors: []model.ContributorStat{{GithubID: 99, Contributions: 50}}}
		r := newTestReconciler(source)

		mockQ.On("ListUsersByGithubIDs", ctx, []int64{99}).Return([]model.User{user}, nil).Once()
		mockQ.On("GetOrCreateContributor", ctx, user.ID, repo.ID).
			Return(model.Contributor{ID: 21, UserID: user.ID, RepositoryID: repo.ID, RewardTotal: 50}, nil).Once()
		expectEvolution(mockQ, 21, 50)

		err := r.settleContributors(ctx, mockQ, &repo)

		require.NoError(t, err)
		mockQ.AssertNotCalled(t, "UpdateContributorRewardTotal", mock.Anything, mock.Anything, mock.Anything)
		mockQ.AssertExpectations(t)
	})

	t.Run("first acquisition assigns a random lineage", func(t *testing.T) {
		mockQ := new(storemock.Querier)
		source := &stubSource{contributors: []model.ContributorStat{{GithubID: 99, Contributions: 5}}}
		r := newTestReconciler(source)

		mockQ.On("ListUsersByGithubIDs", ctx, []int64{99}).Return([]model.User{user}, nil).Once()
		mockQ.On("GetOrCreateContributor", ctx, user.ID, repo.ID).
			Return(model.Contributor{ID: 21, UserID: user.ID, RepositoryID: repo.ID, RewardTotal: 0}, nil).Once()
		mockQ.On("GetCurrencyForUpdate", ctx, user.ID).
			Return(model.CurrencyBalance{UserID: user.ID}, nil).Once()
		mockQ.On("CreditCurrency", ctx, user.ID, int64(50)).
			Return(model.CurrencyBalance{UserID: user.ID, Balance: 50, TotalEarned: 50}, nil).Once()
		mockQ.On("CreateRewardEntry", ctx, mock.Anything).Return(model.RewardEntry{}, nil).Once()
		mockQ.On("UpdateContributorRewardTotal", ctx, int64(21), 5).Return(nil).Once()

		mockQ.On("GetEvolutionState", ctx, int64(21)).Return(model.EvolutionState{}, pgx.ErrNoRows).Once()
		mockQ.On("RandomSpeciesGroup", ctx).Return("KRAKEN", nil).Once()
		mockQ.On("GetSpeciesForCount", ctx, "KRAKEN", 5).
			Return(model.FishSpecies{ID: 30, GroupCode: "KRAKEN", Tier: 0}, nil).Once()
		mockQ.On("UpsertEvolutionState", ctx, store.UpsertEvolutionStateParams{
			ContributorID: 21, GroupCode: "KRAKEN", Tier: 0,
		}).Return(model.EvolutionState{ContributorID: 21, GroupCode: "KRAKEN"}, nil).Once()
		mockQ.On("UnlockSpecies", ctx, user.ID, int64(30)).Return(nil).Once()

		err := r.settleContributors(ctx, mockQ, &repo)

		require.NoError(t, err)
		mockQ.AssertExpectations(t)
	})

	t.Run("no qualifying tier falls back to the entry tier", func(t *testing.T) {
		mockQ := new(storemock.Querier)
		source := &stubSource{contributors: []model.ContributorStat{{GithubID: 99, Contributions: 50}}}
		r := newTestReconciler(source)

		mockQ.On("ListUsersByGithubIDs", ctx, []int64{99}).Return([]model.User{user}, nil).Once()
		mockQ.On("GetOrCreateContributor", ctx, user.ID, repo.ID).
			Return(model.Contributor{ID: 21, UserID: user.ID, RepositoryID: repo.ID, RewardTotal: 50}, nil).Once()
		mockQ.On("GetEvolutionState", ctx, int64(21)).
			Return(model.EvolutionState{ContributorID: 21, GroupCode: "JELLY", Tier: 0}, nil).Once()
		mockQ.On("GetSpeciesForCount", ctx, "JELLY", 50).Return(model.FishSpecies{}, pgx.ErrNoRows).Once()
		mockQ.On("GetLowestTierSpecies", ctx, "JELLY").
			Return(model.FishSpecies{ID: 40, GroupCode: "JELLY", Tier: 0}, nil).Once()
		mockQ.On("UpsertEvolutionState", ctx, store.UpsertEvolutionStateParams{
			ContributorID: 21, GroupCode: "JELLY", Tier: 0,
		}).Return(model.EvolutionState{ContributorID: 21, GroupCode: "JELLY"}, nil).Once()
		mockQ.On("UnlockSpecies", ctx, user.ID, int64(40)).Return(nil).Once()

		err := r.settleContributors(ctx, mockQ, &repo)

		require.NoError(t, err)
		mockQ.AssertExpectations(t)
	})
}

func TestClearStaleIfSafe(t *testing.T) {
	ctx := context.Background()
	syncStart := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := newTestReconciler(&stubSource{})

	t.Run("marker predating the sync is cleared", func(t *testing.T) {
		mockQ := new(storemock.Querier)
		before := syncStart.Add(-time.Minute)
		mockQ.On("GetRepositoryForUpdate", ctx, int64(7)).
			Return(model.Repository{ID: 7, StaleSince: &before}, nil).Once()
		mockQ.On("ClearRepositoryStale", ctx, int64(7)).Return(nil).Once()

		err := r.clearStaleIfSafe(ctx, mockQ, 7, syncStart)

		require.NoError(t, err)
		mockQ.AssertExpectations(t)
	})

	t.Run("marker raised mid-sync survives", func(t *testing.T) {
		mockQ := new(storemock.Querier)
		during := syncStart.Add(30 * time.Second)
		mockQ.On("GetRepositoryForUpdate", ctx, int64(7)).
			Return(model.Repository{ID: 7, StaleSince: &during}, nil).Once()

		err := r.clearStaleIfSafe(ctx, mockQ, 7, syncStart)

		require.NoError(t, err)
		mockQ.AssertNotCalled(t, "ClearRepositoryStale", mock.Anything, mock.Anything)
	})

	t.Run("marker equal to sync start is cleared", func(t *testing.T) {
		mockQ := new(storemock.Querier)
		at := syncStart
		mockQ.On("GetRepositoryForUpdate", ctx, int64(7)).
			Return(model.Repository{ID: 7, StaleSince: &at}, nil).Once()
		mockQ.On("ClearRepositoryStale", ctx, int64(7)).Return(nil).Once()

		err := r.clearStaleIfSafe(ctx, mockQ, 7, syncStart)

		require.NoError(t, err)
		mockQ.AssertExpectations(t)
	})

	t.Run("clear marker needs no write", func(t *testing.T) {
		mockQ := new(storemock.Querier)
		mockQ.On("GetRepositoryForUpdate", ctx, int64(7)).
			Return(model.Repository{ID: 7}, nil).Once()

		err := r.clearStaleIfSafe(ctx, mockQ, 7, syncStart)

		require.NoError(t, err)
		mockQ.AssertNotCalled(t, "ClearRepositoryStale", mock.Anything, mock.Anything)
	})
}

func TestUpsertRepository(t *testing.T) {
	ctx := context.Background()
	r := newTestReconciler(&stubSource{})

	meta := github.RepoMeta{
		GithubID:      12345,
		OwnerGithubID: 99,
		OwnerLogin:    "octo",
		Name:          "reef",
		FullName:      "octo/reef",
		DefaultBranch: "main",
	}

	t.Run("links the owner when registered", func(t *testing.T) {
		mockQ := new(storemock.Querier)
		mockQ.On("GetUserByGithubID", ctx, int64(99)).Return(model.User{ID: 3, GithubID: 99}, nil).Once()
		mockQ.On("UpsertRepository", ctx, mock.MatchedBy(func(arg store.UpsertRepositoryParams) bool {
			return arg.GithubID == 12345 && arg.OwnerUserID != nil && *arg.OwnerUserID == 3
		})).Return(model.Repository{ID: 7, GithubID: 12345}, nil).Once()

		repo, err := r.upsertRepository(ctx, mockQ, meta)

		require.NoError(t, err)
		assert.Equal(t, int64(7), repo.ID)
		mockQ.AssertExpectations(t)
	})

	t.Run("stores a nil owner when the owner is not registered", func(t *testing.T) {
		mockQ := new(storemock.Querier)
		mockQ.On("GetUserByGithubID", ctx, int64(99)).Return(model.User{}, pgx.ErrNoRows).Once()
		mockQ.On("UpsertRepository", ctx, mock.MatchedBy(func(arg store.UpsertRepositoryParams) bool {
			return arg.OwnerUserID == nil
		})).Return(model.Repository{ID: 7}, nil).Once()

		_, err := r.upsertRepository(ctx, mockQ, meta)

		require.NoError(t, err)
		mockQ.AssertExpectations(t)
	})
}

// fakeTx records the transaction outcome. All queries are intercepted by the
// mocked Querier, so only Commit and Rollback are implemented.
type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(ctx context.Context) error { t.committed = true; return nil }

func (t *fakeTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakePool struct {
	store.DBTX
	tx *fakeTx
}

func (p *fakePool) Begin(ctx context.Context) (pgx.Tx, error) { return p.tx, nil }

func TestReconcileOneFailurePath(t *testing.T) {
	ctx := context.Background()
	meta := github.RepoMeta{
		GithubID:      12345,
		OwnerGithubID: 99,
		OwnerLogin:    "octo",
		Name:          "reef",
		FullName:      "octo/reef",
		DefaultBranch: "main",
	}

	setup := func(source SourceAPI) (*Reconciler, *fakeTx, *storemock.Querier, *storemock.Querier) {
		tx := &fakeTx{}
		pool := &fakePool{tx: tx}
		txQ := new(storemock.Querier)
		poolQ := new(storemock.Querier)

		r := newTestReconciler(source)
		r.db = pool
		r.queriesFor = func(db store.DBTX) store.Querier {
			if db == pool {
				return poolQ
			}
			return txQ
		}
		return r, tx, txQ, poolQ
	}

	t.Run("sync failure renews the marker only after the rollback", func(t *testing.T) {
		source := &stubSource{headErr: &apperrors.RateLimitError{Err: assert.AnError}}
		r, tx, txQ, poolQ := setup(source)

		txQ.On("GetUserByGithubID", ctx, int64(99)).Return(model.User{}, pgx.ErrNoRows).Once()
		txQ.On("UpsertRepository", ctx, mock.Anything).
			Return(model.Repository{ID: 7, FullName: "octo/reef", DefaultBranch: "main"}, nil).Once()
		poolQ.On("MarkRepositoryStale", ctx, int64(7), mock.Anything).
			Run(func(mock.Arguments) {
				assert.True(t, tx.rolledBack, "marker renewed while the transaction still held its row lock")
			}).Return(nil).Once()

		r.reconcileOne(ctx, meta)

		assert.True(t, tx.rolledBack)
		assert.False(t, tx.committed)
		txQ.AssertExpectations(t)
		poolQ.AssertExpectations(t)
	})

	t.Run("successful sync commits and leaves the marker alone", func(t *testing.T) {
		source := &stubSource{head: "abc", total: 0}
		r, tx, txQ, poolQ := setup(source)

		txQ.On("GetUserByGithubID", ctx, int64(99)).Return(model.User{}, pgx.ErrNoRows).Once()
		txQ.On("UpsertRepository", ctx, mock.Anything).
			Return(model.Repository{ID: 7, FullName: "octo/reef", DefaultBranch: "main"}, nil).Once()
		txQ.On("UpdateRepositoryAnchor", ctx, mock.Anything).Return(nil).Once()
		txQ.On("GetRepositoryForUpdate", ctx, int64(7)).Return(model.Repository{ID: 7}, nil).Once()

		r.reconcileOne(ctx, meta)

		assert.True(t, tx.committed)
		assert.False(t, tx.rolledBack)
		poolQ.AssertNotCalled(t, "MarkRepositoryStale", mock.Anything, mock.Anything, mock.Anything)
		txQ.AssertExpectations(t)
	})

	t.Run("failure before the repository row exists skips the marker", func(t *testing.T) {
		source := &stubSource{}
		r, tx, txQ, poolQ := setup(source)

		txQ.On("GetUserByGithubID", ctx, int64(99)).Return(model.User{}, assert.AnError).Once()

		r.reconcileOne(ctx, meta)

		assert.True(t, tx.rolledBack)
		poolQ.AssertNotCalled(t, "MarkRepositoryStale", mock.Anything, mock.Anything, mock.Anything)
		txQ.AssertExpectations(t)
	})
}
