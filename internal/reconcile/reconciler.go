// internal/reconcile/reconciler.go

// Package reconcile implements the contribution reconciliation pipeline: the
// authoritative pull-based sync that gap-fills commit history, settles reward
// deltas, and advances fish evolution, one repository per transaction.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/FishTankManager/GithubAquarium-Back/internal/errors"
	"github.com/FishTankManager/GithubAquarium-Back/internal/github"
	"github.com/FishTankManager/GithubAquarium-Back/internal/model"
	"github.com/FishTankManager/GithubAquarium-Back/internal/store"
)

// How many stale repositories one sweep picks up.
const sweepBatchSize = 100

// SourceAPI is the slice of the GitHub client the pipeline depends on.
type SourceAPI interface {
	GetRepoMeta(ctx context.Context, owner, name string) (github.RepoMeta, error)
	GetBranchHead(ctx context.Context, owner, name, branch string) (string, int, error)
	WalkCommits(ctx context.Context, owner, name, branch string, fn func(github.Commit) (bool, error)) error
	ListContributors(ctx context.Context, owner, name string) ([]model.ContributorStat, error)
	ListUserRepos(ctx context.Context, login string) ([]github.RepoMeta, error)
}

// txStarter is the slice of the connection pool the reconciler uses: shared
// query access plus transaction creation.
type txStarter interface {
	store.DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Options configures a Reconciler.
type Options struct {
	// Points issued per settled commit.
	RewardRate int64
	// Species group used when the catalog cannot supply one.
	DefaultSpeciesGroup string
	// Repositories reconciled in parallel per run.
	Concurrency int
	// Cadence of the background stale sweep.
	SweepInterval time.Duration
}

// Reconciler orchestrates per-repository reconciliation runs.
type Reconciler struct {
	db          txStarter
	source      SourceAPI
	logger      *slog.Logger
	queriesFor  func(store.DBTX) store.Querier
	rewardRate  int64
	defaultGrp  string
	concurrency int
	interval    time.Duration
	now         func() time.Time
}

// NewReconciler creates a Reconciler.
func NewReconciler(dbpool *pgxpool.Pool, source SourceAPI, logger *slog.Logger, opts Options) *Reconciler {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Reconciler{
		db:          dbpool,
		source:      source,
		logger:      logger,
		queriesFor:  func(db store.DBTX) store.Querier { return store.New(db) },
		rewardRate:  opts.RewardRate,
		defaultGrp:  opts.DefaultSpeciesGroup,
		concurrency: opts.Concurrency,
		interval:    opts.SweepInterval,
		now:         time.Now,
	}
}

// Start runs the periodic stale sweep until ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context) {
	r.logger.Info("Starting reconciler", "interval", r.interval.String(), "concurrency", r.concurrency)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.SweepStale(ctx) // Initial sweep

	for {
		select {
		case <-ticker.C:
			r.SweepStale(ctx)
		case <-ctx.Done():
			r.logger.Info("Reconciler shutting down", "reason", ctx.Err())
			return
		}
	}
}

// SweepStale reconciles every repository whose staleness marker is set.
// Failures are converted into a renewed marker and never abort the sweep.
func (r *Reconciler) SweepStale(ctx context.Context) {
	repos, err := r.queriesFor(r.db).ListStaleRepositories(ctx, sweepBatchSize)
	if err != nil {
		r.logger.Error("Failed to list stale repositories", "error", err)
		return
	}
	if len(repos) == 0 {
		return
	}
	r.logger.Info("Starting stale sweep", "repositories", len(repos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, repo := range repos {
		repo := repo
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			owner, name, ok := splitFullName(repo.FullName)
			if !ok {
				r.logger.Error("Repository has malformed full name", "full_name", repo.FullName)
				return nil
			}
			meta, err := r.source.GetRepoMeta(gctx, owner, name)
			if err != nil {
				r.logReconcileError(repo.FullName, err)
				r.markStaleSafe(gctx, repo.ID)
				return nil
			}
			r.reconcileOne(gctx, meta)
			return nil
		})
	}

	_ = g.Wait()
	r.logger.Info("Stale sweep finished")
}

// SyncUser reconciles every repository owned by the user. Triggered on login
// completion. Per-repository failures are absorbed; only failing to identify
// the user or list their repositories is reported to the caller.
func (r *Reconciler) SyncUser(ctx context.Context, githubID int64) error {
	user, err := r.queriesFor(r.db).GetUserByGithubID(ctx, githubID)
	if err != nil {
		return err
	}

	repos, err := r.source.ListUserRepos(ctx, user.GithubUsername)
	if err != nil {
		return err
	}
	r.logger.Info("Starting user sync", "user", user.Username, "repositories", len(repos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, meta := range repos {
		meta := meta
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			r.reconcileOne(gctx, meta)
			return nil
		})
	}

	_ = g.Wait()
	r.logger.Info("User sync finished", "user", user.Username)
	return nil
}

// reconcileOne runs a single repository to a terminal state: synced, or
// deferred (rolled back and marked stale for a later trigger).
func (r *Reconciler) reconcileOne(ctx context.Context, meta github.RepoMeta) {
	repoID, err := r.syncRepoInTransaction(ctx, meta)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	r.logReconcileError(meta.FullName, err)

	// The failed transaction has rolled back and released its row locks by
	// now. Renewing the marker any earlier would block on our own lock.
	if repoID != 0 {
		r.markStaleSafe(ctx, repoID)
	}
}

// syncRepoInTransaction wraps the sync logic for a single repo in a DB
// transaction. On failure all writes roll back; the repository ID is returned
// so the caller can renew the staleness marker once the lock is released.
func (r *Reconciler) syncRepoInTransaction(ctx context.Context, meta github.RepoMeta) (int64, error) {
	syncStart := r.now()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) // Rollback is a no-op if the transaction is already committed.

	q := r.queriesFor(tx)

	repo, err := r.upsertRepository(ctx, q, meta)
	if err != nil {
		return 0, err
	}

	if err := r.syncRepo(ctx, q, &repo, syncStart); err != nil {
		return repo.ID, err
	}

	return repo.ID, tx.Commit(ctx)
}

// syncRepo handles the full reconciliation logic for a single repository:
// gap-fill, settlement, then the guarded staleness clear.
func (r *Reconciler) syncRepo(ctx context.Context, q store.Querier, repo *model.Repository, syncStart time.Time) error {
	logger := r.logger.With("repo", repo.FullName, "repo_id", repo.ID)
	logger.Info("Reconciling repository")

	if err := r.fillCommitGap(ctx, q, repo); err != nil {
		return err
	}
	if err := r.settleContributors(ctx, q, repo); err != nil {
		return err
	}
	return r.clearStaleIfSafe(ctx, q, repo.ID, syncStart)
}

// clearStaleIfSafe re-reads the repository under an exclusive lock and clears
// the staleness marker only when it predates this sync's start. A marker
// raised while the sync was in flight describes activity this sync may not
// have seen, so it must survive.
func (r *Reconciler) clearStaleIfSafe(ctx context.Context, q store.Querier, repoID int64, syncStart time.Time) error {
	locked, err := q.GetRepositoryForUpdate(ctx, repoID)
	if err != nil {
		return err
	}
	if locked.StaleSince == nil {
		return nil
	}
	if locked.StaleSince.After(syncStart) {
		r.logger.Info("Staleness raised during sync, leaving marker set",
			"repo_id", repoID, "stale_since", *locked.StaleSince, "sync_start", syncStart)
		return nil
	}
	return q.ClearRepositoryStale(ctx, repoID)
}

// markStaleSafe renews the staleness marker in its own statement, outside any
// rolled-back transaction, so the failed repository is retried later.
func (r *Reconciler) markStaleSafe(ctx context.Context, repoID int64) {
	if err := r.queriesFor(r.db).MarkRepositoryStale(ctx, repoID, r.now()); err != nil {
		r.logger.Error("Failed to mark repository stale after sync failure", "repo_id", repoID, "error", err)
	}
}

// upsertRepository refreshes the local repository row from source metadata.
func (r *Reconciler) upsertRepository(ctx context.Context, q store.Querier, meta github.RepoMeta) (model.Repository, error) {
	var ownerID *int64
	owner, err := q.GetUserByGithubID(ctx, meta.OwnerGithubID)
	switch {
	case err == nil:
		ownerID = &owner.ID
	case !errors.Is(err, pgx.ErrNoRows):
		return model.Repository{}, err
	}

	return q.UpsertRepository(ctx, store.UpsertRepositoryParams{
		GithubID:        meta.GithubID,
		OwnerUserID:     ownerID,
		Name:            meta.Name,
		FullName:        meta.FullName,
		Description:     meta.Description,
		HTMLURL:         meta.HTMLURL,
		Language:        meta.Language,
		StargazersCount: meta.StargazersCount,
		DefaultBranch:   meta.DefaultBranch,
		RepoCreatedAt:   meta.CreatedAt,
		RepoUpdatedAt:   meta.UpdatedAt,
	})
}

func (r *Reconciler) logReconcileError(fullName string, err error) {
	if apperrors.IsRateLimit(err) {
		r.logger.Warn("Rate limited, repository deferred", "repo", fullName, "error", err)
		return
	}
	r.logger.Error("Failed to reconcile repository", "repo", fullName, "error", err)
}

func splitFullName(fullName string) (owner, name string, ok bool) {
	owner, name, ok = strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" {
		return "", "", false
	}
	return owner, name, true
}
