package publish

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/socialcast-io/socialcast/internal/media"
	"github.com/socialcast-io/socialcast/internal/models"
	"github.com/socialcast-io/socialcast/internal/platform"
	"github.com/socialcast-io/socialcast/internal/repository"
	"github.com/socialcast-io/socialcast/internal/vault"
)

const (
	// fanOutWorkers bounds parallel adapter calls so one publish cannot burst
	// every platform at once.
	fanOutWorkers = 5

	// accountTimeout caps a single account's attempt, including the chunked
	// upload processing poll, so one slow platform cannot stall the fan-out.
	accountTimeout = 6 * time.Minute

	failedMarker = "some accounts failed to publish"
)

// Request is one authoring intent: content plus media, fanned out to the
// selected accounts.
type Request struct {
	Content          string
	PostType         string
	LinkURL          string
	TargetAccountIDs []int64
	Media            []*media.File
	ScheduledFor     time.Time
}

// Result is the aggregate outcome. Results carries one entry per target
// account; it is empty for a scheduled post, whose dispatch happens later.
type Result struct {
	PostID       int64                   `json:"post_id"`
	Status       string                  `json:"status"`
	ScheduledFor time.Time               `json:"scheduled_for,omitempty"`
	Results      []models.PublishAttempt `json:"results,omitempty"`
}

// Scheduler hands a scheduled post off for later dispatch.
type Scheduler interface {
	Schedule(ctx context.Context, postID int64, at time.Time) error
}

type Orchestrator interface {
	Publish(ctx context.Context, userID int64, req *Request) (*Result, error)
	DispatchScheduled(ctx context.Context, postID int64) (*Result, error)
}

type orchestrator struct {
	accounts  repository.SocialAccountRepository
	posts     repository.PostRepository
	history   repository.PublishHistoryRepository
	vault     *vault.Vault
	registry  *platform.Registry
	host      media.Host
	scheduler Scheduler

	// fetch re-materializes hosted media at dispatch time; swapped in tests.
	fetch func(ctx context.Context, url string) (*media.File, error)
	now   func() time.Time

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	locks    map[int64]*sync.Mutex
}

func New(
	accounts repository.SocialAccountRepository,
	posts repository.PostRepository,
	history repository.PublishHistoryRepository,
	v *vault.Vault,
	registry *platform.Registry,
	host media.Host,
	scheduler Scheduler,
) Orchestrator {
	return &orchestrator{
		accounts:  accounts,
		posts:     posts,
		history:   history,
		vault:     v,
		registry:  registry,
		host:      host,
		scheduler: scheduler,
		fetch:     fetchRemote,
		now:       time.Now,
		limiters:  make(map[string]*rate.Limiter),
		locks:     make(map[int64]*sync.Mutex),
	}
}

func (o *orchestrator) Publish(ctx context.Context, userID int64, req *Request) (*Result, error) {
	accounts, err := o.resolveAccounts(ctx, userID, req.TargetAccountIDs)
	if err != nil {
		return nil, err
	}

	postType := req.PostType
	if postType == "" {
		postType = inferPostType(req.Media)
	}

	if !req.ScheduledFor.IsZero() && req.ScheduledFor.After(o.now()) {
		return o.schedule(ctx, userID, req, postType)
	}

	post := &models.Post{
		UserID:           userID,
		Content:          req.Content,
		PostType:         postType,
		TargetAccountIDs: req.TargetAccountIDs,
		Status:           models.PostStatusDraft,
	}
	postID, err := o.posts.Create(ctx, nil, post)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	results := o.fanOut(ctx, accounts, platform.PublishInput{
		Content:  req.Content,
		PostType: postType,
		LinkURL:  req.LinkURL,
	}, req.Media)

	return o.finish(ctx, userID, postID, results)
}

// schedule stores the intent and hands dispatch to the queue. No adapter is
// called here; the worker re-invokes the orchestrator when the time comes.
func (o *orchestrator) schedule(ctx context.Context, userID int64, req *Request, postType string) (*Result, error) {
	var mediaRefs []string
	if len(req.Media) > 0 {
		if o.host == nil {
			return nil, ErrMediaHostRequired
		}
		for _, f := range req.Media {
			url, err := o.host.Put(ctx, f)
			if err != nil {
				return nil, fmt.Errorf("stage media for scheduled post: %w", err)
			}
			mediaRefs = append(mediaRefs, url)
		}
	}

	post := &models.Post{
		UserID:           userID,
		Content:          req.Content,
		PostType:         postType,
		MediaRefs:        mediaRefs,
		TargetAccountIDs: req.TargetAccountIDs,
		Status:           models.PostStatusDraft,
		ScheduledFor:     req.ScheduledFor,
	}
	postID, err := o.posts.Create(ctx, nil, post)
	if err != nil {
		return nil, fmt.Errorf("create scheduled post: %w", err)
	}

	if err := o.posts.SetStatus(ctx, postID, models.PostStatusScheduled); err != nil {
		return nil, fmt.Errorf("mark post scheduled: %w", err)
	}

	if o.scheduler != nil {
		if err := o.scheduler.Schedule(ctx, postID, req.ScheduledFor); err != nil {
			return nil, fmt.Errorf("enqueue scheduled post: %w", err)
		}
	}

	return &Result{PostID: postID, Status: models.PostStatusScheduled, ScheduledFor: req.ScheduledFor}, nil
}

// DispatchScheduled runs the fan-out for a post whose scheduled time has
// arrived. Hosted media refs are fetched back into memory first.
func (o *orchestrator) DispatchScheduled(ctx context.Context, postID int64) (*Result, error) {
	post, err := o.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	if post.Status != models.PostStatusScheduled {
		return nil, ErrNotScheduled
	}

	accounts, err := o.resolveAccounts(ctx, post.UserID, post.TargetAccountIDs)
	if err != nil {
		return nil, err
	}

	var files []*media.File
	for _, ref := range post.MediaRefs {
		f, err := o.fetch(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("fetch staged media: %w", err)
		}
		files = append(files, f)
	}

	results := o.fanOut(ctx, accounts, platform.PublishInput{
		Content:  post.Content,
		PostType: post.PostType,
	}, files)

	return o.finish(ctx, post.UserID, postID, results)
}

// resolveAccounts loads the targets and enforces ownership. Accounts in error
// status still resolve; their attempts fail fast inside the fan-out.
func (o *orchestrator) resolveAccounts(ctx context.Context, userID int64, ids []int64) ([]*models.SocialAccount, error) {
	if len(ids) == 0 {
		return nil, ErrNoActiveAccounts
	}

	accounts, err := o.accounts.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, ErrNoActiveAccounts
	}

	for _, a := range accounts {
		if a.UserID != userID {
			return nil, ErrAccountOwnership
		}
	}

	return accounts, nil
}

// fanOut runs one attempt per account with bounded parallelism. Outcomes are
// independent; every account gets exactly one slot in the result regardless of
// how the others fare.
func (o *orchestrator) fanOut(ctx context.Context, accounts []*models.SocialAccount, in platform.PublishInput, files []*media.File) []models.PublishAttempt {
	results := make([]models.PublishAttempt, len(accounts))

	var wg sync.WaitGroup
	sem := make(chan struct{}, fanOutWorkers)

	for i, account := range accounts {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, account *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-sem }()

			attemptCtx, cancel := context.WithTimeout(ctx, accountTimeout)
			defer cancel()

			results[i] = o.publishOne(attemptCtx, account, in, files)
		}(i, account)
	}
	wg.Wait()

	return results
}

func (o *orchestrator) publishOne(ctx context.Context, account *models.SocialAccount, in platform.PublishInput, files []*media.File) models.PublishAttempt {
	attempt := models.PublishAttempt{AccountID: account.ID, Platform: account.Platform}

	fail := func(err error) models.PublishAttempt {
		slog.Info("publish attempt failed",
			"account_id", account.ID, "platform", account.Platform, "error", err)
		attempt.Error = err.Error()
		return attempt
	}

	// Accounts flipped to error by a failed refresh are terminal until the
	// user reconnects them; no network call is spent on them.
	if account.AccountStatus == models.AccountStatusError {
		return fail(&platform.AuthError{
			Platform: account.Platform,
			Err:      fmt.Errorf("account is disabled after a failed token refresh; reconnect it"),
		})
	}

	adapter, err := o.registry.Get(account.Platform)
	if err != nil {
		return fail(&platform.PlatformError{Platform: account.Platform, Op: "resolve adapter", Err: err})
	}

	if len(files) > 0 {
		if err := media.ValidateAll(account.Platform, files); err != nil {
			return fail(err)
		}
	}

	if err := o.limiterFor(account.Platform).Wait(ctx); err != nil {
		return fail(err)
	}

	postID, err := o.withAuthRetry(ctx, adapter, account, func(token string) (string, error) {
		session := platform.Session{
			AccountID:      account.ID,
			PlatformUserID: account.AccountID,
			Username:       account.AccountUsername,
			InstanceURL:    account.InstanceURL,
			Token:          token,
		}

		mediaRefs := make([]string, 0, len(files))
		for _, f := range files {
			ref, err := adapter.UploadMedia(ctx, session, f)
			if err != nil {
				return "", err
			}
			mediaRefs = append(mediaRefs, ref)
		}

		published := in
		published.MediaRefs = mediaRefs
		return adapter.Publish(ctx, session, published)
	})
	if err != nil {
		return fail(err)
	}

	if err := o.accounts.TouchLastUsed(ctx, account.ID); err != nil {
		slog.Info(err.Error())
	}

	attempt.Success = true
	attempt.PlatformPostID = postID
	return attempt
}

// finish persists the aggregate outcome and the per-account history rows. The
// post status is published only when every account succeeded; per-account
// detail stays in the result array, not on the post.
func (o *orchestrator) finish(ctx context.Context, userID, postID int64, results []models.PublishAttempt) (*Result, error) {
	allOK := true
	for _, r := range results {
		if !r.Success {
			allOK = false
		}

		if _, err := o.history.Create(ctx, &models.PublishHistory{
			UserID:         userID,
			PostID:         postID,
			AccountID:      r.AccountID,
			PlatformPostID: r.PlatformPostID,
			ErrorMessage:   r.Error,
		}); err != nil {
			slog.Info(err.Error())
		}
	}

	status := models.PostStatusPublished
	errorMessage := ""
	var publishedAt time.Time
	if allOK {
		publishedAt = o.now()
	} else {
		status = models.PostStatusFailed
		errorMessage = failedMarker
	}

	if err := o.posts.SetOutcome(ctx, postID, status, errorMessage, publishedAt); err != nil {
		return nil, fmt.Errorf("record publish outcome: %w", err)
	}

	return &Result{PostID: postID, Status: status, Results: results}, nil
}

// limiterFor paces calls per platform across the whole process.
func (o *orchestrator) limiterFor(name string) *rate.Limiter {
	o.mu.Lock()
	defer o.mu.Unlock()

	limiter, ok := o.limiters[name]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Second), 3)
		o.limiters[name] = limiter
	}
	return limiter
}

func inferPostType(files []*media.File) string {
	for _, f := range files {
		if f.IsVideo() {
			return models.PostTypeVideo
		}
	}
	if len(files) > 0 {
		return models.PostTypeImage
	}
	return models.PostTypeText
}

func fetchRemote(ctx context.Context, url string) (*media.File, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return media.FromBytes(url, data)
}
