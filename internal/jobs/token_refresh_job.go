package job

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/socialcast-io/socialcast/internal/models"
	"github.com/socialcast-io/socialcast/internal/platform"
	"github.com/socialcast-io/socialcast/internal/repository"
	"github.com/socialcast-io/socialcast/internal/vault"
)

// TokenRefreshJob proactively refreshes tokens that expire within the next
// half hour, so scheduled posts do not hit an expired token at dispatch time.
type TokenRefreshJob struct {
	sr       repository.SocialAccountRepository
	vault    *vault.Vault
	registry *platform.Registry
}

func NewTokenRefreshJob(sr repository.SocialAccountRepository, v *vault.Vault, registry *platform.Registry) *TokenRefreshJob {
	return &TokenRefreshJob{sr: sr, vault: v, registry: registry}
}

func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	currentTime := time.Now()
	timeIn30Minutes := currentTime.Add(30 * time.Minute)

	accounts, err := c.sr.ListExpiring(ctx, currentTime, timeIn30Minutes)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, acc := range accounts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(acc *models.SocialAccount) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if err := c.refreshOne(ctx, acc); err != nil {
				slog.Info("unable to refresh token",
					"account_id", acc.ID, "platform", acc.Platform, "error", err)
			}
		}(acc)
	}

	wg.Wait()
}

func (c *TokenRefreshJob) refreshOne(ctx context.Context, acc *models.SocialAccount) error {
	adapter, err := c.registry.Get(acc.Platform)
	if err != nil {
		return err
	}

	refreshToken, err := c.vault.Decrypt(acc.RefreshToken)
	if err != nil {
		return err
	}

	pair, err := adapter.RefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, platform.ErrRefreshNotSupported) {
			return nil
		}
		return err
	}

	updated := &models.SocialAccount{}
	if updated.AccessToken, err = c.vault.Encrypt(pair.AccessToken); err != nil {
		return err
	}
	if pair.RefreshToken != "" {
		if updated.RefreshToken, err = c.vault.Encrypt(pair.RefreshToken); err != nil {
			return err
		}
	}
	if pair.ExpiresIn > 0 {
		updated.TokenExpiresAt = time.Now().Add(time.Duration(pair.ExpiresIn) * time.Second)
	}

	return c.sr.SetToken(ctx, acc.ID, acc.AccessToken, updated)
}
