package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/socialcast-io/socialcast/internal/models"
	"github.com/socialcast-io/socialcast/internal/platform"
)

// withAuthRetry runs one publish attempt with the account's decrypted token.
// On an AuthError it refreshes the token exactly once, persists the new pair,
// and retries the attempt; a failed refresh flips the account to error status
// and is terminal. Rate-limit and validation errors pass straight through.
//
// The plaintext token is re-derived from the vault per attempt and never
// outlives this call.
func (o *orchestrator) withAuthRetry(ctx context.Context, adapter platform.Adapter, account *models.SocialAccount, attempt func(token string) (string, error)) (string, error) {
	token, err := o.vault.Decrypt(account.AccessToken)
	if err != nil {
		return "", err
	}

	result, err := attempt(token)
	token = ""
	if err == nil {
		return result, nil
	}

	var authErr *platform.AuthError
	if !errors.As(err, &authErr) {
		return "", err
	}

	refreshed, err := o.refreshAccount(ctx, adapter, account)
	if err != nil {
		if setErr := o.accounts.SetStatus(ctx, account.ID, models.AccountStatusError); setErr != nil {
			slog.Info(setErr.Error())
		}
		return "", err
	}

	return attempt(refreshed)
}

// refreshAccount is the per-account critical section around a token refresh.
// Two concurrent attempts for the same account serialize here, and the
// repository write is a compare-and-swap on the old ciphertext besides.
func (o *orchestrator) refreshAccount(ctx context.Context, adapter platform.Adapter, account *models.SocialAccount) (string, error) {
	o.accountLock(account.ID).Lock()
	defer o.accountLock(account.ID).Unlock()

	if account.RefreshToken == "" {
		return "", &platform.AuthError{
			Platform: account.Platform,
			Err:      fmt.Errorf("token rejected and no refresh token is stored"),
		}
	}

	refreshToken, err := o.vault.Decrypt(account.RefreshToken)
	if err != nil {
		return "", err
	}

	pair, err := adapter.RefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, platform.ErrRefreshNotSupported) {
			return "", &platform.AuthError{Platform: account.Platform, Err: err}
		}
		return "", err
	}

	encryptedAccess, err := o.vault.Encrypt(pair.AccessToken)
	if err != nil {
		return "", err
	}

	encryptedRefresh := ""
	if pair.RefreshToken != "" {
		if encryptedRefresh, err = o.vault.Encrypt(pair.RefreshToken); err != nil {
			return "", err
		}
	}

	updated := &models.SocialAccount{
		AccessToken:  encryptedAccess,
		RefreshToken: encryptedRefresh,
	}
	if pair.ExpiresIn > 0 {
		updated.TokenExpiresAt = o.now().Add(time.Duration(pair.ExpiresIn) * time.Second)
	}

	if err := o.accounts.SetToken(ctx, account.ID, account.AccessToken, updated); err != nil {
		return "", fmt.Errorf("persist refreshed token: %w", err)
	}

	account.AccessToken = encryptedAccess
	if encryptedRefresh != "" {
		account.RefreshToken = encryptedRefresh
	}

	return pair.AccessToken, nil
}

func (o *orchestrator) accountLock(accountID int64) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	lock, ok := o.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[accountID] = lock
	}
	return lock
}
