package platform

import (
	config "github.com/socialcast-io/socialcast/configs"
	"github.com/socialcast-io/socialcast/internal/media"
)

// NewDefaultRegistry builds the full production adapter set. The media host
// may be nil; only Instagram degrades (its uploads fail with a clear
// not-implemented error).
func NewDefaultRegistry(cfg *config.Config, host media.Host) *Registry {
	return NewRegistry(
		NewMastodonAdapter(),
		NewXAdapter(cfg),
		NewPinterestAdapter(),
		NewBlueskyAdapter(),
		NewFacebookAdapter(cfg),
		NewInstagramAdapter(cfg, host),
		NewRedditAdapter(cfg),
	)
}
