package sources

import (
	"log/slog"

	"github.com/okoshkin/trendscout/internal/model"
	"github.com/okoshkin/trendscout/internal/retry"
	"github.com/okoshkin/trendscout/internal/util"
)

// Deps carries the cross-cutting collaborators every adapter shares.
type Deps struct {
	Client *Client
	Exec   *retry.Executor
	Ledger costRecorder
	Robots *util.RobotsChecker
	Logger *slog.Logger
}

// Build constructs the registry of enabled adapters from configuration,
// then applies the explicit source selection if one is set.
func Build(cfg model.SourcesConfig, deps Deps) *Registry {
	r := NewRegistry()

	if cfg.Forum.Enabled {
		r.Register(NewForumAdapter(cfg.Forum, deps.Client, deps.Exec, deps.Ledger, deps.Logger))
	}
	if cfg.Video.Enabled {
		r.Register(NewVideoAdapter(cfg.Video, deps.Client, deps.Exec, deps.Ledger, deps.Logger))
	}
	if cfg.Research.Enabled {
		r.Register(NewResearchAdapter(cfg.Research, deps.Exec, deps.Ledger, deps.Logger))
	}
	if cfg.Social.Enabled {
		r.Register(NewSocialAdapter(cfg.Social, deps.Client, deps.Exec, deps.Ledger, deps.Logger))
	}
	if cfg.Commerce.Enabled {
		r.Register(NewCommerceAdapter(cfg.Commerce, deps.Client, deps.Exec, deps.Ledger, deps.Robots, deps.Logger))
	}

	return r.Filter(cfg.Select)
}
