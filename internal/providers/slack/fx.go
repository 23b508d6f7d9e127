package slack

import (
	"net/http"
	"time"

	"github.com/smallbiznis/contractledger/internal/config"
	obstracing "github.com/smallbiznis/contractledger/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.slack",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	if cfg.SlackBotToken == "" || cfg.SlackChannelID == "" {
		return NewDiscard(log.Named("slack"))
	}
	return NewWebAPIProvider(cfg.SlackBotToken, obstracing.WrapHTTPClient(&http.Client{Timeout: 10 * time.Second}))
}
