//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"io"

	"github.com/oshokin/latmon/internal/config"
	"github.com/oshokin/latmon/internal/logger"
)

// LoggerContext attaches a logger writing to w. An empty level falls back to
// log_level of the settings file, then to info.
func LoggerContext(ctx context.Context, level, configPath string, w io.Writer) context.Context {
	if level == "" {
		if cfg, err := config.Load(configPath); err == nil {
			level = cfg.LogLevel
		}
	}

	return logger.ToContext(ctx, logger.NewFromString(level, w))
}
