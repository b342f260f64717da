package sl

import (
	"io"
	"log/slog"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

const redacted = "[REDACTED]"

// secretKeys - атрибуты, которые не должны попадать в логи в открытом виде
var secretKeys = map[string]struct{}{
	"code":         {},
	"access_token": {},
	"session_id":   {},
}

type Options struct {
	MaskSecrets bool
}

func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// * Setup собирает логгер под окружение: local - text/debug, dev - json/debug, prod - json/info
func Setup(env string, w io.Writer, opts Options) *slog.Logger {
	var replace func(groups []string, a slog.Attr) slog.Attr
	if opts.MaskSecrets {
		replace = maskSecrets
	}

	switch env {
	case EnvDev:
		return slog.New(
			slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug, ReplaceAttr: replace}),
		)
	case EnvProd:
		return slog.New(
			slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo, ReplaceAttr: replace}),
		)
	default:
		return slog.New(
			slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug, ReplaceAttr: replace}),
		)
	}
}

func maskSecrets(_ []string, a slog.Attr) slog.Attr {
	if _, ok := secretKeys[a.Key]; ok {
		return slog.String(a.Key, redacted)
	}

	return a
}

// * Discard - логгер для тестов
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
