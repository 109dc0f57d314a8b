package main

import (
	"context"
	"log/slog"
	"os"

	"invoicing/internal/apperr"
	"invoicing/internal/app"
	"invoicing/internal/platform/logger"
)

func main() {
	application, err := app.New()
	if err != nil {
		// The configured logger does not exist yet.
		log := logger.New(logger.Options{App: "invoicing"})
		ae := apperr.Classify(err)
		attrs := []any{slog.String("error_code", ae.Code()), slog.String("internal_error", ae.InternalMessage())}
		if ce, ok := ae.(*apperr.ConfigurationError); ok {
			attrs = append(attrs, slog.String("config_key", ce.ConfigKey()))
		}
		logger.Critical(context.Background(), log, "invalid configuration", attrs...)
		os.Exit(1)
	}
	if err := application.Run(); err != nil {
		os.Exit(1)
	}
}
