// Package logger builds the service's *slog.Logger and keeps attribute names
// consistent across packages.
//
// New returns a JSON or text logger configured by functional options. The
// handler is wrapped with LogHandlerDecorator, which adds attributes pulled
// from the context of each record (for example the request id set by the
// HTTP layer):
//
//	log := logger.New(
//		logger.WithConfig(cfg.Log),
//		logger.WithContextExtractors(requestIDExtractor),
//	)
//	log.InfoContext(ctx, "identity resolved",
//		logger.Provider("google"),
//		logger.Outcome("created"),
//		logger.UserID(u.ID),
//	)
//
// Attribute helpers return an empty slog.Attr for nil errors and empty ids,
// which slog drops.
package logger
