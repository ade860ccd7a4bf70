// Package logger builds *slog.Logger instances for billingsync services.
//
// New applies a set of Option values and returns a logger whose handler is
// wrapped by a decorator that pulls request-scoped attributes (request id,
// user id) out of context.Context on every record.
//
//	log := logger.New(
//		logger.WithEnvironment("production", "billingsync"),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "customer created", logger.UserID(u.ID), logger.CustomerID(id))
//
// Attribute helpers in attr.go keep key names consistent across packages.
package logger
