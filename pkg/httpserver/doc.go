// Package httpserver runs the service's HTTP listener with graceful
// shutdown and provides the liveness and readiness handlers.
//
//	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
//	err := srv.Run(ctx, router)
//
// Run returns when ctx is cancelled and in-flight requests have drained, or
// when the shutdown timeout expires.
package httpserver
