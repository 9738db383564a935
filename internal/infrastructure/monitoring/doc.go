/*
Package monitoring provides Prometheus metrics for the window server.

Every Metrics value owns its registry, so tests and embedded servers never
collide on registration.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	manager := tree.NewManager(logger).WithMetrics(metrics)

	timer := monitoring.NewTimer(metrics, "add_window")
	// ... run the request on the tree loop ...
	timer.Stop()
*/
package monitoring
