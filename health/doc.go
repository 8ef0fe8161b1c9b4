// Package health reports whether the gateway can serve queries.
//
// A Checker probes one dependency and returns a Result: Healthy, Degraded,
// or Unhealthy. The package ships checkers for the gateway's dependencies
// (database reachability, cache serving, process memory) and an Aggregator
// that fans a set of checkers out into one composite verdict.
//
//	agg := health.NewAggregator()
//	agg.Register("database", health.NewDatabaseChecker(db))
//	agg.Register("cache", health.NewCacheChecker(provider))
//
//	results := agg.CheckAll(ctx)
//	if agg.OverallStatus(results) == health.StatusUnhealthy {
//	    // stop routing traffic here
//	}
//
// HTTP probe handlers expose the aggregate on the admin listener:
//
//	mux.Handle("/healthz", health.LivenessHandler())
//	mux.Handle("/readyz", health.ReadinessHandler(agg))
//	mux.Handle("/health", health.DetailedHandler(agg))
//
// Liveness answers "is the process up", readiness answers "should traffic
// arrive", and the detailed endpoint returns per-dependency JSON for
// operators. gateway.AdminRouter mounts all three.
package health
