// Package health reports whether an App can serve honey.id traffic.
//
// Checkers cover the pieces an App depends on: the identity service link
// (DialCheck, BreakerCheck), the App's own WebSocket server (ServerCheck),
// and its stores (PingCheck for Redis, TokenStoreCheck). An Aggregator runs
// them together and the HTTP handlers expose the result as probes:
//
//	agg := health.NewAggregator()
//	agg.Register(health.NewDialCheck("identity_service", cfg.Addr))
//	agg.Register(health.NewPingCheck("users", redisStore))
//	health.RegisterHandlers(mux, agg)
package health
