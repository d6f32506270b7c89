/*
Package observability provides lifecycle hooks for monitoring parley sessions.

Metrics exports Prometheus counters fed by the session hooks, LoggingHooks writes
one structured record per event, and Combine chains several hook sets so both can
be registered on the same Manager.
*/
package observability
