// Package wateruse assesses the quality of water-take telemetry for
// Environment Canterbury monitored points.
//
// # Architecture
//
// The service is structured into several key packages:
//   - api: Telemetry web service client (sites, measurement types, readings)
//   - readings: Per-point series access and the combined series
//   - combiner: Merges overlapping measurement types into one series
//   - reportingmode: Infers each point's normal reporting cadence and caches it
//   - completeness: Compares observed against expected reports for a window
//   - consent: Resolves the effective consent conditions of a site
//   - statistics: Monthly statistics, point summaries and daily plot series
//   - batch: Bounded worker pool running the jobs over every point
//   - report: Result sinks (memory, InfluxDB, Kafka)
//   - database: SQLite and Postgres mode tables, Postgres consent conditions
//   - grpc: Per-point query API
//   - httpapi: Latest results, health and metrics over HTTP
//   - scheduler: Weekly completeness report and periodic mode refresh
//
// Key Features
//
//   - Reporting modes:
//     A point's readings-per-day mode is taken from the last year of data,
//     falling back to the most recent quarter with a reliable mode. Modes are
//     stored and recomputed once they are eight weeks old.
//
//   - Completeness:
//     Each week every point is checked against its mode. Points that sent
//     nothing are reported with the time they were last seen.
//
//   - Statistics:
//     Monthly totals, extraction min/mean/max, negative readings and 5/10/20
//     standard deviation spike counts, with consent rate and volume references.
//
// Example Usage
//
//	client := server.NewQualityClient(conn)
//	var result models.CompletenessResult
//	err := client.Call(ctx, server.MethodCheckCompleteness, map[string]interface{}{
//	    "point": "J36/0016-M1",
//	    "end":   "2024-03-04T00:00:00Z",
//	}, &result)
//
// For more information about specific packages, see their respective
// documentation.
package wateruse
