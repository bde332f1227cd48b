// Package stats summarizes the latency of repeated transfers.
package stats
