// Package telemetry holds the canonical per-agent position state.
//
// The Store is the single writer of agent positions; everything else
// observes it through subscriptions. The Coalescer sits between the
// stream and the Store, bounding write rate to the display frame rate.
package telemetry
