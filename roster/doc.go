// Package roster caches the slowly-changing driver metadata fetched from
// the roster collaborator. The cache is read-only to the rest of the
// system and staleness is acceptable; rendering never blocks on it.
package roster
