// Package fingerprint describes what a task saw and produced in its last
// successful execution.
//
// A Fingerprint records a content hash for every resolved input file, a
// canonical hash of the scalar input properties, and a snapshot of every
// declared output. Two fingerprints are equal when those components match;
// build ids and timestamps are informational only.
//
// Hashes are content based. Touching a file without changing its bytes does
// not change its hash, so timestamps never influence up-to-date decisions.
package fingerprint
