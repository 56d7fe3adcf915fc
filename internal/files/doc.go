// Package files models the sets of paths a build node consumes and produces
// and answers the one question the scheduler asks of them: are the outputs
// stale with respect to the inputs?
//
// Staleness is decided purely by modification times. A node with no
// declared outputs can never be proven up to date, so it is always stale.
package files
