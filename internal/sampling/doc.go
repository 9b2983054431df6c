// Package sampling holds the random primitives used by value generation:
// reservoir sampling over streams too large to materialize, a (truncated)
// normal variable for array lengths, and the Source handle that decides how
// concurrent field tasks share randomness.
package sampling
