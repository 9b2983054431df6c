// Package resultstore provides the thread-safe, in-memory table that field
// tasks write their generated columns into. It lives for a single
// generation request.
package resultstore
