// Package testutil holds helpers shared by package tests: a logger routed
// to t.Log, a concurrency-safe buffer and mock capability modules.
package testutil
