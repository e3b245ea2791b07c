// Package api is the inbound facade over the queue and the result store.
//
// The daemon and the CLI construct the same Service against the same SQLite
// files, so idempotent submission and status reads behave identically from
// either entry point. There is no network surface here; transport layers, if
// any, would sit on top of this package.
package api
