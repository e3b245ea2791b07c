// Package notifications pushes job outcome notices to an ntfy topic. When
// no topic is configured every call is a no-op, so callers never need to
// guard notification sends.
package notifications
