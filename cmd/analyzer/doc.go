// Command analyzer is the operator CLI for the content analyzer. It talks
// to the same SQLite databases the daemon drains, so submissions and
// status queries work whether or not the daemon is running.
package main
