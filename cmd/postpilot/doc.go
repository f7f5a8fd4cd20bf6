// Package main hosts the PostPilot CLI entrypoint and command graph.
//
// Every invocation is self-contained: it loads configuration, opens the
// SQLite store, and either starts a workflow, applies a review decision to a
// parked one, or reads workflow history back out. Review decisions usually
// come from a later invocation than the one that started the workflow.
package main
