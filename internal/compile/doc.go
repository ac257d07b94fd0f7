// Package compile runs a declaration through every stage and produces a build plan.
// All execution paths (CLI commands, the watcher, tests) route through Compiler.
package compile
