// Package workdir manages per-run scratch directories under the configured
// work_dir and removes stale or orphaned ones left by interrupted runs.
package workdir
