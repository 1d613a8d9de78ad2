// Package main provides the entry point for the blacklist-etl CLI.
//
// blacklist-etl reads moderated blacklist reports from an issue tracker
// and publishes them as a static JSON dataset.
//
// Usage:
//
//	blacklist-etl run
//	blacklist-etl history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
