// Package tracker talks to the upstream issue tracker.
//
// Client is the narrow set of operations the pipeline needs. GitHubClient
// implements it over the GitHub REST API. Every call the pipeline makes is
// admitted through a Scheduler, which bounds concurrency and spaces call
// starts to stay inside the remote rate limit. FetchIssues and FetchTimeline
// page through list endpoints until a short page is returned.
package tracker
