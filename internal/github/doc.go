// Package github posts remediation reports as pull-request comments.
//
// The repository and pull-request number are taken from the GitHub Actions
// environment (GITHUB_REPOSITORY, GITHUB_EVENT_PATH) when present, and from
// the origin remote otherwise. Authentication uses GITHUB_TOKEN or
// AGENT_GITHUB_TOKEN.
package github
