// Package twitter publishes approved drafts through the v2 tweets endpoint.
package twitter
