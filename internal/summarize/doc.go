// Package summarize condenses the ranked candidates into a summary, key
// trends, and expert opinions.
package summarize
