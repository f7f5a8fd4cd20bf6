// Package reddit implements the candidate source on top of Reddit's public
// JSON listings.
//
// A named origin is a subreddit and is read from /r/{origin}/top.json; an
// empty origin runs a site-wide /search.json query. Listing entries become
// pipeline.Candidate values with their engagement score computed. Self posts
// that only carry rendered HTML are flattened to text with goquery.
package reddit
