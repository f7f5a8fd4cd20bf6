// Package intent turns a free-text query into a topic, scope, and tone.
package intent
