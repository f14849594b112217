// Package watch reloads local pact files when they change on disk.
package watch
