// Package cli implements the pact-stub-server command line.
//
// The root command loads pacts and serves them until interrupted:
//
//	pact-stub-server -d ./pacts -p 8080 --cors
//
// The list subcommand loads the same sources and prints the interactions
// that would be served. Exit status 3 means at least one pact source could
// not be loaded.
package cli
