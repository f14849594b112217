// Package loader reads pact documents from files, directories, URLs and a
// pact broker.
//
// Sources are fetched concurrently and their outcomes are returned in source
// order, so the resulting interaction order is stable across runs:
//
//	outcomes := loader.Load(ctx, sources, loader.Options{Logger: log})
//	pacts, err := loader.Collect(outcomes)
//	if err != nil {
//	    // every failed source is listed in err
//	}
//
// Any failed source makes Collect return an error; callers must not serve a
// partially loaded set.
package loader
