// Package pact defines the canonical interaction model served by the stub server
// and the parser that normalizes pact contract documents into it.
//
// Pact files exist in several specification versions (V1, V1.1, V2, V3, V4) that
// differ in how they encode provider states, query strings, headers, bodies and
// matching rules. Parse accepts any of them and produces a single shape:
//
//	p, err := pact.Parse("pacts/consumer-provider.json", data)
//	for _, i := range p.Interactions {
//	    fmt.Println(i.Description, i.Request.Method, i.Request.Path)
//	}
//
// Everything produced by this package is treated as immutable once loaded. The
// engine shares interactions across all concurrent requests without copying.
package pact
