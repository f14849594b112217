// Package matching decides whether an inbound request satisfies the expected
// request of a pact interaction.
//
// The comparison follows pact request matching rather than mock-style scoring:
//
//   - Method: case-insensitive equality
//   - Path: exact equality, or the "path" matching rule
//   - Query: every expected parameter with equal values; unexpected parameters fail
//   - Headers: every expected header (extra headers are allowed); whitespace
//     after commas is ignored
//   - Body: JSON structurally, XML element by element, form bodies like the
//     query string, anything else byte for byte
//
// Matching rules (regex, type, min/max, include, equality, integer, decimal,
// number, boolean, null, date/time/timestamp) override plain equality for the
// path, header, parameter or JSON node they are attached to. Body rule paths
// are JSONPath expressions parsed with ojg; a "type" rule on a node cascades to
// all of its children.
//
// Every field is evaluated, so a failed Result lists every mismatch and can be
// reported back to the client as a near miss.
//
// Key types:
//
//   - Matcher: the predicate consumed by the engine
//   - Result: the outcome of one comparison with its Mismatches
//   - NearMiss: a failed interaction worth reporting in the no-match response
package matching
