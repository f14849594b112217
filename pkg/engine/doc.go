// Package engine serves recorded pact interactions over HTTP.
//
// For every request the Handler:
//
//  1. matches the request against each interaction that passes the
//     provider-state StateFilter, collecting the candidates;
//  2. chooses one candidate with Disambiguate (state header override, then
//     earliest loaded);
//  3. returns the recorded response, adding Access-Control-Allow-Origin when
//     auto CORS is on.
//
// When nothing matches, an OPTIONS request gets a synthesized CORS preflight
// answer if auto CORS is on. Everything else gets a 500 response whose JSON
// body lists the closest interactions and why they did not match.
//
// # Usage
//
//	store := storage.NewInMemoryInteractionStore(pacts)
//	h := engine.NewHandler(store, engine.Options{AutoCORS: true}, engine.WithLogger(log))
//
//	srv := engine.NewServer(h, engine.ServerConfig{Port: 8080, Logger: log})
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//	defer srv.Stop(context.Background())
//
// Handler.Handle is the transport-independent entry point and is what the
// tests drive; ServeHTTP adapts it to net/http.
package engine
