// Package pipeline carries execution requests from the detection context
// to the broker context and their responses back.
//
// The Router is the broker context. Every request posted with Send gets a
// Pending future that is resolved exactly once, whatever happens to the
// request: handler errors, panics, timeouts and shutdown all resolve it
// with a failure response. The Executor is the handler that acquires a
// bearer token, sets it on the call URL and performs the GET. Calls to
// hosts other than the configured server never receive a token.
//
// The Catalog lists the tools a server publishes. It takes its token from
// an oauth2.TokenSource, which the token broker implements.
//
// Typical wiring:
//
//	broker := token.NewBroker(manager)
//	router := pipeline.NewRouter(pipeline.NewExecutor(broker), pipeline.WithRequestTimeout(time.Minute))
//	go router.Serve(ctx)
//	resp := pipeline.NewClient(router).Execute(ctx, "https://ahp.nuts.services/echo?text=hi")
package pipeline
