// Package app wires the ahpbridge components together and owns their
// lifecycle.
//
// # Bootstrap
//
// NewApplication performs the startup sequence shared by every command:
//
//  1. Configure logging from the --log-level flag (falling back to the
//     logLevel setting once the configuration is loaded)
//  2. Load settings from the configuration directory
//  3. Initialize the services: token broker with its file store, executor,
//     router, detection engine and router client
//
// Start runs the router loop, which is the broker context: every execution
// request crosses it as an ahp.Request and comes back as an ahp.Response.
// Close stops the loop and waits for requests in flight.
//
// # Usage
//
//	application, err := app.NewApplication(app.NewConfig("info", ""))
//	if err != nil {
//	    return err
//	}
//	if err := application.Start(ctx); err != nil {
//	    return err
//	}
//	defer application.Close()
//
//	resp := application.Services().Client.Execute(ctx, callURL)
package app
