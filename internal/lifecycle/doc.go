// Package lifecycle drives the connection authorization lifecycle of an app
// user: logging into the app backend, exchanging the app session for a
// platform user token, fetching the Connection and toggling it, and handing
// control to the hosted authorization flow and back.
//
// The Machine is asynchronous. Every operation returns a Task, network calls
// run concurrently, and results are applied one at a time on a Dispatcher.
// Each request is registered in a pending.Registry; a response is applied
// only if its request is still the latest of its kind, so a slow response
// can never overwrite state produced by a newer one:
//
//	Unauthenticated -> LoggingIn -> TokenPending -> Ready -> FetchingConnection -> Displayed
//
// Failures are delivered to the Listener as ErrorEvents after the machine
// has restored its prior valid state.
package lifecycle
