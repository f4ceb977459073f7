// Package platform is a client for the automation platform's Connection API:
// fetching a Connection, disabling and re-enabling it for the current user,
// and looking up the caller or an account.
//
// Every request carries the SDK identification headers and, when configured,
// an invite code. Once SetUserToken is called the platform user token is
// attached as a bearer credential. A 401 response clears that token so the
// caller can re-run the token exchange.
package platform
