// Package server provides the local HTTP server playfeed runs while waiting
// for the OAuth callback.
//
// # Router Infrastructure
//
// The [Router] interface defines handler registration with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [NoStore] is the one middleware the auth flow installs, keeping the callback response out of caches.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally.
//
// # OAuth Callback Handler
//
// OAuthHandler implements the OAuth2 authorization code callback flow.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Current Usage
//
// When the user runs playfeed auth login, a temporary HTTP server starts on localhost:8080, handles Google's
// redirect, and shuts down after the token exchange completes.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
