// Package client talks to the honey.id identity service on behalf of an App.
//
// A Client dials the service over WebSocket and runs the credential
// handshake: SubmitUsername then SubmitPassword on one public connection.
// SignIn runs the whole handshake and returns the token bundle; Login goes
// further and records the issued access token in a tokenstore.Store so the
// App can later authorize the user's own connections with it.
//
// Dialing may be wrapped in a caller-supplied resilience.Retry and
// resilience.CircuitBreaker. Only transport faults reach those policies;
// failure frames from the service are returned to the caller unchanged.
package client
