// Package tokenstore provides the in-memory credential store that maps
// issued access tokens to the users that own them.
//
// Records are indexed by owner and by token; both indexes are unique, so a
// user holds at most one active token and a token belongs to at most one
// user. There is no update or delete: tokens live until the process exits
// and users re-authenticate after a restart.
package tokenstore
