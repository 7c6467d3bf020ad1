// Package auth authorizes incoming App connections and receives credentials
// pushed by the identity service.
//
// A connection presents one of three credentials in its connect request:
// nothing (public), a pre-shared API key (the identity service itself), or an
// access token previously issued to a user. The matching Handler checks the
// credential, binds the granted roles to the connection, and then runs the
// application's callback. Failed checks leave the connection's roles
// untouched.
//
// ReceiveToken and ReceiveUserInfo serve the callbacks the identity service
// uses to push newly issued tokens and user profiles to the App.
//
// IDTokenParser extracts the user public id from an id token, optionally
// verifying its signature with a KeyProvider such as JWKSKeyProvider.
package auth
