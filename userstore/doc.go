// Package userstore keeps the users the identity service pushes to an App
// and the roles their connections are granted.
//
// Memory and Redis both implement auth.UserStore and auth.RoleLookup. A user
// created by UpsertUser starts with the store's default roles
// ([AppNewUser] unless configured otherwise); later upserts update the
// profile and leave roles alone. Roles change only through SetRoles.
package userstore
