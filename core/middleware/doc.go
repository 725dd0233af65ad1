// Package middleware groups the HTTP middleware used by the serve command.
//
// Currently this is just the API key check (middleware/auth), protecting the
// operational endpoints when the server is exposed beyond loopback.
package middleware
