// Package server holds the HTTP server configuration consumed by the serve
// command: the listen port and the optional API key protecting the
// operational endpoints.
package server
