// Package http implements the HTTP transport layer of the application.
//
// It exposes route wiring, request handlers, and middleware used by the REST
// API. Cross-cutting concerns such as authentication, request tracing, access
// logging, and response compression are handled in this package before
// requests are delegated to the service layer.
//
// Every payload that crosses this layer is either derived authentication
// material or ciphertext produced on the client; no handler ever sees a
// master password or a decrypted vault.
package http
