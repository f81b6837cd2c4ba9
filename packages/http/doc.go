// Package http provides the HTTP transport used to dispatch resolved
// requests.
//
// It wraps the standard library's http package with additional features:
//   - Configurable timeouts
//   - Redirect handling
//   - Request building from resolved request mappings
//   - Response handling and body reading
package http
