// Package http provides RequestBuilder, a chainable request configuration
// bound to one reusable transfer handle.
//
// A builder collects the URL, method, post fields, headers, cookies and
// transfer options, then Execute performs the request:
//   - Transfer failures are reported through curl-numbered error codes
//   - Response diagnostics are available through ResponseInfo
//   - Renew resets every option and acquires a fresh handle
//   - Close releases the handle and writes the cookie jar
package http
