// Package output renders executed requests.
//
// Supported output formats:
//   - Console: colored status line, optional headers, transfer info and captures
//   - JSON: one document with every request and a summary
//   - TAP: Test Anything Protocol, one line per request
//
// Formatters receive a Report per request and write any accumulated output
// on Flush.
package output
