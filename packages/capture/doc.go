// Package capture extracts values from a transfer result for use in later requests.
//
// It supports capturing values from:
//   - Response body (gjson paths)
//   - Response headers
//   - Response status code and duration
//   - Transfer info keys such as primary_ip or total_time
//
// Captured values are fed back into the env resolver, so later requests can
// reference them as {{name}} or {{profile.name}}.
package capture
