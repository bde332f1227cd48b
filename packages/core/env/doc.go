// Package env handles variables and placeholder resolution for hitcurl.
//
// It provides functionality for:
//   - Loading dotenv files (.env, .env.local)
//   - Placeholder interpolation using {{variable}} syntax
//   - Template functions such as {{uuid()}} and {{basicAuth(user, pass)}}
//   - Capturing values from earlier transfers for later requests
package env
