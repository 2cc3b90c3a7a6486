// Package provider is the client for the upstream fitness data API
// (personal info, daily sleep, readiness and activity, heart rate and
// workouts).
//
// Every call takes an access token obtained from the OAuth manager. Non-200
// responses are mapped onto faults: 401 requires re-authentication, 403 and
// 404 are forbidden and not found, 429 carries the Retry-After hint, and
// 5xx, timeouts and network errors are upstream unavailable.
package provider
