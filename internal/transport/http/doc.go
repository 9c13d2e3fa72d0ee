// Package http contains the chi handlers for the licensing API: the public
// storefront activation endpoint, the admin key-management surface, and the
// health endpoints.
//
// The activation and admin contracts use a success-flag envelope: business
// rejections travel as HTTP 200 with success=false so storefront callers
// branch on the flag, not the status code. Infrastructure failures (panics,
// auth, rate limiting) use RFC 7807 problem documents instead.
package http
