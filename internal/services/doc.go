// Package services contains the business-facing service layer sitting
// between the HTTP transport and the license engine. Services own
// request-scoped logging and shape engine results into transport
// responses; they never talk to the database directly.
package services
