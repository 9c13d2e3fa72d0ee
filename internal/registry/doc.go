// Package registry provides the durable implementations of the license
// RegistryStore port: a Postgres adapter backed by GORM for production and an
// in-memory adapter for tests and local development. Both uphold the same
// atomicity contract on BindDomain.
package registry
