// Package license implements the activation state machine for theme license
// keys. A license key may be bound to at most one storefront domain at a time;
// reactivating the same (key, domain) pair is an idempotent refresh, while a
// request for a different domain is rejected until the existing binding is
// released out of band.
//
// The package owns the decision logic only. Durable state lives behind the
// RegistryStore interface, implemented by the registry package. The atomicity
// contract between the two is documented on RegistryStore.BindDomain.
package license
