// Package shared holds cross-cutting helpers that belong to no single layer.
// Currently that is testutil, the shared test fixtures. Nothing here may
// contain business logic or depend on other internal packages outside the
// license domain types.
package shared
