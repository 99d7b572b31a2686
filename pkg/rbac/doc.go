// Package rbac holds the workspace permission catalog and the authorization
// guard.
//
// The catalog maps each models.RoleName to a fixed permission set. It is built
// once at package initialization and never mutated, so it is safe for
// concurrent reads without locking. Authorize is a pure subset check against
// that catalog: no role bypasses it, OWNER passes every check only because its
// set contains every permission.
package rbac
