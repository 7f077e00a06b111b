// Package access evaluates view and edit permissions.
package access

// Actor is the authenticated-request context supplied by the external
// auth layer. The zero value is an anonymous visitor.
type Actor struct {
	Username      string
	Authenticated bool
	Admin         bool
}

// Anonymous is the unauthenticated actor.
var Anonymous = Actor{}

// CanView reports whether anyone may view an item. There are no
// private items in the core; visibility restriction is an external
// policy layer.
func CanView(Actor, string) bool {
	return true
}

// CanEdit reports whether the actor may mutate an item created by
// creator: the actor must be authenticated and either own the item or
// hold the admin role.
func CanEdit(actor Actor, creator string) bool {
	return actor.Authenticated && (creator == actor.Username || actor.Admin)
}
