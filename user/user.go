// Package user declares the users collection.
package user

import (
	"regexp"

	"github.com/stevemurr/userdb/odm"
	"github.com/stevemurr/userdb/schema"
)

// Collection is the name of the users collection.
const Collection = "users"

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Schema validates user documents.
var Schema = schema.MustNew(
	schema.Field{Name: "name", Spec: schema.Validated(schema.String, schema.All(
		schema.MinLength(3, "Username must be at least 3 characters long"),
		schema.MaxLength(15, "Username must be at most 15 characters long"),
	))},
	schema.Field{Name: "email", Spec: schema.Validated(schema.String,
		schema.Match(emailRe, "Invalid email format"),
	)},
	schema.Field{Name: "password", Spec: schema.Validated(schema.String,
		schema.MinLength(6, "Password must be at least 6 characters long"),
	)},
)

// Model returns the users model from r.
func Model(r *odm.Registry) (*odm.Model, error) {
	return r.Model(Collection, Schema)
}
