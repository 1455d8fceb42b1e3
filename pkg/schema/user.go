// Package schema defines the records shared by the canvas engine, the daemon and the SDK.
package schema

import (
	"strings"

	"github.com/google/uuid"
)

// User is the local identity of whoever operates an observer.
// It is stored under the "user" record and never mutated after login.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NewUser creates a user with a fresh id. The name is trimmed; an empty name is invalid.
func NewUser(name string) (User, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return User{}, false
	}
	return User{ID: uuid.NewString(), Name: name}, true
}

// Valid reports whether the record carries both an id and a name.
func (u User) Valid() bool {
	return u.ID != "" && u.Name != ""
}
