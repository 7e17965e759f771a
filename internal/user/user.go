// Package user defines the user record served by the API
// and persisted by every storage backend.
package user

import "go.mongodb.org/mongo-driver/bson/primitive"

// User is the only entity of the service.
type User struct {
	// ID is assigned by the storage on creation and is nil for records
	// that have not been persisted yet.
	ID       *primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name     string              `json:"name" bson:"name"`
	Location string              `json:"location" bson:"location"`
	Title    string              `json:"title" bson:"title"`
}

// New builds an unsaved user from the given field values.
func New(name, location, title string) *User {
	return &User{
		ID:       nil,
		Name:     name,
		Location: location,
		Title:    title,
	}
}

// WithID returns a copy of the user carrying the given identifier.
func (u User) WithID(id primitive.ObjectID) *User {
	u.ID = &id
	return &u
}

// HexID returns the external form of the identifier, or an empty string
// if the user has none.
func (u *User) HexID() string {
	if u == nil || u.ID == nil {
		return ""
	}
	return u.ID.Hex()
}
