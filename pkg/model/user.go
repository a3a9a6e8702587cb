package model

// User is the subset of the external user directory needed for display names.
type User struct {
	ID    string `json:"id" bson:"_id"`
	Name  string `json:"name,omitempty" bson:"name,omitempty"`
	Email string `json:"email,omitempty" bson:"email,omitempty"`
}

const UnknownUserName = "Unknown User"

// DisplayName prefers the name, then the contact handle, then a fixed literal.
func (u *User) DisplayName() string {
	if u == nil {
		return UnknownUserName
	}
	if u.Name != "" {
		return u.Name
	}
	if u.Email != "" {
		return u.Email
	}
	return UnknownUserName
}
