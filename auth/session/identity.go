// Package session holds the minimal public identity attached to an
// authenticated request.
package session

import "strconv"

// Identity is the public part of a user record: it never carries the
// password hash. Handlers receive it from the request context.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Subject returns the identity id in the form stored in the token subject.
func (i Identity) Subject() string {
	return strconv.FormatInt(i.ID, 10)
}

// ParseSubject converts a token subject back to a numeric id.
func ParseSubject(sub string) (int64, error) {
	return strconv.ParseInt(sub, 10, 64)
}
