package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Identity is what a session token resolves to.
type Identity struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}

// Credential carries a login password as submitted. Student and teacher
// passwords are integers on the wire and in the database; the admin
// password is a configured string. The raw token is kept so both
// comparisons stay exact.
type Credential struct {
	raw string
}

func (c *Credential) UnmarshalJSON(data []byte) error {
	token := strings.TrimSpace(string(data))
	if len(token) >= 2 && token[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		c.raw = s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	c.raw = n.String()
	return nil
}

// Int64 interprets the credential as an integer password.
func (c Credential) Int64() (int64, error) {
	v, err := strconv.ParseInt(c.raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("password is not an integer")
	}
	return v, nil
}

// String returns the credential verbatim, for the admin comparison.
func (c Credential) String() string {
	return c.raw
}

func (c Credential) IsZero() bool {
	return c.raw == ""
}
