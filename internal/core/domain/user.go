package domain

import "strings"

// Role decides which tasks a user sees and which mutations they may perform.
type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleManager  Role = "Manager"
	RoleEmployee Role = "Employee"
)

// ParseRole matches s case-insensitively. Missing or unknown roles fall back
// to Employee, the least privileged role.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin
	case "manager":
		return RoleManager
	default:
		return RoleEmployee
	}
}

// User models an account seeded into the users collection.
type User struct {
	Username    string `json:"username"`
	Password    string `json:"-"`
	Role        Role   `json:"role"`
	Team        string `json:"team,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// FindUser returns a pointer into users for username, or nil.
func FindUser(users []User, username string) *User {
	for i := range users {
		if users[i].Username == username {
			return &users[i]
		}
	}
	return nil
}

// TeamMembers lists the usernames whose team equals team, in collection order.
// An empty team has no members.
func TeamMembers(users []User, team string) []string {
	if team == "" {
		return nil
	}
	var members []string
	for _, u := range users {
		if u.Team == team {
			members = append(members, u.Username)
		}
	}
	return members
}
