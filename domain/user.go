package domain

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is the account record as stored by the account service.
type User struct {
	Id       string
	Username string
	Role     string
}

// Identity is the verified triple attached to a realtime connection.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (u User) Identity() Identity {
	return Identity{UserID: u.Id, Username: u.Username, Role: u.Role}
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
