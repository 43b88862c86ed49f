package core

import "time"

// Role of an account
type Role int

const (
	RoleUser  Role = 0
	RoleAdmin Role = 1
)

// AccountStatus of an account
type AccountStatus int

const (
	StatusDisabled AccountStatus = 0
	StatusEnabled  AccountStatus = 1
)

// Account represents a stored user record
type Account struct {
	ID           int64         // Numeric account identifier, used as token subject
	Username     string        // Unique login name
	PasswordHash string        // bcrypt hash, never leaves the service layer
	Nickname     string        // Display name
	Email        string        // Unique email address
	Avatar       string        // Avatar URL
	Role         Role          // Privilege level
	Status       AccountStatus // Enabled or disabled
	LastLoginAt  *time.Time    // Last successful login
	LastLoginIP  string        // Origin address of the last successful login
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Privileged reports whether the account may use the admin login
func (a *Account) Privileged() bool {
	return a.Role == RoleAdmin
}

// Profile is the public view of an account
type Profile struct {
	ID          int64         `json:"id"`
	Username    string        `json:"username"`
	Nickname    string        `json:"nickname"`
	Email       string        `json:"email"`
	Avatar      string        `json:"avatar"`
	Role        Role          `json:"role"`
	Status      AccountStatus `json:"status"`
	LastLoginAt *time.Time    `json:"lastLoginTime,omitempty"`
	LastLoginIP string        `json:"lastLoginIp,omitempty"`
	CreatedAt   time.Time     `json:"createTime"`
}

// Profile returns the public view of the account, without the password hash
func (a *Account) Profile() Profile {
	return Profile{
		ID:          a.ID,
		Username:    a.Username,
		Nickname:    a.Nickname,
		Email:       a.Email,
		Avatar:      a.Avatar,
		Role:        a.Role,
		Status:      a.Status,
		LastLoginAt: a.LastLoginAt,
		LastLoginIP: a.LastLoginIP,
		CreatedAt:   a.CreatedAt,
	}
}

// Identity is the caller resolved from a bearer token for the duration of one request
type Identity struct {
	AccountID int64
	Token     string
}

// LoginResult is returned by a successful login
type LoginResult struct {
	Token   string  `json:"token"`
	Profile Profile `json:"userInfo"`
}
