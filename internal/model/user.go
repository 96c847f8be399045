package model

import "time"

// Role enumerates user roles.
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
	RoleUser      Role = "USER"
)

// User represents a registered account. Anonymous exam takers are stored as
// users too, flagged with IsAnonymous and identified by email.
type User struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Mobile       string     `json:"mobile,omitempty"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	IsPremium    bool       `json:"is_premium"`
	PremiumUntil *time.Time `json:"premium_until,omitempty"`
	IsAnonymous  bool       `json:"is_anonymous"`
	CreatedAt    time.Time  `json:"created_at"`
}

// PremiumActive reports whether the premium subscription is live at the
// given time. A set PremiumUntil in the past overrides the flag.
func (u *User) PremiumActive(now time.Time) bool {
	if !u.IsPremium {
		return false
	}
	if u.PremiumUntil != nil && now.After(*u.PremiumUntil) {
		return false
	}
	return true
}

// ToProfile builds the /api/users/me view of the account.
func (u *User) ToProfile(now time.Time) *Profile {
	return &Profile{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Mobile:    u.Mobile,
		Role:      u.Role,
		IsPremium: u.PremiumActive(now),
	}
}

// RegisterRequest is the payload for creating an account.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=120"`
	Email    string `json:"email" binding:"required,email"`
	Mobile   string `json:"mobile" binding:"omitempty,min=6,max=20"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// LoginRequest is the payload for logging in.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Profile is the shape returned by GET /api/users/me.
type Profile struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Mobile    string `json:"mobile,omitempty"`
	Role      Role   `json:"role"`
	IsPremium bool   `json:"is_premium"`
}
