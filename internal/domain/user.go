package domain

import "time"

type Role string

const (
	RoleNormal      Role = "normal"
	RoleCertificate Role = "certificate"
	RoleAdmin       Role = "admin"
)

// Permissions maps a role onto what the sync boundary allows. Normal users
// operate local-only; certificate holders and admins get full cloud
// read/write; only admins manage certificates.
type Permissions struct {
	CanSyncToCloud        bool
	CanReadFromCloud      bool
	CanManageCertificates bool
}

func (r Role) Permissions() Permissions {
	switch r {
	case RoleAdmin:
		return Permissions{CanSyncToCloud: true, CanReadFromCloud: true, CanManageCertificates: true}
	case RoleCertificate:
		return Permissions{CanSyncToCloud: true, CanReadFromCloud: true}
	default:
		return Permissions{}
	}
}

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email     string    `json:"email" validate:"required,email"`
	Password  string    `json:"password,omitempty"` // Save to DB but omit from responses when empty
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}
