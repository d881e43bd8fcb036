package account

// RoleUser is the only role handed out at registration.
const RoleUser = "user"

// Credential is a registered user. PasswordHash holds a bcrypt hash, never
// the plaintext password.
type Credential struct {
	Username     string `json:"-" db:"username"`
	PasswordHash string `json:"password" db:"password_hash"`
	Role         string `json:"role" db:"role"`
}
