package models

// User is a bundled credential record. It never leaves the credential store:
// anything exposed or persisted goes through ToSessionUser first.
type User struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Name        string `json:"name"`
	AccountType string `json:"accountType"`
}

// SessionUser is the redacted view of a User held by the session manager.
type SessionUser struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	AccountType string `json:"accountType"`
}

// ToSessionUser strips the credential from u.
func ToSessionUser(u User) SessionUser {
	return SessionUser{
		Email:       u.Email,
		Name:        u.Name,
		AccountType: u.AccountType,
	}
}

// UserDirectory is the on-disk shape of the bundled credential list.
type UserDirectory struct {
	Users []User `json:"users"`
}
