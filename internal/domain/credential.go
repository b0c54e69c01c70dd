package domain

import "time"

// Credential is one username/password pair of the credential store.
// Password holds a bcrypt hash for accounts created by this service and the
// raw password for records carried over from older spreadsheets.
type Credential struct {
	Username string
	Password string
}

// CredentialStore is the whole set of credentials, loaded and saved as one unit.
type CredentialStore struct {
	Records []Credential
}

// Find returns the record with exactly the given username.
func (s *CredentialStore) Find(username string) (Credential, bool) {
	for _, rec := range s.Records {
		if rec.Username == username {
			return rec, true
		}
	}
	return Credential{}, false
}

// Session is handed out on a successful login and proves the Authenticated state.
type Session struct {
	Username  string
	Token     string
	ExpiresAt time.Time
}
