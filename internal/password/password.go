package password

import "golang.org/x/crypto/bcrypt"

// Hash returns a salted bcrypt hash of pw.
func Hash(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

// Check reports whether pw matches hash. An empty hash never matches.
func Check(hash, pw string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
