package auth

import "golang.org/x/crypto/bcrypt"

// PasswordHasher is the one-way hashing capability used for credentials.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hashed, plain string) error
}

// BcryptHasher implements PasswordHasher with bcrypt at the default cost.
type BcryptHasher struct{}

// Hash derives a one-way hash from the plain password.
func (BcryptHasher) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify compares a stored hash against a candidate password.
func (BcryptHasher) Verify(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

var _ PasswordHasher = BcryptHasher{}
