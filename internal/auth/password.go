package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword derives the bcrypt hash stored on the account row. The cost
// comes from configuration so tests can run at bcrypt.MinCost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword checks a login attempt against the stored hash.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
