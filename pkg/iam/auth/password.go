package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/garagelink/drivescan/pkg/errx"
	"github.com/garagelink/drivescan/pkg/iam"
)

// BcryptPasswordService implements PasswordService with bcrypt.
type BcryptPasswordService struct {
	cost int
}

// NewBcryptPasswordService creates a password service. A non-positive cost
// falls back to bcrypt.DefaultCost.
func NewBcryptPasswordService(cost int) *BcryptPasswordService {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordService{cost: cost}
}

// Hash hashes a plaintext password.
func (s *BcryptPasswordService) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), s.cost)
	if err != nil {
		return "", errx.Wrap(err, "failed to hash password", errx.TypeInternal)
	}
	return string(b), nil
}

// Compare checks a candidate plaintext against a stored hash. A mismatch
// surfaces as invalid credentials, never as the raw bcrypt error.
func (s *BcryptPasswordService) Compare(hash, plain string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)); err != nil {
		return iam.ErrInvalidCredentials()
	}
	return nil
}
