// Password hashing.
//
// WHY BCRYPT?
// bcrypt is deliberately slow, which makes guessing passwords offline
// expensive. Each call to GenerateFromPassword:
//   - picks a random salt, so equal passwords hash differently
//   - embeds that salt in the output, so only one column is stored
//   - runs 2^cost rounds, set by the "cost" work factor
//
// Hash format (users.password_hash):
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (12 -> 2^12 rounds)
//	 version
//
// bcrypt only reads the first 72 bytes of its input. Longer passwords are
// rejected up front, because otherwise two passwords sharing those 72 bytes
// would both log in.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor for production (~250ms per hash).
const defaultCost = 12

// MaxPasswordBytes is the bcrypt input limit. Longer passwords are rejected
// instead of being silently truncated.
const MaxPasswordBytes = 72

var (
	ErrPasswordTooLong = fmt.Errorf("auth: password must be %d bytes or fewer", MaxPasswordBytes)
	ErrPasswordInvalid = errors.New("auth: invalid password")
)

// PasswordService provides bcrypt hashing and verification. The cost is a
// field so tests can run at bcrypt's minimum.
type PasswordService struct {
	cost      int
	dummyHash []byte
}

// NewPasswordService creates a PasswordService with the default cost (12).
func NewPasswordService() *PasswordService {
	return newPasswordServiceWithCost(defaultCost)
}

func newPasswordServiceWithCost(cost int) *PasswordService {
	// The dummy hash is compared against when the user does not exist, so a
	// failed login costs the same whether or not the username is known.
	dummy, err := bcrypt.GenerateFromPassword([]byte("teamboard-dummy-password"), cost)
	if err != nil {
		panic(fmt.Sprintf("auth: generating dummy hash: %v", err))
	}
	return &PasswordService{cost: cost, dummyHash: dummy}
}

// NewPasswordServiceForTest creates a PasswordService with a custom cost.
// Do NOT use in production; pass bcrypt.MinCost (4) in tests.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return newPasswordServiceWithCost(cost)
}

// Hash hashes the given plaintext password with bcrypt. The result embeds the
// salt and cost and is stored as-is.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify returns nil if plaintext matches hash, ErrPasswordInvalid if it does
// not, and a wrapped error if the hash is malformed.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordInvalid
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

// VerifyDummy burns one bcrypt comparison and always fails.
func (p *PasswordService) VerifyDummy(plaintext string) error {
	_ = bcrypt.CompareHashAndPassword(p.dummyHash, []byte(plaintext))
	return ErrPasswordInvalid
}
