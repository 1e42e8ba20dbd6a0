package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCode = errors.New("invalid login code")
	ErrCodeExpired = errors.New("login code expired")
)

// GenerateCode returns a random six-digit login code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// HashCode hashes a login code for storage.
func HashCode(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash code: %w", err)
	}
	return string(hash), nil
}

// VerifyCode compares a submitted code against the stored hash. The stored
// session is only valid on the calendar day it was created; anything older
// fails with ErrCodeExpired.
func VerifyCode(code, hash string, createdAt int64, now time.Time) error {
	created := time.Unix(createdAt, 0).In(now.Location())
	if created.Year() != now.Year() || created.YearDay() != now.YearDay() {
		return ErrCodeExpired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)); err != nil {
		return ErrInvalidCode
	}
	return nil
}
