package service

import (
	"crypto/rand"
	"fmt"
	"math/big"

	apperrors "github.com/allisson/authd/internal/errors"
)

// codeDigits is the width of generated verification codes.
const codeDigits = 6

// codeService implements CodeService with uniformly distributed numeric codes.
type codeService struct{}

// NewCodeService creates a new CodeService instance.
func NewCodeService() CodeService {
	return &codeService{}
}

// Generate creates a 6-digit code. Leading zeros are preserved, so the full
// 000000-999999 range stays uniform.
func (s *codeService) Generate() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to generate verification code")
	}

	return fmt.Sprintf("%0*d", codeDigits, n), nil
}
