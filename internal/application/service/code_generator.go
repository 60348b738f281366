package service

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/garyjia/voucher-service/internal/domain/entity"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeGenerator produces voucher codes
type CodeGenerator interface {
	Generate(length int) (string, error)
}

type randomCodeGenerator struct{}

// NewCodeGenerator returns a generator drawing each character uniformly from A-Z and 0-9
func NewCodeGenerator() CodeGenerator {
	return randomCodeGenerator{}
}

// Generate returns length random characters; length <= 0 uses entity.DefaultCodeLength
func (randomCodeGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		length = entity.DefaultCodeLength
	}

	max := big.NewInt(int64(len(codeAlphabet)))
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate voucher code: %w", err)
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}
