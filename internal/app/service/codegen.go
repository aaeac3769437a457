package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/sifan077/TinyLink/internal/app/repository"
)

// charset holds the 62 characters short codes are drawn from.
const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const bloomFalsePositiveRate = 0.001

var customCodePattern = regexp.MustCompile(`^[A-Za-z0-9]{1,20}$`)

// ValidateCustomCode checks a caller-supplied shortcode against the allowed format.
func ValidateCustomCode(code string) error {
	if !customCodePattern.MatchString(code) {
		return ErrInvalidShortcode
	}
	return nil
}

// CodeGenerator issues random short codes.
//
// Each candidate is offered to a claim function which stores it atomically;
// repository.ErrCodeTaken from claim counts as a collision. After maxAttempts
// collisions at the base length the generator widens the code by one
// character for another maxAttempts, then gives up with ErrCodeSpaceExhausted.
//
// Recently issued codes are remembered in a bloom filter so an expired code is
// not handed out again straight away. The filter is cleared once it has seen
// capacity codes.
type CodeGenerator struct {
	length      int
	maxAttempts int

	mu       sync.Mutex
	issued   *bloom.BloomFilter
	capacity uint
	added    uint
	random   func(length int) (string, error)
}

// NewCodeGenerator returns a generator; bloomCapacity 0 disables the reuse filter.
func NewCodeGenerator(length, maxAttempts int, bloomCapacity uint) *CodeGenerator {
	g := &CodeGenerator{
		length:      length,
		maxAttempts: maxAttempts,
		capacity:    bloomCapacity,
		random:      randomCode,
	}
	if bloomCapacity > 0 {
		g.issued = bloom.NewWithEstimates(bloomCapacity, bloomFalsePositiveRate)
	}
	return g
}

// Generate draws codes until claim accepts one.
func (g *CodeGenerator) Generate(ctx context.Context, claim func(code string) error) (string, error) {
	for _, length := range []int{g.length, g.length + 1} {
		for i := 0; i < g.maxAttempts; i++ {
			if err := ctx.Err(); err != nil {
				return "", err
			}

			code, err := g.random(length)
			if err != nil {
				return "", fmt.Errorf("generate short code: %w", err)
			}
			if g.recentlyIssued(code) {
				continue
			}

			err = claim(code)
			if errors.Is(err, repository.ErrCodeTaken) {
				continue
			}
			if err != nil {
				return "", err
			}

			g.Remember(code)
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

// Remember records code as issued.
func (g *CodeGenerator) Remember(code string) {
	if g.issued == nil {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.added >= g.capacity {
		g.issued.ClearAll()
		g.added = 0
	}
	g.issued.AddString(code)
	g.added++
}

func (g *CodeGenerator) recentlyIssued(code string) bool {
	if g.issued == nil {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.issued.TestString(code)
}

func randomCode(length int) (string, error) {
	code := make([]byte, length)
	limit := big.NewInt(int64(len(charset)))
	for i := range code {
		num, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}
