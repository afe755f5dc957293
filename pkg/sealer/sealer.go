package sealer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

type Purpose string

const (
	PurposeConfirmation Purpose = "confirmation"
	PurposeApproval     Purpose = "approval"
)

const entropyBytes = 16

var ErrMalformedToken = errors.New("malformed token")

// Sealer issues opaque, authenticated tokens that bind a request id to a purpose.
type Sealer struct {
	aead cipher.AEAD
	rand io.Reader
}

func New(key []byte) (*Sealer, error) {
	return NewWithRand(key, rand.Reader)
}

func NewWithRand(key []byte, r io.Reader) (*Sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Sealer{aead: aesgcm, rand: r}, nil
}

func (s *Sealer) Seal(requestID string, purpose Purpose) (string, error) {
	entropy := make([]byte, entropyBytes)
	if _, err := io.ReadFull(s.rand, entropy); err != nil {
		return "", fmt.Errorf("read token entropy: %w", err)
	}
	plaintext := []byte(string(purpose) + ":" + requestID + ":" + hex.EncodeToString(entropy))

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(s.rand, nonce); err != nil {
		return "", fmt.Errorf("read token nonce: %w", err)
	}

	ct := s.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(ct), nil
}

// Open authenticates the token and returns the request id and purpose it was sealed with.
func (s *Sealer) Open(token string) (string, Purpose, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", "", ErrMalformedToken
	}

	nonceSize := s.aead.NonceSize()
	if len(data) <= nonceSize {
		return "", "", ErrMalformedToken
	}
	nonce := data[:nonceSize]
	ciphertext := data[nonceSize:]

	pt, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", "", ErrMalformedToken
	}

	parts := strings.SplitN(string(pt), ":", 3)
	if len(parts) != 3 || parts[1] == "" {
		return "", "", ErrMalformedToken
	}

	return parts[1], Purpose(parts[0]), nil
}
