// Package hashing computes and identifies the digests the search engine
// compares candidates against.
package hashing

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"digestCracker/internal/core/domain"

	"github.com/pkg/errors"
)

// Service is the digest provider. It is stateless and safe for concurrent use.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Identify detects the algorithm from the digest length alone. A correctly
// sized digest that is not valid hex is accepted; it simply never matches.
func (s *Service) Identify(digest string) (domain.HashType, error) {
	return DetectAlgorithm(digest)
}

func (s *Service) Generate(password string, hashType domain.HashType) (string, error) {
	return Compute(password, hashType)
}

func (s *Service) Verify(password, digest string, hashType domain.HashType) bool {
	got, err := Compute(password, hashType)
	if err != nil {
		return false
	}
	return strings.EqualFold(got, digest)
}

// Matcher returns a predicate reporting whether a candidate hashes to digest.
// The target is decoded once; a target that is not valid hex yields a
// predicate that hashes every candidate and never matches.
func (s *Service) Matcher(digest string, hashType domain.HashType) (func(candidate []byte) bool, error) {
	want, decodeErr := hex.DecodeString(digest)
	if decodeErr != nil {
		want = nil
	}

	switch hashType {
	case domain.HashMD5:
		return func(candidate []byte) bool {
			sum := md5.Sum(candidate)
			return want != nil && bytes.Equal(sum[:], want)
		}, nil
	case domain.HashSHA256:
		return func(candidate []byte) bool {
			sum := sha256.Sum256(candidate)
			return want != nil && bytes.Equal(sum[:], want)
		}, nil
	}
	return nil, errors.Wrapf(domain.ErrUnsupportedHash, "hash type %q", hashType)
}

func DetectAlgorithm(digest string) (domain.HashType, error) {
	switch len(digest) {
	case domain.MD5DigestLength:
		return domain.HashMD5, nil
	case domain.SHA256DigestLength:
		return domain.HashSHA256, nil
	}
	return "", errors.Wrapf(domain.ErrInvalidDigestFormat,
		"digest must be %d (MD5) or %d (SHA-256) characters, got %d",
		domain.MD5DigestLength, domain.SHA256DigestLength, len(digest))
}

// Compute returns the lowercase hex digest of the candidate's bytes.
func Compute(candidate string, hashType domain.HashType) (string, error) {
	switch hashType {
	case domain.HashMD5:
		sum := md5.Sum([]byte(candidate))
		return hex.EncodeToString(sum[:]), nil
	case domain.HashSHA256:
		sum := sha256.Sum256([]byte(candidate))
		return hex.EncodeToString(sum[:]), nil
	}
	return "", errors.Wrapf(domain.ErrUnsupportedHash, "hash type %q", hashType)
}
