package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

const (
	SaltSize          = 32     // Salt size in bytes
	KeySize           = 32     // AES-256 key size
	NonceSize         = 12     // GCM nonce size
	TagSize           = 16     // GCM authentication tag size
	DefaultIters      = 210000 // Default PBKDF2 iterations (OWASP minimum)
	DefaultScryptLogN = 15     // scrypt N = 2^15
	MaxIters          = 10_000_000
	MaxScryptLogN     = 20
	scryptR           = 8
	scryptP           = 1
)

var (
	ErrInvalidCiphertext  = errors.New("invalid ciphertext")
	ErrAuthFailed         = errors.New("authentication failed")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrUnknownKDF         = errors.New("unknown key derivation function")
)

// KDFID identifies the key derivation function recorded in a file header.
type KDFID uint8

const (
	KDFPBKDF2 KDFID = 1
	KDFScrypt KDFID = 2
)

func (id KDFID) String() string {
	switch id {
	case KDFPBKDF2:
		return "pbkdf2"
	case KDFScrypt:
		return "scrypt"
	default:
		return fmt.Sprintf("kdf(%d)", uint8(id))
	}
}

// ParseKDF maps a KDF name to its default parameters.
func ParseKDF(name string) (KDFParams, error) {
	switch name {
	case "pbkdf2", "":
		return DefaultKDFParams(), nil
	case "scrypt":
		return KDFParams{ID: KDFScrypt, Param: DefaultScryptLogN}, nil
	default:
		return KDFParams{}, fmt.Errorf("%w: %s", ErrUnknownKDF, name)
	}
}

// KDFParams selects a KDF and its cost. Param is the iteration count for
// PBKDF2 and log2(N) for scrypt.
type KDFParams struct {
	ID    KDFID
	Param uint32
}

// DefaultKDFParams returns PBKDF2-HMAC-SHA256 with the default iterations.
func DefaultKDFParams() KDFParams {
	return KDFParams{ID: KDFPBKDF2, Param: DefaultIters}
}

// Validate rejects unknown KDFs and costs outside the accepted range, so a
// forged header cannot make key derivation arbitrarily expensive.
func (p KDFParams) Validate() error {
	switch p.ID {
	case KDFPBKDF2:
		if p.Param == 0 || p.Param > MaxIters {
			return fmt.Errorf("pbkdf2 iterations out of range: %d", p.Param)
		}
	case KDFScrypt:
		if p.Param == 0 || p.Param > MaxScryptLogN {
			return fmt.Errorf("scrypt cost out of range: %d", p.Param)
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownKDF, uint8(p.ID))
	}
	return nil
}

// KDF handles key derivation from passwords
type KDF struct {
	Params KDFParams
	Salt   []byte
}

// NewKDF creates a new KDF with a random salt
func NewKDF(params KDFParams) (*KDF, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	salt, err := GenerateRandom(SaltSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	return &KDF{
		Params: params,
		Salt:   salt,
	}, nil
}

// DeriveKey derives an encryption key from a password
func (k *KDF) DeriveKey(password []byte) ([]byte, error) {
	switch k.Params.ID {
	case KDFPBKDF2:
		return pbkdf2.Key(password, k.Salt, int(k.Params.Param), KeySize, sha256.New), nil
	case KDFScrypt:
		key, err := scrypt.Key(password, k.Salt, 1<<k.Params.Param, scryptR, scryptP, KeySize)
		if err != nil {
			return nil, fmt.Errorf("failed to derive key: %w", err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKDF, uint8(k.Params.ID))
	}
}

// Encryptor provides authenticated encryption
type Encryptor struct {
	key []byte
}

// NewEncryptor creates a new encryptor with the given key
func NewEncryptor(key []byte) *Encryptor {
	return &Encryptor{
		key: key,
	}
}

func (e *Encryptor) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Encrypt seals plaintext with AES-256-GCM under a fresh random nonce and
// returns the nonce, the ciphertext and the authentication tag separately.
func (e *Encryptor) Encrypt(plaintext, additionalData []byte) (nonce, ciphertext, tag []byte, err error) {
	gcm, err := e.aead()
	if err != nil {
		return nil, nil, nil, err
	}

	nonce, err = GenerateRandom(NonceSize)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, additionalData)
	split := len(sealed) - TagSize
	return nonce, sealed[:split], sealed[split:], nil
}

// Decrypt verifies the tag and opens the ciphertext. Nothing is returned
// unless authentication succeeds.
func (e *Encryptor) Decrypt(nonce, ciphertext, tag, additionalData []byte) ([]byte, error) {
	if len(nonce) != NonceSize || len(tag) != TagSize {
		return nil, ErrInvalidCiphertext
	}

	gcm, err := e.aead()
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(make([]byte, 0, len(ciphertext)), nonce, sealed, additionalData)
	if err != nil {
		return nil, ErrAuthFailed
	}

	return plaintext, nil
}

// Destroy clears the encryptor's key from memory
func (e *Encryptor) Destroy() {
	ClearBytes(e.key)
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}
