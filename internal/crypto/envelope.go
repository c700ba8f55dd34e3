package crypto

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// FormatVersion is the current on-disk envelope version.
const FormatVersion = 1

// Header layout: magic | version | kdf | kdf param | salt | nonce | tag
const (
	magicSize  = 4
	boundSize  = magicSize + 1 + 1 + 4 + SaltSize // authenticated as additional data
	HeaderSize = boundSize + NonceSize + TagSize
)

var magic = []byte("FVLT")

// Envelope is an encrypted file: a fixed header followed by the ciphertext.
type Envelope struct {
	Version    uint8
	KDF        KDFParams
	Salt       []byte
	Nonce      []byte
	Tag        []byte
	Ciphertext []byte
}

// boundHeader returns the header bytes covered by the authentication tag.
func (e *Envelope) boundHeader() []byte {
	buf := make([]byte, 0, boundSize)
	buf = append(buf, magic...)
	buf = append(buf, e.Version, byte(e.KDF.ID))
	buf = binary.BigEndian.AppendUint32(buf, e.KDF.Param)
	buf = append(buf, e.Salt...)
	return buf
}

// MarshalBinary encodes the envelope in its on-disk form.
func (e *Envelope) MarshalBinary() ([]byte, error) {
	if len(e.Salt) != SaltSize || len(e.Nonce) != NonceSize || len(e.Tag) != TagSize {
		return nil, ErrInvalidCiphertext
	}
	buf := make([]byte, 0, HeaderSize+len(e.Ciphertext))
	buf = append(buf, e.boundHeader()...)
	buf = append(buf, e.Nonce...)
	buf = append(buf, e.Tag...)
	buf = append(buf, e.Ciphertext...)
	return buf, nil
}

// UnmarshalBinary decodes an on-disk envelope. The slices in e are copies.
func (e *Envelope) UnmarshalBinary(data []byte) error {
	if err := e.unmarshalHeader(data); err != nil {
		return err
	}
	e.Ciphertext = append([]byte(nil), data[HeaderSize:]...)
	return nil
}

func (e *Envelope) unmarshalHeader(data []byte) error {
	if !IsEnvelope(data) {
		return ErrInvalidCiphertext
	}

	off := magicSize
	version := data[off]
	if version == 0 {
		return ErrInvalidCiphertext
	}
	if version > FormatVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	off++

	params := KDFParams{ID: KDFID(data[off])}
	off++
	params.Param = binary.BigEndian.Uint32(data[off:])
	off += 4
	if err := params.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCiphertext, err)
	}

	e.Version = version
	e.KDF = params
	e.Salt = append([]byte(nil), data[off:off+SaltSize]...)
	off += SaltSize
	e.Nonce = append([]byte(nil), data[off:off+NonceSize]...)
	off += NonceSize
	e.Tag = append([]byte(nil), data[off:off+TagSize]...)
	return nil
}

// IsEnvelope reports whether data starts with a complete envelope header.
func IsEnvelope(data []byte) bool {
	return len(data) >= HeaderSize && bytes.Equal(data[:magicSize], magic)
}

// ParseEnvelope decodes a complete encrypted file.
func ParseEnvelope(data []byte) (*Envelope, error) {
	env := &Envelope{}
	if err := env.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return env, nil
}

// ParseHeader decodes only the fixed header; Ciphertext is left empty.
func ParseHeader(head []byte) (*Envelope, error) {
	env := &Envelope{}
	if err := env.unmarshalHeader(head); err != nil {
		return nil, err
	}
	return env, nil
}

// Seal encrypts plaintext under a key derived from passphrase with a fresh
// salt and nonce. Two calls with the same input never share either.
func Seal(plaintext, passphrase []byte, params KDFParams) (*Envelope, error) {
	kdf, err := NewKDF(params)
	if err != nil {
		return nil, err
	}

	key, err := kdf.DeriveKey(passphrase)
	if err != nil {
		return nil, err
	}
	enc := NewEncryptor(key)
	defer enc.Destroy()

	env := &Envelope{
		Version: FormatVersion,
		KDF:     kdf.Params,
		Salt:    kdf.Salt,
	}

	nonce, ciphertext, tag, err := enc.Encrypt(plaintext, env.boundHeader())
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt: %w", err)
	}
	env.Nonce = nonce
	env.Ciphertext = ciphertext
	env.Tag = tag

	return env, nil
}

// Open derives the key from passphrase and the header's salt and KDF, then
// verifies and decrypts. Any mismatch returns ErrAuthFailed and no data.
func Open(env *Envelope, passphrase []byte) ([]byte, error) {
	if env == nil || len(env.Salt) != SaltSize {
		return nil, ErrInvalidCiphertext
	}
	if err := env.KDF.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCiphertext, err)
	}

	kdf := &KDF{Params: env.KDF, Salt: env.Salt}
	key, err := kdf.DeriveKey(passphrase)
	if err != nil {
		return nil, err
	}
	enc := NewEncryptor(key)
	defer enc.Destroy()

	return enc.Decrypt(env.Nonce, env.Ciphertext, env.Tag, env.boundHeader())
}
