// Package crypto provides the file encryption codec for filevault.
//
// Encryption uses AES-256-GCM with:
//   - 32-byte key derived from the passphrase per file
//   - 12-byte random nonce per encryption operation
//   - Authenticated encryption prevents tampering
//
// Key derivation uses a fresh 32-byte random salt per file and either:
//   - PBKDF2-HMAC-SHA256, 210,000 iterations (default, OWASP minimum)
//   - scrypt with N = 2^15, r = 8, p = 1
//
// Encrypted file layout (big endian):
//
//	"FVLT" | version (1) | kdf (1) | kdf param (4) | salt (32) | nonce (12) | tag (16) | ciphertext
//
// Everything before the nonce is authenticated as additional data, so a
// header edited on disk fails decryption just like edited ciphertext.
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Encryptor.Destroy() zeroes the derived key
package crypto
