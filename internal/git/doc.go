// Package git checks whether a store's plaintext files are exposed to git.
//
// Checks performed for each plaintext file:
//   - tracked by git (should not be)
//   - covered by .gitignore (should be)
//
// Encrypted files are safe to commit and are not checked.
package git
