// Package core provides the filevault store: a directory of files keyed by
// logical name, each optionally encrypted with AES-256-GCM.
//
// Store operations:
//   - Create, Upload: add a file under a name that is not yet used
//   - Rename, Delete: move or remove an existing file
//   - Search: list names containing a substring
//   - Read, Stat, Rekey, Diff: inspect or re-encrypt one file
//   - History, Compact, Status: journal and store-wide views
//
// Mutations on one name are serialized by a per-name lock with a bounded
// wait; operations on different names run in parallel. Every write goes to
// a temp file inside the store root and is published with a rename, so a
// name always holds either its old content or its complete new content.
package core
