package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/illarion/filevault/internal/git"
	"github.com/illarion/filevault/internal/storage"
)

// StatusInfo summarizes a store. Building it needs no key.
type StatusInfo struct {
	Root      string
	StoreID   string
	Created   time.Time
	Files     []FileInfo
	TotalSize int64
	Encrypted int
	Plaintext int
	Git       *git.GitStatus
}

// StoreID returns the random identifier written when the store was first
// opened. It keys the OS keyring entry for the store's passphrase.
func (s *Store) StoreID() (string, error) {
	s.journalMu.RLock()
	defer s.journalMu.RUnlock()
	return s.journal.StoreID()
}

// History returns journal records, oldest first. An empty name returns the
// whole journal.
func (s *Store) History(ctx context.Context, name string) ([]storage.Record, error) {
	const op = "history"
	if name != "" {
		canonical, err := s.resolver.Resolve(name)
		if err != nil {
			return nil, opErr(op, name, err)
		}
		name = canonical
	}
	if err := ctx.Err(); err != nil {
		return nil, opErr(op, name, err)
	}

	s.journalMu.RLock()
	defer s.journalMu.RUnlock()

	records, err := s.journal.Records(name)
	if err != nil {
		return nil, opErr(op, name, err)
	}
	return records, nil
}

// Compact rewrites the journal database to reclaim space. Mutations that
// finish meanwhile wait for it before journaling.
func (s *Store) Compact() error {
	s.journalMu.Lock()
	defer s.journalMu.Unlock()

	if err := s.journal.Compact(); err != nil {
		return opErr("compact", "", err)
	}
	s.logger.Info().Str("op", "compact").Msg("journal compacted")
	return nil
}

// Status lists every stored file with its metadata and checks whether any
// plaintext file is exposed to git.
func (s *Store) Status(ctx context.Context) (*StatusInfo, error) {
	const op = "status"

	names, err := s.Search("")
	if err != nil {
		return nil, err
	}

	status := &StatusInfo{Root: s.Root()}

	s.journalMu.RLock()
	status.StoreID, err = s.journal.StoreID()
	if err == nil {
		status.Created, err = s.journal.Created()
	}
	s.journalMu.RUnlock()
	if err != nil {
		return nil, opErr(op, "", err)
	}

	var plaintext []string
	for name := range names {
		fi, err := s.Stat(ctx, name)
		if err != nil {
			// removed after the listing
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		status.Files = append(status.Files, *fi)
		status.TotalSize += fi.Size
		if fi.Encrypted {
			status.Encrypted++
		} else {
			status.Plaintext++
			plaintext = append(plaintext, fi.Name)
		}
	}

	status.Git, err = git.CheckStore(ctx, s.Root(), plaintext)
	if err != nil {
		return nil, opErr(op, "", fmt.Errorf("git check failed: %w", err))
	}
	return status, nil
}
