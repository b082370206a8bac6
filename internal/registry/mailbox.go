package registry

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// MailboxFileName is the default mailbox file, created in the working
// directory of the build.
const MailboxFileName = "temp-obfuscation-map.json"

const mailboxVersion = 1

var (
	// ErrMailboxCorrupt means the mailbox had no readable header.
	ErrMailboxCorrupt = errors.New("mailbox corrupt")
	// ErrMailboxStale means the mailbox was written with a different salt.
	ErrMailboxStale = errors.New("mailbox written with a different salt")
)

// record is one line of the mailbox log.
type record struct {
	Kind    string `json:"kind"`
	Version int    `json:"version,omitempty"`
	Salt    string `json:"salt,omitempty"`
	Token   string `json:"token,omitempty"`
	Value   string `json:"value,omitempty"`
}

const (
	kindHeader = "header"
	kindEntry  = "entry"
)

// Mailbox carries registry growth from one process stage to the next.
//
// It is an append-only log of JSON lines: a header naming the format version
// and the salt fingerprint, then one entry per token. Producers Append;
// the single consumer reads everything and deletes the file. There is no
// locking and delivery is at most once: a missing, empty, corrupt or stale
// mailbox only costs the consumer the pre-seeded entries, which it can
// always recompute.
type Mailbox struct {
	path        string
	fingerprint string
	log         *zap.Logger
}

// NewMailbox returns a mailbox at path for registries with the given salt
// fingerprint (see Registry.Fingerprint).
func NewMailbox(path, fingerprint string, log *zap.Logger) *Mailbox {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mailbox{
		path:        path,
		fingerprint: fingerprint,
		log:         log.Named("mailbox"),
	}
}

// Path returns the mailbox location.
func (m *Mailbox) Path() string {
	return m.path
}

// Append adds entries to the log, creating it with a header when absent.
// An existing file with an unreadable header or a foreign salt is an orphan
// from an earlier run and is truncated first.
func (m *Mailbox) Append(entries map[string]string) (err error) {
	flags := os.O_WRONLY | os.O_APPEND
	writeHeader := false

	switch ok, herr := m.headerMatches(); {
	case errors.Is(herr, fs.ErrNotExist):
		flags |= os.O_CREATE
		writeHeader = true
	case herr != nil || !ok:
		m.log.Warn("Replacing orphaned mailbox", zap.String("path", m.path), zap.Error(herr))
		flags |= os.O_TRUNC
		writeHeader = true
	}

	// #nosec G304 - path comes from trusted configuration
	f, err := os.OpenFile(m.path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open mailbox: %w", err)
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)

	if writeHeader {
		if err := enc.Encode(record{Kind: kindHeader, Version: mailboxVersion, Salt: m.fingerprint}); err != nil {
			return fmt.Errorf("write mailbox header: %w", err)
		}
	}

	tokens := make([]string, 0, len(entries))
	for token := range entries {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	for _, token := range tokens {
		if err := enc.Encode(record{Kind: kindEntry, Token: token, Value: entries[token]}); err != nil {
			return fmt.Errorf("write mailbox entry: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush mailbox: %w", err)
	}

	m.log.Debug("Appended to mailbox", zap.String("path", m.path), zap.Int("entries", len(tokens)))
	return nil
}

// headerMatches reports whether the existing file starts with a header for
// this salt. A missing file yields an fs.ErrNotExist error.
func (m *Mailbox) headerMatches() (bool, error) {
	// #nosec G304 - path comes from trusted configuration
	f, err := os.Open(m.path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return false, err
		}
		return false, ErrMailboxCorrupt
	}

	var h record
	if err := json.Unmarshal(sc.Bytes(), &h); err != nil || h.Kind != kindHeader || h.Version != mailboxVersion {
		return false, ErrMailboxCorrupt
	}
	return h.Salt == m.fingerprint, nil
}

// Consume reads every entry and deletes the file. A missing mailbox is not
// an error and yields an empty map. Corrupt or stale mailboxes are deleted
// too and yield an empty map with ErrMailboxCorrupt or ErrMailboxStale; the
// caller should log and carry on.
func (m *Mailbox) Consume() (map[string]string, error) {
	entries := make(map[string]string)

	// #nosec G304 - path comes from trusted configuration
	data, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		m.log.Debug("No mailbox to consume", zap.String("path", m.path))
		return entries, nil
	}
	if err != nil {
		m.log.Warn("Unable to read mailbox", zap.String("path", m.path), zap.Error(err))
		return entries, fmt.Errorf("read mailbox: %w", err)
	}

	if rerr := os.Remove(m.path); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
		m.log.Warn("Unable to delete mailbox", zap.String("path", m.path), zap.Error(rerr))
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	headerSeen := false
	skipped := 0
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec record
		if err := json.Unmarshal(line, &rec); err != nil {
			if !headerSeen {
				break
			}
			// Most likely a line truncated by a crash mid-write.
			skipped++
			continue
		}

		if !headerSeen {
			if rec.Kind != kindHeader || rec.Version != mailboxVersion {
				break
			}
			if rec.Salt != m.fingerprint {
				m.log.Warn("Ignoring mailbox from a different salt", zap.String("path", m.path))
				return entries, ErrMailboxStale
			}
			headerSeen = true
			continue
		}

		if rec.Kind != kindEntry || rec.Token == "" || rec.Value == "" {
			skipped++
			continue
		}
		if _, ok := entries[rec.Token]; !ok {
			entries[rec.Token] = rec.Value
		}
	}

	if err := sc.Err(); err != nil {
		m.log.Warn("Mailbox read stopped early", zap.String("path", m.path), zap.Error(err))
	}

	if !headerSeen {
		m.log.Warn("Ignoring corrupt mailbox", zap.String("path", m.path))
		return entries, ErrMailboxCorrupt
	}
	if skipped > 0 {
		m.log.Warn("Skipped unreadable mailbox lines", zap.String("path", m.path), zap.Int("lines", skipped))
	}

	m.log.Debug("Consumed mailbox", zap.String("path", m.path), zap.Int("entries", len(entries)))
	return entries, nil
}
