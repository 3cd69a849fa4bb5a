// Package memorystore persists domain memories (which tool sequence solved
// which task on which site) and exposes them to the agent as tools.
package memorystore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/tabpilot/pkg/agent/memory"
	"github.com/entrhq/tabpilot/pkg/logging"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNotFound is returned when no memory has the requested id.
	ErrNotFound = errors.New("memorystore: memory not found")

	// ErrInvalidRecord is returned for records missing a domain, task or tool sequence.
	ErrInvalidRecord = errors.New("memorystore: invalid record")
)

// DefaultMaxPerDomain bounds how many memories a domain file keeps.
const DefaultMaxPerDomain = 20

var logger *logging.Logger

func init() {
	logger = logging.NewLogger("memorystore")
}

// Entry is one stored memory.
type Entry struct {
	ID            string    `yaml:"id"`
	CreatedAt     time.Time `yaml:"createdAt"`
	SessionID     string    `yaml:"sessionId,omitempty"`
	memory.Record `yaml:",inline"`
}

// domainFile is the on-disk layout of one domain's memories.
type domainFile struct {
	Domain   string   `yaml:"domain"`
	Memories []*Entry `yaml:"memories"`
}

// Store is the read/write interface for domain memories.
type Store interface {
	Save(ctx context.Context, rec memory.Record, sessionID string) (*Entry, error)
	Lookup(ctx context.Context, domain string, limit int) ([]*Entry, error)
	List(ctx context.Context) ([]*Entry, error)
	Delete(ctx context.Context, id string) error
}

// FileStore keeps one YAML file per domain in a directory.
type FileStore struct {
	mu           sync.Mutex
	dir          string
	maxPerDomain int
}

// NewFileStore creates the directory if needed. maxPerDomain <= 0 uses the default.
func NewFileStore(dir string, maxPerDomain int) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("memorystore: init directory %s: %w", dir, err)
	}
	if maxPerDomain <= 0 {
		maxPerDomain = DefaultMaxPerDomain
	}
	return &FileStore{dir: dir, maxPerDomain: maxPerDomain}, nil
}

// Dir returns the directory memories are stored in.
func (fs *FileStore) Dir() string {
	return fs.dir
}

func (fs *FileStore) pathForDomain(domain string) (string, error) {
	if domain == "" {
		return "", fmt.Errorf("%w: empty domain", ErrInvalidRecord)
	}
	if strings.ContainsAny(domain, "/\\") || strings.Contains(domain, "..") {
		return "", fmt.Errorf("memorystore: invalid domain %q", domain)
	}
	dir, err := filepath.Abs(fs.dir)
	if err != nil {
		return "", fmt.Errorf("memorystore: abs dir: %w", err)
	}
	resolved := filepath.Join(dir, domain+".yaml")
	if !strings.HasPrefix(resolved, dir+string(filepath.Separator)) {
		return "", fmt.Errorf("memorystore: path traversal detected for domain %q", domain)
	}
	return resolved, nil
}

// Normalize reduces the record's domain to a bare host and validates the rest.
func Normalize(rec memory.Record) (memory.Record, error) {
	rec.Domain = memory.DomainOf(rec.Domain)
	rec.TaskDescription = strings.TrimSpace(rec.TaskDescription)

	seq := make([]string, 0, len(rec.ToolSequence))
	for _, name := range rec.ToolSequence {
		if name = strings.TrimSpace(name); name != "" {
			seq = append(seq, name)
		}
	}
	rec.ToolSequence = seq

	switch {
	case rec.Domain == "":
		return rec, fmt.Errorf("%w: domain is required", ErrInvalidRecord)
	case rec.TaskDescription == "":
		return rec, fmt.Errorf("%w: taskDescription is required", ErrInvalidRecord)
	case len(rec.ToolSequence) == 0:
		return rec, fmt.Errorf("%w: toolSequence is required", ErrInvalidRecord)
	}
	return rec, nil
}

// Save stores rec. Saving the same task and tool sequence again refreshes the
// existing entry instead of adding a duplicate. The oldest entries beyond the
// per-domain limit are dropped.
func (fs *FileStore) Save(_ context.Context, rec memory.Record, sessionID string) (*Entry, error) {
	rec, err := Normalize(rec)
	if err != nil {
		return nil, err
	}
	path, err := fs.pathForDomain(rec.Domain)
	if err != nil {
		return nil, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	file, err := readDomainFile(path)
	if errors.Is(err, os.ErrNotExist) {
		file = &domainFile{Domain: rec.Domain}
	} else if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var entry *Entry
	kept := file.Memories[:0]
	for _, e := range file.Memories {
		if entry == nil && sameMemory(e.Record, rec) {
			entry = e
			continue
		}
		kept = append(kept, e)
	}
	if entry == nil {
		entry = &Entry{ID: NewEntryID(), Record: rec}
	}
	entry.CreatedAt = now
	entry.SessionID = sessionID

	file.Memories = append(kept, entry)
	if over := len(file.Memories) - fs.maxPerDomain; over > 0 {
		file.Memories = file.Memories[over:]
	}

	if err := writeDomainFile(path, file); err != nil {
		return nil, err
	}
	logger.Debugf("Saved memory %s for %s", entry.ID, rec.Domain)
	return entry, nil
}

func sameMemory(a, b memory.Record) bool {
	if !strings.EqualFold(a.TaskDescription, b.TaskDescription) || len(a.ToolSequence) != len(b.ToolSequence) {
		return false
	}
	for i := range a.ToolSequence {
		if a.ToolSequence[i] != b.ToolSequence[i] {
			return false
		}
	}
	return true
}

// Lookup returns the domain's memories, newest first. limit <= 0 returns all.
func (fs *FileStore) Lookup(_ context.Context, domain string, limit int) ([]*Entry, error) {
	domain = memory.DomainOf(domain)
	if domain == "" {
		return nil, nil
	}
	path, err := fs.pathForDomain(domain)
	if err != nil {
		return nil, err
	}

	fs.mu.Lock()
	file, err := readDomainFile(path)
	fs.mu.Unlock()
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	out := newestFirst(file.Memories)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// List returns every memory of every domain, newest first. Corrupt files are skipped.
func (fs *FileStore) List(_ context.Context) ([]*Entry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("memorystore: list %s: %w", fs.dir, err)
	}

	var out []*Entry
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		path := filepath.Join(fs.dir, e.Name())
		file, err := readDomainFile(path)
		if err != nil {
			logger.Debugf("Skipping unreadable memory file %s: %v", path, err)
			continue
		}
		out = append(out, file.Memories...)
	}
	return newestFirst(out), nil
}

// Delete removes the memory with the given id.
func (fs *FileStore) Delete(_ context.Context, id string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return fmt.Errorf("memorystore: list %s: %w", fs.dir, err)
	}

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		path := filepath.Join(fs.dir, e.Name())
		file, err := readDomainFile(path)
		if err != nil {
			continue
		}
		for i, m := range file.Memories {
			if m.ID != id {
				continue
			}
			file.Memories = append(file.Memories[:i], file.Memories[i+1:]...)
			if len(file.Memories) == 0 {
				if err := os.Remove(path); err != nil {
					return fmt.Errorf("memorystore: remove %s: %w", path, err)
				}
				return nil
			}
			return writeDomainFile(path, file)
		}
	}
	return ErrNotFound
}

// newestFirst sorts by CreatedAt descending; ties keep reverse insertion order.
func newestFirst(entries []*Entry) []*Entry {
	out := make([]*Entry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func readDomainFile(path string) (*domainFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("memorystore: read %s: %w", path, err)
	}
	var file domainFile
	if err := yaml.Unmarshal(b, &file); err != nil {
		return nil, fmt.Errorf("memorystore: parse %s: %w", path, err)
	}
	for _, m := range file.Memories {
		if m.Domain == "" {
			m.Domain = file.Domain
		}
	}
	return &file, nil
}

// writeDomainFile replaces path atomically via a temporary file.
func writeDomainFile(path string, file *domainFile) error {
	b, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("memorystore: serialize: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("memorystore: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("memorystore: atomic rename %s: %w", path, err)
	}
	return nil
}

// NewEntryID generates a unique memory identifier.
func NewEntryID() string {
	return "mem_" + uuid.NewString()
}
