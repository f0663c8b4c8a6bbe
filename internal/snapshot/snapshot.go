// Package snapshot persists editor sessions to local files or S3.
//
// A target is a URL:
//
//	file:///var/lib/obsedit/session.json
//	s3://bucket/sessions/demo.json
package snapshot

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/obsedit/obsedit/internal/errors"
	"github.com/obsedit/obsedit/pkg/editor"
)

// ErrNotFound is returned by Load when no snapshot exists at the target.
var ErrNotFound = stderrors.New("snapshot: not found")

// Snapshot is the persisted state of a session.
type Snapshot struct {
	Text       string             `json:"text"`
	VersionID  int                `json:"versionId"`
	Selections []editor.Selection `json:"selections"`
	Focused    bool               `json:"focused,omitempty"`

	// Entries are the log entries not yet drained when the snapshot was
	// taken, or the full replay log.
	Entries []string `json:"entries,omitempty"`

	TakenAt time.Time `json:"takenAt"`
}

// Capture returns the current state of ed.
func Capture(ed *editor.Editor, entries []string) Snapshot {
	return Snapshot{
		Text:       ed.Model().Value(),
		VersionID:  ed.Model().VersionID(),
		Selections: ed.Selections(),
		Focused:    ed.Focused(),
		Entries:    entries,
		TakenAt:    time.Now().UTC(),
	}
}

// Store saves and loads one snapshot.
type Store interface {
	Save(ctx context.Context, s Snapshot) error
	Load(ctx context.Context) (Snapshot, error)

	// Target returns the URL the store writes to.
	Target() string
}

// Options configures Open.
type Options struct {
	// Region and Endpoint configure the S3 client for s3:// targets.
	Region   string
	Endpoint string
}

// Open returns the store for target.
func Open(target string, opts Options) (Store, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, errors.New("E300").WithDetail(target).Wrap(err)
	}

	switch u.Scheme {
	case "file":
		path := u.Path
		if u.Host != "" && u.Host != "localhost" {
			// file://relative/path
			path = filepath.Join(u.Host, u.Path)
		}
		if path == "" {
			return nil, errors.New("E300").WithDetail("file target " + target + " has no path")
		}
		return NewFileStore(path), nil
	case "s3":
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, errors.New("E300").
				WithDetail("s3 target " + target + " needs a bucket and a key").
				WithSuggestion("Use s3://bucket/path/to/snapshot.json")
		}
		return NewS3Store(newS3Client(opts), u.Host, key), nil
	default:
		return nil, errors.New("E300").
			WithDetail(fmt.Sprintf("unsupported scheme %q in %s", u.Scheme, target))
	}
}

func encode(s Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func decode(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: decode: %w", err)
	}
	return s, nil
}

// FileStore stores a snapshot in a local file.
type FileStore struct {
	path string
}

// NewFileStore creates a store writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Target implements Store.
func (f *FileStore) Target() string { return "file://" + filepath.ToSlash(f.path) }

// Save writes s atomically by renaming a temp file over the target.
func (f *FileStore) Save(_ context.Context, s Snapshot) error {
	data, err := encode(s)
	if err != nil {
		return errors.New("E301").Wrap(err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return errors.New("E301").Wrap(err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.New("E301").Wrap(err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return errors.New("E301").Wrap(err)
	}
	return nil
}

// Load implements Store.
func (f *FileStore) Load(_ context.Context) (Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, err
	}
	return decode(data)
}
