package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gradewatch/lib/assert"
)

// Snapshot maps a course name to its last seen grade, nil means not graded yet.
type Snapshot map[string]*string

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for course, grade := range s {
		if grade == nil {
			out[course] = nil
			continue
		}
		g := *grade
		out[course] = &g
	}
	return out
}

// Courses returns the course names in sorted order.
func (s Snapshot) Courses() []string {
	courses := make([]string, 0, len(s))
	for course := range s {
		courses = append(courses, course)
	}
	sort.Strings(courses)
	return courses
}

// DecodeGrade normalizes a raw grade value, the portal (and snapshots written by
// older versions) use strings ("A+"), numbers (85) or null.
func DecodeGrade(raw json.RawMessage) (*string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return &str, nil
	}

	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		str = num.String()
		return &str, nil
	}

	return nil, fmt.Errorf("unsupported grade value %s", string(raw))
}

// Transition is a course that went from no grade to a grade.
type Transition struct {
	Course string
	Grade  string
}

// Graded returns every course that has no grade in previous (absent or null) but has
// one in current, sorted by course name. When tracked is non-nil only courses in it
// are considered.
func Graded(previous, current Snapshot, tracked map[string]struct{}) []Transition {
	var out []Transition
	for _, course := range current.Courses() {
		if tracked != nil {
			if _, ok := tracked[course]; !ok {
				continue
			}
		}
		grade := current[course]
		if grade == nil {
			continue
		}
		if old := previous[course]; old != nil {
			continue
		}
		out = append(out, Transition{Course: course, Grade: *grade})
	}
	return out
}

// Store is the interface the grade watcher persists its snapshot through.
//
// note: fault injection point
type Store interface {
	Load() (Snapshot, error)
	Save(Snapshot) error
}

// FileStore keeps the snapshot as a flat json object in a single file.
type FileStore struct {
	path string
}

func NewFileStore(path string) FileStore {
	assert.NotEmptyStr(path, "path")
	return FileStore{path: path}
}

func (f FileStore) Path() string {
	return f.path
}

// Load reads the snapshot, a missing file is an empty snapshot.
func (f FileStore) Load() (Snapshot, error) {
	contents, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, nil
	}
	if err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	err = json.Unmarshal(contents, &raw)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", f.path, err)
	}

	out := make(Snapshot, len(raw))
	for course, value := range raw {
		grade, err := DecodeGrade(value)
		if err != nil {
			return nil, fmt.Errorf("decode snapshot %s: course %q: %w", f.path, course, err)
		}
		out[course] = grade
	}
	return out, nil
}

// Save writes the snapshot to a temporary file in the same directory and renames it over
// the previous one, so a crash never leaves a truncated snapshot behind.
func (f FileStore) Save(snap Snapshot) error {
	contents, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	_, err = tmp.Write(contents)
	if err != nil {
		cleanup()
		return err
	}
	err = tmp.Sync()
	if err != nil {
		cleanup()
		return err
	}
	err = tmp.Close()
	if err != nil {
		os.Remove(tmpName)
		return err
	}

	err = os.Rename(tmpName, f.path)
	if err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// MemoryStore keeps the snapshot for the lifetime of the process only.
type MemoryStore struct {
	mu   sync.Mutex
	snap Snapshot
}

func (m *MemoryStore) Load() (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return Snapshot{}, nil
	}
	return m.snap.Clone(), nil
}

func (m *MemoryStore) Save(snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap.Clone()
	return nil
}
