package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func grade(s string) *string {
	return &s
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "grades.json"))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Empty(t, loaded)

	snap := Snapshot{
		"Cloud Computing": grade("A+"),
		"Soft Computing":  nil,
		"Web Engineering": grade("85"),
	}
	require.NoError(t, store.Save(snap))

	// a fresh store over the same path behaves like a restarted process
	reloaded, err := NewFileStore(store.Path()).Load()
	require.NoError(t, err)
	if diff := cmp.Diff(snap, reloaded); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, store.Save(reloaded))
	again, err := store.Load()
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(snap, again))
}

func TestFileStoreFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grades.json")
	store := NewFileStore(path)
	require.NoError(t, store.Save(Snapshot{"A": grade("85"), "B": nil}))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"A": "85", "B": null}`, string(contents))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFileStoreReadsFlatObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grades.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"A": null, "B": "A+"}`), 0600))

	snap, err := NewFileStore(path).Load()
	require.NoError(t, err)
	require.Equal(t, Snapshot{"A": nil, "B": grade("A+")}, snap)
}

func TestFileStoreReadsLegacyNumericGrades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grades.json")
	contents := `{"Soft Computing": 85, "Web Engineering": 3.7, "Cloud Computing": null, "Compilers": "B"}`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))

	snap, err := NewFileStore(path).Load()
	require.NoError(t, err)
	require.Equal(t, Snapshot{
		"Soft Computing":  grade("85"),
		"Web Engineering": grade("3.7"),
		"Cloud Computing": nil,
		"Compilers":       grade("B"),
	}, snap)

	// a numeric grade that is re-fetched as a number does not count as a new grade
	require.Empty(t, Graded(snap, Snapshot{"Soft Computing": grade("85")}, nil))
}

func TestFileStoreRejectsUnsupportedGrade(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grades.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"A": {"letter": "B"}}`), 0600))

	_, err := NewFileStore(path).Load()
	require.ErrorContains(t, err, `course "A"`)
}

func TestDecodeGrade(t *testing.T) {
	testCases := []struct {
		raw      string
		expected *string
		err      bool
	}{
		{raw: `"A+"`, expected: grade("A+")},
		{raw: `85`, expected: grade("85")},
		{raw: `92.5`, expected: grade("92.5")},
		{raw: `null`},
		{raw: ``},
		{raw: `true`, err: true},
		{raw: `[1]`, err: true},
	}

	for _, test := range testCases {
		t.Run(test.raw, func(t *testing.T) {
			got, err := DecodeGrade([]byte(test.raw))
			if test.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.expected, got)
		})
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grades.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"A": `), 0600))

	_, err := NewFileStore(path).Load()
	require.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	store := &MemoryStore{}
	snap, err := store.Load()
	require.NoError(t, err)
	require.Empty(t, snap)

	original := Snapshot{"A": grade("85")}
	require.NoError(t, store.Save(original))
	*original["A"] = "changed"

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, "85", *loaded["A"])
}

func TestGraded(t *testing.T) {
	testCases := []struct {
		name     string
		previous Snapshot
		current  Snapshot
		tracked  map[string]struct{}
		expected []Transition
	}{
		{
			name:     "null to graded",
			previous: Snapshot{"A": nil},
			current:  Snapshot{"A": grade("85")},
			expected: []Transition{{Course: "A", Grade: "85"}},
		},
		{
			name:     "absent to graded",
			previous: Snapshot{},
			current:  Snapshot{"A": grade("85"), "B": nil},
			expected: []Transition{{Course: "A", Grade: "85"}},
		},
		{
			name:     "unchanged",
			previous: Snapshot{"A": grade("85")},
			current:  Snapshot{"A": grade("85")},
		},
		{
			name:     "grade changed is not a transition",
			previous: Snapshot{"A": grade("80")},
			current:  Snapshot{"A": grade("85")},
		},
		{
			name:     "grade removed is not a transition",
			previous: Snapshot{"A": grade("80")},
			current:  Snapshot{"A": nil},
		},
		{
			name:     "untracked courses are ignored",
			previous: Snapshot{},
			current:  Snapshot{"A": grade("85"), "B": grade("B+")},
			tracked:  map[string]struct{}{"B": {}},
			expected: []Transition{{Course: "B", Grade: "B+"}},
		},
		{
			name:     "sorted by course",
			previous: Snapshot{},
			current:  Snapshot{"b": grade("1"), "a": grade("2")},
			expected: []Transition{{Course: "a", Grade: "2"}, {Course: "b", Grade: "1"}},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			result := Graded(test.previous, test.current, test.tracked)
			if diff := cmp.Diff(test.expected, result); diff != "" {
				t.Fatalf("transitions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
