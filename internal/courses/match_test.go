package courses

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestResolve(t *testing.T) {
	testCases := []struct {
		targets   []string
		available []string
		// if Link.Correlation == 0
		// the test will not assert the correlation to be equal
		expected   []Link
		unresolved []string
	}{
		{
			targets:   []string{"Cloud Computing", "Soft Computing"},
			available: []string{"Soft Computing", "Cloud Computing", "Web Engineering"},
			expected: []Link{
				{Target: "Cloud Computing", Course: "Cloud Computing", Correlation: 1},
				{Target: "Soft Computing", Course: "Soft Computing", Correlation: 1},
			},
		},
		{
			targets:   []string{"web engineering"},
			available: []string{"Web  Engineering"},
			expected: []Link{
				{Target: "web engineering", Course: "Web  Engineering", Correlation: 1},
			},
		},
		{
			targets:   []string{"Selected Topics in Software Engineering-1"},
			available: []string{"Selected Topics in Software Engineering - 1", "Soft Computing"},
			expected: []Link{
				{Target: "Selected Topics in Software Engineering-1", Course: "Selected Topics in Software Engineering - 1"},
			},
		},
		{
			targets:    []string{"Compilers"},
			available:  []string{"Cloud Computing"},
			unresolved: []string{"Compilers"},
		},
		{
			targets:    []string{"Cloud Computing"},
			available:  []string{},
			unresolved: []string{"Cloud Computing"},
		},
		{
			targets:   []string{},
			available: []string{"Cloud Computing"},
		},
	}

	for i, test := range testCases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			links, unresolved := Resolve(test.targets, test.available)

			ignoreCorrelation := cmp.Comparer(func(a, b Link) bool {
				if a.Target != b.Target || a.Course != b.Course {
					return false
				}
				if a.Correlation == 0 || b.Correlation == 0 {
					return true
				}
				return a.Correlation == b.Correlation
			})
			sortLinks := cmpopts.SortSlices(func(a, b Link) bool {
				return a.Target < b.Target
			})

			if diff := cmp.Diff(test.expected, links, ignoreCorrelation, sortLinks, cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("links mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(test.unresolved, unresolved, cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("unresolved mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSet(t *testing.T) {
	set := Set([]Link{{Target: "a", Course: "A"}, {Target: "b", Course: "B"}})
	if diff := cmp.Diff(map[string]struct{}{"A": {}, "B": {}}, set); diff != "" {
		t.Fatal(diff)
	}
}
