package courses

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// MinCorrelation is the lowest Jaro-Winkler similarity at which a target is linked to a
// course name that does not match it exactly.
const MinCorrelation = 0.9

type Link struct {
	Target      string
	Course      string
	Correlation float64
}

func normalize(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Resolve links each target course name to one of the course names the portal returned.
// Exact matches (ignoring case and repeated whitespace) are linked first, then each
// remaining target is linked to the most similar remaining course if the similarity is at
// least MinCorrelation. Targets that cannot be linked are returned in unresolved.
func Resolve(targets, available []string) (links []Link, unresolved []string) {
	matchedTarget := make(map[string]struct{})
	matchedCourse := make(map[string]struct{})

	for _, target := range targets {
		for _, course := range available {
			if _, ok := matchedCourse[course]; ok {
				continue
			}
			if normalize(target) == normalize(course) {
				links = append(links, Link{
					Target:      target,
					Course:      course,
					Correlation: 1,
				})
				matchedTarget[target] = struct{}{}
				matchedCourse[course] = struct{}{}
				break
			}
		}
	}

	for _, target := range targets {
		if _, ok := matchedTarget[target]; ok {
			continue
		}

		var mostSimilarity float64
		var mostSimilarCourse string

		for _, course := range available {
			if _, ok := matchedCourse[course]; ok {
				continue
			}

			similarity := matchr.JaroWinkler(normalize(target), normalize(course), false)
			if similarity > mostSimilarity {
				mostSimilarity = similarity
				mostSimilarCourse = course
			}
		}

		if mostSimilarity < MinCorrelation {
			unresolved = append(unresolved, target)
			continue
		}
		links = append(links, Link{
			Target:      target,
			Course:      mostSimilarCourse,
			Correlation: mostSimilarity,
		})
		matchedTarget[target] = struct{}{}
		matchedCourse[mostSimilarCourse] = struct{}{}
	}

	return links, unresolved
}

// Set returns the linked course names as a lookup set.
func Set(links []Link) map[string]struct{} {
	out := make(map[string]struct{}, len(links))
	for _, l := range links {
		out[l.Course] = struct{}{}
	}
	return out
}
