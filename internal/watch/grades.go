package watch

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"gradewatch/internal/courses"
	"gradewatch/internal/notify"
	"gradewatch/internal/poller"
	"gradewatch/internal/portal"
	"gradewatch/internal/snapshot"
	"gradewatch/lib/assert"
	"gradewatch/lib/chrono"
	"gradewatch/lib/telemetry"
)

const (
	report_grades_fetch      = "grades.fetch"
	report_grades_notify     = "grades.notify"
	report_grades_persist    = "grades.persist"
	report_grades_unresolved = "grades.unresolved-target"
)

const GradesSubject = "Your Grades Have Been Updated!"

// GradeSource is the part of the portal client the grade watcher needs.
type GradeSource interface {
	FetchGrades(ctx context.Context) ([]portal.CourseGrade, error)
}

type GradesOptions struct {
	// TargetCourses restricts notifications to these courses, empty means every course.
	TargetCourses []string
	Clock         chrono.API
}

// Grades notifies when a tracked course goes from having no grade to having one.
type Grades struct {
	source   GradeSource
	notifier notify.Notifier
	store    snapshot.Store
	targets  []string
	clock    chrono.API
	tel      telemetry.API

	mu             sync.Mutex
	previous       snapshot.Snapshot
	lastUnresolved []string
}

// NewGrades loads the last persisted snapshot from store, a store with nothing
// persisted yet starts from an empty snapshot.
func NewGrades(
	source GradeSource,
	notifier notify.Notifier,
	store snapshot.Store,
	options GradesOptions,
	tel telemetry.API,
) (*Grades, error) {
	assert.NotNil(source, "source")
	assert.NotNil(notifier, "notifier")
	assert.NotNil(store, "store")
	assert.NotNil(tel, "tel")

	previous, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load grade snapshot: %w", err)
	}

	clock := options.Clock
	if clock == nil {
		clock, err = chrono.NewStandardImpl("")
		if err != nil {
			return nil, err
		}
	}

	return &Grades{
		source:   source,
		notifier: notifier,
		store:    store,
		targets:  options.TargetCourses,
		clock:    clock,
		tel:      telemetry.NewScopedAPI("watch", tel),
		previous: previous,
	}, nil
}

// Previous returns a copy of the snapshot the next tick compares against.
func (g *Grades) Previous() snapshot.Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.previous.Clone()
}

func toSnapshot(grades []portal.CourseGrade) snapshot.Snapshot {
	out := make(snapshot.Snapshot, len(grades))
	for _, g := range grades {
		out[g.Course] = g.Grade
	}
	return out
}

func (g *Grades) tracked(current snapshot.Snapshot) map[string]struct{} {
	if len(g.targets) == 0 {
		return nil
	}

	links, unresolved := courses.Resolve(g.targets, current.Courses())
	if !slices.Equal(unresolved, g.lastUnresolved) {
		for _, target := range unresolved {
			g.tel.ReportWarning(report_grades_unresolved, target)
		}
		g.lastUnresolved = unresolved
	}
	for _, l := range links {
		if l.Correlation < 1 {
			g.tel.ReportDebug("fuzzy target match", l.Target, l.Course, l.Correlation)
		}
	}
	return courses.Set(links)
}

// GradesBody renders the notification text for the given transitions.
func GradesBody(transitions []snapshot.Transition, detectedAt time.Time) string {
	var body strings.Builder
	body.WriteString("Your grades have been updated!\n\n")
	for _, t := range transitions {
		body.WriteString(fmt.Sprintf("%s: %s\n", t.Course, t.Grade))
	}
	body.WriteString(fmt.Sprintf("\nDetected at %s\n", detectedAt.Format("2006-01-02 15:04 MST")))
	return body.String()
}

// Tick fetches grades once, notifies about newly graded tracked courses and persists the
// new snapshot. Nothing is written or sent when the fetch fails.
func (g *Grades) Tick(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	fetched, err := g.source.FetchGrades(ctx)
	if err != nil {
		g.tel.ReportWarning(report_grades_fetch, err)
		return fmt.Errorf("fetch grades: %w", err)
	}
	current := toSnapshot(fetched)

	transitions := snapshot.Graded(g.previous, current, g.tracked(current))
	if len(transitions) == 0 {
		slog.InfoContext(ctx, "no new grade updates", "courses", len(current))
		return nil
	}

	err = g.notifier.Notify(ctx, GradesSubject, GradesBody(transitions, g.clock.Now()))
	if err != nil {
		g.tel.ReportBroken(report_grades_notify, err)
		return err
	}

	g.previous = current.Clone()
	err = g.store.Save(current)
	if err != nil {
		g.tel.ReportBroken(report_grades_persist, err)
		// the email already went out, retrying the tick would not rewrite the snapshot
		return poller.Permanent(fmt.Errorf("persist grade snapshot: %w", err))
	}
	return nil
}
