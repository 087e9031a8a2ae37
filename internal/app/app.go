package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gradewatch/internal/config"
	"gradewatch/internal/notify"
	"gradewatch/internal/poller"
	"gradewatch/internal/portal"
	"gradewatch/internal/snapshot"
	"gradewatch/internal/watch"
	"gradewatch/lib/assert"
	"gradewatch/lib/chrono"
	"gradewatch/lib/telemetry"

	"golang.org/x/sync/errgroup"
)

const (
	report_app_login = "app.login"
	report_app_alert = "app.alert"
)

const AlertSubject = "gradewatch stopped"

// App owns the portal client, the notifier and the watchers built from one Config.
type App struct {
	cfg      config.Config
	client   *portal.Client
	notifier notify.Notifier
	clock    chrono.API
	tel      telemetry.API
}

func New(cfg config.Config, notifier notify.Notifier, tel telemetry.API) (*App, error) {
	assert.NotNil(notifier, "notifier")
	assert.NotNil(tel, "tel")

	clock, err := chrono.NewStandardImpl(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	client, err := portal.NewClient(cfg.Portal, tel)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		client:   client,
		notifier: notifier,
		clock:    clock,
		tel:      tel,
	}, nil
}

// Client returns the portal client, Login must have succeeded before it can fetch.
func (a *App) Client() *portal.Client {
	return a.client
}

func (a *App) Clock() chrono.API {
	return a.clock
}

// Login authenticates once with the configured credentials and authorizes the client.
func (a *App) Login(ctx context.Context) error {
	token, err := a.client.Authenticate(ctx, a.cfg.Portal.Username, a.cfg.Portal.Password)
	if err != nil {
		a.tel.ReportBroken(report_app_login, err)
		return fmt.Errorf("login: %w", err)
	}
	a.client.Authorize(token)
	slog.InfoContext(ctx, "logged in to portal", "student_id", a.cfg.Portal.StudentId)
	return nil
}

// GradeStore returns the snapshot store selected by the grades mode.
func (a *App) GradeStore() snapshot.Store {
	if a.cfg.Grades.Mode == config.GradeModeMemory {
		return &snapshot.MemoryStore{}
	}
	return snapshot.NewFileStore(a.cfg.Grades.SnapshotPath)
}

// Tasks builds one polling task per enabled watcher.
func (a *App) Tasks() ([]poller.Task, error) {
	var tasks []poller.Task

	if a.cfg.Registration.Enabled {
		w := watch.NewRegistration(a.client, a.notifier, a.tel)
		tasks = append(tasks, poller.Task{
			Name:     "registration",
			Interval: a.cfg.Registration.Interval(),
			Step:     w.Tick,
			Policy:   poller.PolicyFromConfig(a.cfg.Registration.Retry),
		})
	}

	if a.cfg.Grades.Enabled {
		w, err := watch.NewGrades(a.client, a.notifier, a.GradeStore(), watch.GradesOptions{
			TargetCourses: a.cfg.Grades.TargetCourses,
			Clock:         a.clock,
		}, a.tel)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, poller.Task{
			Name:     "grades",
			Interval: a.cfg.Grades.Interval(),
			Step:     w.Tick,
			Policy:   poller.PolicyFromConfig(a.cfg.Grades.Retry),
		})
	}

	if len(tasks) == 0 {
		return nil, errors.New("no watchers enabled")
	}
	return tasks, nil
}

func (a *App) alert(ctx context.Context, name string, cause error) {
	body := fmt.Sprintf(
		"The %s watcher stopped at %s.\n\n%v\n",
		name,
		a.clock.Now().Format("2006-01-02 15:04:05 MST"),
		cause,
	)
	// ctx may already be cancelled by a shutdown signal
	err := a.notifier.Notify(context.WithoutCancel(ctx), AlertSubject, body)
	if err != nil {
		a.tel.ReportBroken(report_app_alert, err)
	}
}

// Run logs in and runs every enabled watcher until ctx is done. Nothing is started when
// login fails. A watcher that stops with an error does not stop the others, Run waits for
// all of them and returns the first error.
func (a *App) Run(ctx context.Context) error {
	err := a.Login(ctx)
	if err != nil {
		return err
	}
	tasks, err := a.Tasks()
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "starting watchers", "count", len(tasks), "timezone", a.clock.Location().String())
	var group errgroup.Group
	for _, task := range tasks {
		group.Go(func() error {
			slog.InfoContext(ctx, "starting watcher", "name", task.Name, "interval", task.Interval)
			err := poller.Run(ctx, task, a.tel)
			if err != nil {
				slog.ErrorContext(ctx, "watcher stopped", "name", task.Name, "err", err)
				if a.cfg.AlertOnFailure {
					a.alert(ctx, task.Name, err)
				}
				return err
			}
			slog.InfoContext(ctx, "watcher stopped", "name", task.Name)
			return nil
		})
	}
	return group.Wait()
}
