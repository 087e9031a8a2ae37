package poller

import (
	"context"
	"fmt"
	"time"

	"gradewatch/internal/config"
	"gradewatch/lib/telemetry"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	report_poller_step  = "poller.step"
	report_poller_ticks = "poller.ticks"
)

var meter = otel.Meter("gradewatch/internal/poller")

// Policy bounds how a failing step is retried before the loop gives up.
type Policy struct {
	// MaxRetries is the amount of retries after the first failed attempt of a tick,
	// a negative value retries until the context is done.
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// PolicyFromConfig converts the config representation of a retry policy.
func PolicyFromConfig(c config.RetryConfig) Policy {
	return Policy{
		MaxRetries:      c.MaxRetries,
		InitialInterval: time.Duration(c.InitialIntervalSeconds) * time.Second,
		MaxInterval:     time.Duration(c.MaxIntervalSeconds) * time.Second,
	}
}

func (p Policy) backoff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		exp.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		exp.MaxInterval = p.MaxInterval
	}
	if exp.MaxInterval < exp.InitialInterval {
		exp.MaxInterval = exp.InitialInterval
	}
	exp.MaxElapsedTime = 0

	var b backoff.BackOff = exp
	if p.MaxRetries >= 0 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxRetries))
	}
	return backoff.WithContext(b, ctx)
}

// Permanent marks err so that the loop terminates on it without retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Task is one polling loop.
type Task struct {
	Name     string
	Interval time.Duration
	// Step performs one tick, a returned error is retried according to Policy.
	Step   func(ctx context.Context) error
	Policy Policy
}

type counters struct {
	ticks    metric.Int64Counter
	failures metric.Int64Counter
}

func newCounters() counters {
	ticks, _ := meter.Int64Counter(
		"poller_ticks_total",
		metric.WithDescription("The total amount of ticks a poller has run."),
	)
	failures, _ := meter.Int64Counter(
		"poller_failures_total",
		metric.WithDescription("The total amount of failed step attempts."),
	)
	return counters{ticks: ticks, failures: failures}
}

// Run calls task.Step immediately and then every task.Interval until ctx is done.
//
// A failing step is retried with exponential backoff, once the retries of a tick are
// exhausted (or the step returned a Permanent error) Run returns the error. Run returns
// nil when ctx is done.
func Run(ctx context.Context, task Task, tel telemetry.API) error {
	if task.Interval <= 0 {
		return fmt.Errorf("%s: interval must be positive", task.Name)
	}
	tel = telemetry.NewScopedAPI(task.Name, tel)
	c := newCounters()
	attrs := metric.WithAttributes(attribute.String("task", task.Name))

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	var tickCount int64
	for {
		tickCount++
		c.ticks.Add(ctx, 1, attrs)
		tel.ReportCount(report_poller_ticks, tickCount)

		attempt := 0
		err := backoff.RetryNotify(
			func() error {
				attempt++
				return task.Step(ctx)
			},
			task.Policy.backoff(ctx),
			func(err error, next time.Duration) {
				c.failures.Add(ctx, 1, attrs)
				tel.ReportWarning(report_poller_step, err, attempt, next.String())
			},
		)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			c.failures.Add(ctx, 1, attrs)
			tel.ReportBroken(report_poller_step, err, attempt)
			return fmt.Errorf("%s: %w", task.Name, err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
