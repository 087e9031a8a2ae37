package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gradewatch/lib/configutil"

	"github.com/joho/godotenv"
)

type GradeMode string

const (
	// GradeModeSnapshot compares against a snapshot persisted on disk.
	GradeModeSnapshot GradeMode = "snapshot"
	// GradeModeMemory compares against a snapshot that only lives for the process.
	GradeModeMemory GradeMode = "memory"
)

type TLSMode string

const (
	TLSImplicit TLSMode = "implicit"
	TLSStartTLS TLSMode = "starttls"
)

type PortalConfig struct {
	BaseUrl        string `json:"base_url"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	StudentId      string `json:"student_id"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	// RequestsPerSecond caps outgoing requests, 0 uses the default.
	RequestsPerSecond float64 `json:"requests_per_second"`
	// DumpDir, when set, receives one file per http exchange with the portal.
	DumpDir string `json:"dump_dir"`
}

func (c PortalConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type SmtpConfig struct {
	Server   string  `json:"server"`
	Port     int     `json:"port"`
	TLS      TLSMode `json:"tls"`
	Sender   string  `json:"sender"`
	Password string  `json:"password"`
	Receiver string  `json:"receiver"`
}

type RetryConfig struct {
	// MaxRetries is the amount of retries after a failed tick, a negative value retries forever.
	MaxRetries             int `json:"max_retries"`
	InitialIntervalSeconds int `json:"initial_interval_seconds"`
	MaxIntervalSeconds     int `json:"max_interval_seconds"`
}

type RegistrationConfig struct {
	Enabled         bool        `json:"enabled"`
	IntervalSeconds int         `json:"interval_seconds"`
	Retry           RetryConfig `json:"retry"`
}

func (c RegistrationConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

type GradesConfig struct {
	Enabled         bool        `json:"enabled"`
	IntervalSeconds int         `json:"interval_seconds"`
	Mode            GradeMode   `json:"mode"`
	SnapshotPath    string      `json:"snapshot_path"`
	TargetCourses   []string    `json:"target_courses"`
	Retry           RetryConfig `json:"retry"`
}

func (c GradesConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Config is built once at startup and passed by value to every component.
type Config struct {
	Portal         PortalConfig       `json:"portal"`
	Smtp           SmtpConfig         `json:"smtp"`
	Registration   RegistrationConfig `json:"registration"`
	Grades         GradesConfig       `json:"grades"`
	Timezone       string             `json:"timezone"`
	AlertOnFailure bool               `json:"alert_on_failure"`
}

// DefaultTargetCourses is the tracked course set used when the config does not name one.
var DefaultTargetCourses = []string{
	"Soft Computing",
	"Cloud Computing",
	"Selected Topics in Software Engineering-1",
	"Web Engineering",
	"Selected Labs in Software Engineering",
}

func Default() Config {
	return Config{
		Portal: PortalConfig{
			BaseUrl:           "http://newecom.fci.cu.edu.eg",
			TimeoutSeconds:    30,
			RequestsPerSecond: 2,
		},
		Smtp: SmtpConfig{
			Server: "smtp.gmail.com",
			Port:   465,
			TLS:    TLSImplicit,
		},
		Registration: RegistrationConfig{
			Enabled:         true,
			IntervalSeconds: 30,
			Retry: RetryConfig{
				MaxRetries:             -1,
				InitialIntervalSeconds: 30,
				MaxIntervalSeconds:     600,
			},
		},
		Grades: GradesConfig{
			Enabled:         true,
			IntervalSeconds: 60,
			Mode:            GradeModeSnapshot,
			SnapshotPath:    "grades.json",
			TargetCourses:   DefaultTargetCourses,
			Retry: RetryConfig{
				MaxRetries:             0,
				InitialIntervalSeconds: 60,
				MaxIntervalSeconds:     600,
			},
		},
		Timezone: "Africa/Cairo",
	}
}

// environment variables understood by Load, they take precedence over config files.
const (
	EnvUsername = "ACC_USERNAME"
	EnvPassword = "PASSWORD"
	EnvStudent  = "STUDENT_ID"
	EnvSender   = "SENDER_EMAIL"
	EnvAppPass  = "APP_PASSWORD"
	EnvReceiver = "RECEIVER_EMAIL"
	EnvBaseUrl  = "PORTAL_BASE_URL"
)

// Load builds the config from, in increasing priority:
// 1. Default()
// 2. <path> and <path minus ext>.local.<ext> (json5), if present
// 3. a .env file in the working directory, if present
// 4. process environment variables
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		fileCfg, err := configutil.ReadConfig[fileConfig](path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			fileCfg.apply(&cfg)
		}
	}

	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	ApplyEnv(&cfg, os.LookupEnv)

	return cfg, nil
}

// ApplyEnv overrides cfg with any of the recognized environment variables that are set
// to a non-blank value, a blank assignment (PASSWORD= in a .env file) keeps the file value.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		if ok && v != "" {
			*dst = v
		}
	}
	set(&cfg.Portal.Username, EnvUsername)
	set(&cfg.Portal.Password, EnvPassword)
	set(&cfg.Portal.StudentId, EnvStudent)
	set(&cfg.Portal.BaseUrl, EnvBaseUrl)
	set(&cfg.Smtp.Sender, EnvSender)
	set(&cfg.Smtp.Password, EnvAppPass)
	set(&cfg.Smtp.Receiver, EnvReceiver)
}

// Validate returns every problem with the config joined into one error.
func (c Config) Validate() error {
	var errs []error
	missing := func(value, name string) {
		if value == "" {
			errs = append(errs, fmt.Errorf("missing %s", name))
		}
	}
	missing(c.Portal.BaseUrl, "portal.base_url")
	missing(c.Portal.Username, fmt.Sprintf("portal.username (%s)", EnvUsername))
	missing(c.Portal.Password, fmt.Sprintf("portal.password (%s)", EnvPassword))
	missing(c.Portal.StudentId, fmt.Sprintf("portal.student_id (%s)", EnvStudent))
	missing(c.Smtp.Server, "smtp.server")
	missing(c.Smtp.Sender, fmt.Sprintf("smtp.sender (%s)", EnvSender))
	missing(c.Smtp.Password, fmt.Sprintf("smtp.password (%s)", EnvAppPass))
	missing(c.Smtp.Receiver, fmt.Sprintf("smtp.receiver (%s)", EnvReceiver))

	if c.Smtp.Port <= 0 {
		errs = append(errs, fmt.Errorf("invalid smtp.port %d", c.Smtp.Port))
	}
	switch c.Smtp.TLS {
	case TLSImplicit, TLSStartTLS:
	default:
		errs = append(errs, fmt.Errorf("invalid smtp.tls %q", c.Smtp.TLS))
	}
	if c.Registration.Enabled && c.Registration.IntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("invalid registration.interval_seconds %d", c.Registration.IntervalSeconds))
	}
	if c.Grades.Enabled {
		if c.Grades.IntervalSeconds <= 0 {
			errs = append(errs, fmt.Errorf("invalid grades.interval_seconds %d", c.Grades.IntervalSeconds))
		}
		switch c.Grades.Mode {
		case GradeModeMemory:
		case GradeModeSnapshot:
			missing(c.Grades.SnapshotPath, "grades.snapshot_path")
		default:
			errs = append(errs, fmt.Errorf("invalid grades.mode %q", c.Grades.Mode))
		}
	}
	if !c.Registration.Enabled && !c.Grades.Enabled {
		errs = append(errs, fmt.Errorf("both registration and grades watchers are disabled"))
	}

	return errors.Join(errs...)
}
