package config

// fileConfig mirrors Config with pointer fields so that values explicitly set in a
// config file (including false and 0) can be told apart from values left out.
type fileConfig struct {
	Portal struct {
		BaseUrl           *string  `json:"base_url"`
		Username          *string  `json:"username"`
		Password          *string  `json:"password"`
		StudentId         *string  `json:"student_id"`
		TimeoutSeconds    *int     `json:"timeout_seconds"`
		RequestsPerSecond *float64 `json:"requests_per_second"`
		DumpDir           *string  `json:"dump_dir"`
	} `json:"portal"`
	Smtp struct {
		Server   *string  `json:"server"`
		Port     *int     `json:"port"`
		TLS      *TLSMode `json:"tls"`
		Sender   *string  `json:"sender"`
		Password *string  `json:"password"`
		Receiver *string  `json:"receiver"`
	} `json:"smtp"`
	Registration struct {
		Enabled         *bool           `json:"enabled"`
		IntervalSeconds *int            `json:"interval_seconds"`
		Retry           fileRetryConfig `json:"retry"`
	} `json:"registration"`
	Grades struct {
		Enabled         *bool           `json:"enabled"`
		IntervalSeconds *int            `json:"interval_seconds"`
		Mode            *GradeMode      `json:"mode"`
		SnapshotPath    *string         `json:"snapshot_path"`
		TargetCourses   *[]string       `json:"target_courses"`
		Retry           fileRetryConfig `json:"retry"`
	} `json:"grades"`
	Timezone       *string `json:"timezone"`
	AlertOnFailure *bool   `json:"alert_on_failure"`
}

type fileRetryConfig struct {
	MaxRetries             *int `json:"max_retries"`
	InitialIntervalSeconds *int `json:"initial_interval_seconds"`
	MaxIntervalSeconds     *int `json:"max_interval_seconds"`
}

func override[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (r fileRetryConfig) apply(dst *RetryConfig) {
	override(&dst.MaxRetries, r.MaxRetries)
	override(&dst.InitialIntervalSeconds, r.InitialIntervalSeconds)
	override(&dst.MaxIntervalSeconds, r.MaxIntervalSeconds)
}

func (f fileConfig) apply(cfg *Config) {
	override(&cfg.Portal.BaseUrl, f.Portal.BaseUrl)
	override(&cfg.Portal.Username, f.Portal.Username)
	override(&cfg.Portal.Password, f.Portal.Password)
	override(&cfg.Portal.StudentId, f.Portal.StudentId)
	override(&cfg.Portal.TimeoutSeconds, f.Portal.TimeoutSeconds)
	override(&cfg.Portal.RequestsPerSecond, f.Portal.RequestsPerSecond)
	override(&cfg.Portal.DumpDir, f.Portal.DumpDir)

	override(&cfg.Smtp.Server, f.Smtp.Server)
	override(&cfg.Smtp.Port, f.Smtp.Port)
	override(&cfg.Smtp.TLS, f.Smtp.TLS)
	override(&cfg.Smtp.Sender, f.Smtp.Sender)
	override(&cfg.Smtp.Password, f.Smtp.Password)
	override(&cfg.Smtp.Receiver, f.Smtp.Receiver)

	override(&cfg.Registration.Enabled, f.Registration.Enabled)
	override(&cfg.Registration.IntervalSeconds, f.Registration.IntervalSeconds)
	f.Registration.Retry.apply(&cfg.Registration.Retry)

	override(&cfg.Grades.Enabled, f.Grades.Enabled)
	override(&cfg.Grades.IntervalSeconds, f.Grades.IntervalSeconds)
	override(&cfg.Grades.Mode, f.Grades.Mode)
	override(&cfg.Grades.SnapshotPath, f.Grades.SnapshotPath)
	override(&cfg.Grades.TargetCourses, f.Grades.TargetCourses)
	f.Grades.Retry.apply(&cfg.Grades.Retry)

	override(&cfg.Timezone, f.Timezone)
	override(&cfg.AlertOnFailure, f.AlertOnFailure)
}
