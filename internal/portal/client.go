package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gradewatch/internal/config"
	"gradewatch/lib/assert"
	"gradewatch/lib/restyutil"
	"gradewatch/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

const (
	report_client_authenticate       = "client.authenticate"
	report_client_fetch_registration = "client.fetch-registration"
	report_client_fetch_grades       = "client.fetch-grades"
)

const (
	authenticatePath = "/api/authenticate"
	registrationPath = "/api/student-registration-courses"
	gradesPath       = "/api/student-courses"
)

var tracer = otel.Tracer("gradewatch/internal/portal")

var (
	// ErrMissingCredentials is returned by Authenticate when the username or password is empty,
	// no request is made in that case.
	ErrMissingCredentials = errors.New("missing portal credentials")
	ErrAuthFailed         = errors.New("portal authentication failed")
	ErrUnexpectedStatus   = errors.New("unexpected response status")
	// ErrUnexpectedResponse is returned when the body does not have the expected shape.
	ErrUnexpectedResponse = errors.New("unexpected response format")
	ErrNotAuthorized      = errors.New("client has no session token")
)

// Client talks to the university portal API. Authorize must be called with the token
// returned by Authenticate before any fetch, after that the client is only read.
type Client struct {
	http      *resty.Client
	studentId string
	token     string
	tel       telemetry.API
}

func NewClient(cfg config.PortalConfig, tel telemetry.API) (*Client, error) {
	assert.NotNil(tel, "tel")
	if cfg.BaseUrl == "" {
		return nil, fmt.Errorf("portal base url is empty")
	}

	tel = telemetry.NewScopedAPI("portal", tel)

	httpClient := resty.New()
	httpClient.SetBaseURL(cfg.BaseUrl)
	httpClient.SetHeader("accept", "application/json")
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = time.Second * 30
	}
	httpClient.SetTimeout(timeout)

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	// max burst >= 2 just means that no requests will be dropped
	rateLimiter := rate.NewLimiter(rate.Limit(rps), 2)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel)

	if cfg.DumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(cfg.DumpDir)
		if err != nil {
			return nil, fmt.Errorf("http dump dir: %w", err)
		}
		restyutil.DumpExchanges(httpClient, output)
	}

	return &Client{
		http:      httpClient,
		studentId: cfg.StudentId,
		tel:       tel,
	}, nil
}

type authenticateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authenticateResponse struct {
	IdToken string `json:"id_token"`
}

// Authenticate exchanges the credentials for a bearer token.
func (c *Client) Authenticate(ctx context.Context, username, password string) (string, error) {
	ctx, span := tracer.Start(ctx, "Authenticate")
	defer span.End()

	if username == "" || password == "" {
		span.SetStatus(codes.Error, "missing credentials")
		return "", ErrMissingCredentials
	}

	var body authenticateResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(authenticateRequest{Username: username, Password: password}).
		SetResult(&body).
		Post(authenticatePath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		c.tel.ReportBroken(report_client_authenticate, err)
		return "", fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}
	if res.StatusCode() != http.StatusOK {
		err := fmt.Errorf("%w: status %d", ErrAuthFailed, res.StatusCode())
		span.SetStatus(codes.Error, "non-200 status")
		c.tel.ReportBroken(report_client_authenticate, err)
		return "", err
	}
	if body.IdToken == "" {
		err := fmt.Errorf("%w: response has no id_token", ErrAuthFailed)
		span.SetStatus(codes.Error, "empty token")
		c.tel.ReportBroken(report_client_authenticate, err)
		return "", err
	}

	return body.IdToken, nil
}

// Authorize sets the bearer token used by every following request.
func (c *Client) Authorize(token string) {
	c.token = token
	c.http.SetAuthToken(token)
}

func (c *Client) get(ctx context.Context, reportId, path string, query map[string]string) (*resty.Response, error) {
	if c.token == "" {
		return nil, ErrNotAuthorized
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		c.tel.ReportBroken(reportId, err)
		return nil, err
	}
	if res.StatusCode() != http.StatusOK {
		err := fmt.Errorf("%w: %s", ErrUnexpectedStatus, res.Status())
		c.tel.ReportBroken(reportId, err)
		return nil, err
	}
	return res, nil
}

// FetchRegistration returns the current course-registration status of the student.
func (c *Client) FetchRegistration(ctx context.Context) (RegistrationStatus, error) {
	ctx, span := tracer.Start(ctx, "FetchRegistration")
	defer span.End()

	res, err := c.get(ctx, report_client_fetch_registration, registrationPath, map[string]string{
		"studentId": c.studentId,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return RegistrationStatus{}, err
	}

	status, err := decodeRegistration(res.Body())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		c.tel.ReportBroken(report_client_fetch_registration, err)
		return RegistrationStatus{}, err
	}
	return status, nil
}

// FetchGrades returns every course the student is enrolled in (withdrawn included) and its grade.
func (c *Client) FetchGrades(ctx context.Context) ([]CourseGrade, error) {
	ctx, span := tracer.Start(ctx, "FetchGrades")
	defer span.End()

	res, err := c.get(ctx, report_client_fetch_grades, gradesPath, map[string]string{
		"size":                   "150",
		"studentId.equals":       c.studentId,
		"includeWithdraw.equals": "true",
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}

	grades, err := decodeGrades(res.Body())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		c.tel.ReportBroken(report_client_fetch_grades, err)
		return nil, err
	}
	c.tel.ReportDebug("fetched grades", len(grades))
	return grades, nil
}
