package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teco-project/teco-core/config"
	"github.com/teco-project/teco-core/credentials"
	"github.com/teco-project/teco-core/internal/metrics"
	"github.com/teco-project/teco-core/signer"
	"github.com/teco-project/teco-core/tcerr"
)

// Request headers set by the pipeline.
const (
	headerAction        = "X-TC-Action"
	headerVersion       = "X-TC-Version"
	headerRegion        = "X-TC-Region"
	headerLanguage      = "X-TC-Language"
	headerRequestClient = "X-TC-RequestClient"
)

// requestClientValue identifies the runtime on the wire.
const requestClientValue = "TECO-GO-SDK"

// maxResponseBytes bounds how much of a response body is buffered.
const maxResponseBytes = 16 << 20

// Client executes API calls against one service: encode, acquire
// credentials, sign, dispatch, decode, classify, retry. A Client is safe for
// concurrent use and cheap enough to keep for the process lifetime.
type Client struct {
	conf     config.ServiceConfig
	provider credentials.Provider
	http     *http.Client
	ownsHTTP bool
	retry    RetryPolicy
	signMode signer.Mode
	logger   *slog.Logger

	seq  atomic.Uint64
	down atomic.Bool
}

// Option customizes a Client at construction.
type Option func(*Client)

// WithHTTPClient supplies the HTTP client to dispatch through. The caller
// keeps ownership; Shutdown will not close its idle connections.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
		c.ownsHTTP = false
	}
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithSignMode overrides the signed header set, e.g. for transports that
// authenticate by other means.
func WithSignMode(m signer.Mode) Option {
	return func(c *Client) { c.signMode = m }
}

// New builds a Client for a service configuration and credential provider.
func New(conf config.ServiceConfig, provider credentials.Provider, opts ...Option) *Client {
	metrics.Register()
	c := &Client{
		conf:     conf,
		provider: provider,
		http:     &http.Client{},
		ownsHTTP: true,
		retry:    &DefaultRetryPolicy{},
		signMode: signer.ModeMinimal,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CallOption customizes a single call.
type CallOption func(*callSettings)

type callSettings struct {
	region *config.Region
}

// WithRegion overrides the configured region for one call; the endpoint is
// re-resolved under the override.
func WithRegion(r config.Region) CallOption {
	return func(s *callSettings) { s.region = &r }
}

// Execute runs one API operation: in is serialized per its protocol, the
// exchange is signed and dispatched with retries, and the Response envelope
// payload is decoded into out. out may be nil to discard the payload.
//
// Credential and signing failures surface without retry. The context, with
// the configured call timeout applied, bounds all attempts together.
func (c *Client) Execute(ctx context.Context, action string, in InputModel, out any, opts ...CallOption) error {
	if c.down.Load() {
		return tcerr.AlreadyShutdown("client")
	}

	var settings callSettings
	for _, opt := range opts {
		opt(&settings)
	}
	conf := c.conf
	if settings.region != nil {
		conf = conf.With(config.Patch{Region: settings.region})
	}

	logger := c.logger.With(
		"tc-service", conf.Service,
		"tc-action", action,
		"tc-call-seq", c.seq.Add(1),
	)

	ctx, cancel := context.WithTimeout(ctx, conf.RequestTimeout())
	defer cancel()

	// Mutations that carry an idempotency token get one before the first
	// attempt, so every resubmission replays the same mutation.
	if carrier, ok := in.(ClientTokenCarrier); ok {
		if _, noRetry := c.retry.(NoRetryPolicy); !noRetry && carrier.GetClientToken() == "" {
			carrier.SetClientToken(uuid.NewString())
		}
	}

	method := conf.RequestMethod()
	encoded, err := encodeInput(in, method)
	if err != nil {
		return err
	}
	endpoint := conf.ResolveEndpoint()

	start := time.Now()
	var lastErr error
	var lastStatus int
attempts:
	for attempt := 1; ; attempt++ {
		status, err := c.attempt(ctx, conf, action, method, endpoint, encoded, out)
		if err == nil {
			logger.Debug("call finished", "tc-attempts", attempt, "tc-elapsed", time.Since(start))
			metrics.RequestsTotal.WithLabelValues(conf.Service, action, "ok").Inc()
			metrics.RequestDuration.WithLabelValues(conf.Service, action).Observe(time.Since(start).Seconds())
			return nil
		}
		lastErr, lastStatus = err, status

		if finalFailure(err) {
			break
		}
		decision, delay := c.retry.ShouldRetry(attempt, time.Since(start), err, status)
		if decision == RetryIfIdempotent && method != "GET" {
			decision = DontRetry
		}
		if decision == DontRetry {
			break
		}
		logger.Warn("retrying call",
			"tc-attempt", attempt,
			"tc-delay", delay,
			"tc-error", err,
		)
		metrics.RetriesTotal.WithLabelValues(conf.Service, action).Inc()
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			lastErr = &tcerr.TransportError{Cause: ctx.Err()}
			break attempts
		}
	}

	metrics.RequestsTotal.WithLabelValues(conf.Service, action, outcomeCode(lastErr, lastStatus)).Inc()
	metrics.RequestDuration.WithLabelValues(conf.Service, action).Observe(time.Since(start).Seconds())
	logger.Error("call failed", "tc-error", lastErr, "tc-request-id", requestID(lastErr))
	return lastErr
}

// attempt performs a single wire exchange. It returns the HTTP status when a
// response arrived, for the retry policy's benefit.
func (c *Client) attempt(ctx context.Context, conf config.ServiceConfig, action, method, endpoint string, encoded encodedInput, out any) (int, error) {
	cred, err := c.provider.GetCredential(ctx)
	if err != nil {
		return 0, err
	}

	headers := make(http.Header)
	headers.Set("Content-Type", encoded.contentType)
	headers.Set(headerAction, action)
	headers.Set(headerVersion, conf.APIVersion)
	headers.Set(headerRequestClient, requestClientValue)
	if conf.Region != "" {
		headers.Set(headerRegion, string(conf.Region))
	}
	if conf.Language != "" {
		headers.Set(headerLanguage, conf.Language)
	}

	signURL := endpoint
	if encoded.rawQuery != "" {
		signURL += "?" + encoded.rawQuery
	}
	signed, err := signer.SignHeaders(signer.SignInput{
		Method:  method,
		URL:     signURL,
		Headers: headers,
		Body:    encoded.body,
		Service: conf.Service,
		Mode:    c.signMode,
		Time:    time.Now(),
	}, cred)
	if err != nil {
		return 0, err
	}
	for name, vals := range signed {
		headers[name] = vals
	}

	wireURL := endpoint
	if encoded.rawQuery != "" {
		wireURL += "?" + signer.EncodeQuery(encoded.rawQuery)
	}
	var body io.Reader
	if len(encoded.body) > 0 {
		body = bytes.NewReader(encoded.body)
	}
	req, err := http.NewRequestWithContext(ctx, method, wireURL, body)
	if err != nil {
		return 0, tcerr.InvalidURL(wireURL, err.Error())
	}
	for name, vals := range headers {
		if name == signer.HeaderHost {
			req.Host = vals[0]
			continue
		}
		req.Header[name] = vals
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &tcerr.TransportError{Cause: err}
	}
	defer resp.Body.Close()

	payload, err := readBody(resp)
	if err != nil {
		return resp.StatusCode, err
	}
	return resp.StatusCode, decodeResponse(conf, resp, payload, out)
}

// readBody buffers the response body, bounding it and checking the announced
// length was delivered.
func readBody(resp *http.Response) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, &tcerr.TransportError{Cause: err}
	}
	if int64(len(data)) > maxResponseBytes {
		return nil, tcerr.TooMuchData(maxResponseBytes)
	}
	if want := resp.ContentLength; want > 0 && int64(len(data)) < want {
		return nil, tcerr.NotEnoughData(int64(len(data)), want)
	}
	return data, nil
}

// decodeResponse unwraps the {"Response": ...} envelope, classifying service
// errors through the configured table. A body that is not the envelope, or a
// non-2xx response without a structured error, surfaces as a RawError.
func decodeResponse(conf config.ServiceConfig, resp *http.Response, payload []byte, out any) error {
	rawCtx := tcerr.ErrorContext{
		HTTPStatus: resp.StatusCode,
		Headers:    resp.Header,
	}

	var envelope struct {
		Response json.RawMessage `json:"Response"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil || envelope.Response == nil {
		return &tcerr.RawError{Status: resp.StatusCode, Body: payload, Context: rawCtx}
	}

	var probe struct {
		RequestID string          `json:"RequestId"`
		Error     json.RawMessage `json:"Error"`
	}
	if err := json.Unmarshal(envelope.Response, &probe); err != nil {
		return &tcerr.RawError{Status: resp.StatusCode, Body: payload, Context: rawCtx}
	}

	if len(probe.Error) > 0 && string(probe.Error) != "null" {
		var detail struct {
			Code    string `json:"Code"`
			Message string `json:"Message"`
		}
		if err := json.Unmarshal(probe.Error, &detail); err != nil {
			return &tcerr.RawError{Status: resp.StatusCode, Body: payload, Context: rawCtx}
		}
		errCtx := tcerr.ErrorContext{
			RequestID:  probe.RequestID,
			Message:    detail.Message,
			HTTPStatus: resp.StatusCode,
			Headers:    resp.Header,
			Fields:     errorFields(probe.Error),
		}
		if conf.ErrorTable != nil {
			if build := conf.ErrorTable.Lookup(detail.Code); build != nil {
				return build(errCtx)
			}
		}
		return &tcerr.ServiceError{Code: detail.Code, Context: errCtx}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rawCtx.RequestID = probe.RequestID
		return &tcerr.RawError{Status: resp.StatusCode, Body: payload, Context: rawCtx}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Response, out); err != nil {
		return &tcerr.RawError{
			Status:  resp.StatusCode,
			Body:    payload,
			Context: tcerr.ErrorContext{RequestID: probe.RequestID, Message: err.Error(), HTTPStatus: resp.StatusCode, Headers: resp.Header},
		}
	}
	return nil
}

// errorFields collects the members of an error payload beyond Code and
// Message, so service-specific diagnostics survive into the error context.
// It returns nil when the payload carries nothing extra.
func errorFields(raw json.RawMessage) map[string]string {
	var all map[string]any
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil
	}
	delete(all, "Code")
	delete(all, "Message")
	if len(all) == 0 {
		return nil
	}
	fields := make(map[string]string, len(all))
	for name, value := range all {
		if s, ok := value.(string); ok {
			fields[name] = s
			continue
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			continue
		}
		fields[name] = string(encoded)
	}
	return fields
}

// finalFailure reports error classes that never go back to the retry policy:
// failures before the wire exchange are not transient.
func finalFailure(err error) bool {
	var credErr *tcerr.CredentialError
	var signErr *tcerr.SignerError
	var clientErr *tcerr.ClientError
	return errors.As(err, &credErr) || errors.As(err, &signErr) || errors.As(err, &clientErr)
}

// outcomeCode labels a failed call for metrics.
func outcomeCode(err error, status int) string {
	var svcErr *tcerr.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	if status != 0 {
		return fmt.Sprintf("http_%d", status)
	}
	return "transport"
}

// requestID extracts the server request id from an error, if it carries one.
func requestID(err error) string {
	var svcErr *tcerr.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.RequestID()
	}
	var rawErr *tcerr.RawError
	if errors.As(err, &rawErr) {
		return rawErr.Context.RequestID
	}
	return ""
}

// Service returns the short service name this client calls.
func (c *Client) Service() string {
	return c.conf.Service
}

// Shutdown releases the client. In-flight calls finish; new calls fail with
// alreadyShutdown. The credential provider is shut down too, and owned HTTP
// transports drop their idle connections.
func (c *Client) Shutdown() {
	if !c.down.CompareAndSwap(false, true) {
		return
	}
	c.provider.Shutdown()
	if c.ownsHTTP {
		c.http.CloseIdleConnections()
	}
}

// defaultClient is the process-wide client used by the package-level Execute.
var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// SetDefault installs the process-wide default client. It may be set once;
// later calls report failure so conflicting initializations are visible.
func SetDefault(c *Client) error {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient != nil {
		return errors.New("default client already set")
	}
	defaultClient = c
	return nil
}

// Default returns the process-wide default client, or nil when unset.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultClient
}

// Execute runs an operation on the default client.
func Execute(ctx context.Context, action string, in InputModel, out any, opts ...CallOption) error {
	c := Default()
	if c == nil {
		return errors.New("no default client configured")
	}
	return c.Execute(ctx, action, in, out, opts...)
}
