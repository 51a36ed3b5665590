// Package client implements the request pipeline that turns a typed service
// request into a signed, retried HTTP exchange and back into a typed
// response or structured error, plus paginated traversal and waiters on top
// of it. Generated service clients supply the typed models; everything
// cross-cutting lives here.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/teco-project/teco-core/signer"
)

// Protocol selects how an input is serialized onto the wire.
type Protocol int

const (
	// ProtocolJSON sends a JSON object body.
	ProtocolJSON Protocol = iota
	// ProtocolQuery sends form-encoded parameters: in the query string for
	// GET, in the body for POST.
	ProtocolQuery
	// ProtocolMultipart sends a multipart/form-data body.
	ProtocolMultipart
)

// InputModel is the capability every request type carries: which protocol
// serializes it. JSON inputs are marshaled directly; query inputs also
// implement QueryEncoder and multipart inputs MultipartEncoder.
type InputModel interface {
	Protocol() Protocol
}

// QueryEncoder is implemented by inputs using ProtocolQuery.
type QueryEncoder interface {
	// QueryValues returns the raw, unencoded parameters. Encoding happens
	// exactly once, inside the pipeline.
	QueryValues() (url.Values, error)
}

// MultipartEncoder is implemented by inputs using ProtocolMultipart.
type MultipartEncoder interface {
	// MultipartFields returns the form fields to send.
	MultipartFields() (map[string][]byte, error)
}

// ClientTokenCarrier is implemented by mutating inputs that support an
// idempotency token. When retries are enabled the pipeline injects a token
// into carriers that do not have one yet, so a resubmitted mutation is
// recognized by the service.
type ClientTokenCarrier interface {
	GetClientToken() string
	SetClientToken(token string)
}

// BaseResponse is embedded by generated output types; it captures the
// server-assigned request identifier.
type BaseResponse struct {
	RequestID string `json:"RequestId"`
}

// Content types produced by the pipeline.
const (
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// encodedInput is the serialized form of an input.
type encodedInput struct {
	// body is the request payload; nil for parameter-in-query requests.
	body []byte
	// contentType matches body.
	contentType string
	// rawQuery holds raw, unencoded query items for GET-style requests.
	rawQuery string
}

// encodeInput serializes in according to its protocol and the configured
// HTTP method.
func encodeInput(in InputModel, method string) (encodedInput, error) {
	switch in.Protocol() {
	case ProtocolJSON:
		body, err := json.Marshal(in)
		if err != nil {
			return encodedInput{}, fmt.Errorf("encoding request body: %w", err)
		}
		return encodedInput{body: body, contentType: contentTypeJSON}, nil

	case ProtocolQuery:
		qe, ok := in.(QueryEncoder)
		if !ok {
			return encodedInput{}, fmt.Errorf("input %T declares query protocol but implements no QueryValues", in)
		}
		values, err := qe.QueryValues()
		if err != nil {
			return encodedInput{}, fmt.Errorf("encoding request parameters: %w", err)
		}
		if method == "GET" {
			return encodedInput{rawQuery: rawJoin(values), contentType: contentTypeForm}, nil
		}
		return encodedInput{body: []byte(encodeForm(values)), contentType: contentTypeForm}, nil

	case ProtocolMultipart:
		me, ok := in.(MultipartEncoder)
		if !ok {
			return encodedInput{}, fmt.Errorf("input %T declares multipart protocol but implements no MultipartFields", in)
		}
		fields, err := me.MultipartFields()
		if err != nil {
			return encodedInput{}, fmt.Errorf("encoding multipart fields: %w", err)
		}
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for name, value := range fields {
			fw, err := w.CreateFormField(name)
			if err != nil {
				return encodedInput{}, fmt.Errorf("creating multipart field %q: %w", name, err)
			}
			if _, err := fw.Write(value); err != nil {
				return encodedInput{}, fmt.Errorf("writing multipart field %q: %w", name, err)
			}
		}
		if err := w.Close(); err != nil {
			return encodedInput{}, fmt.Errorf("finishing multipart body: %w", err)
		}
		return encodedInput{body: buf.Bytes(), contentType: w.FormDataContentType()}, nil
	}
	return encodedInput{}, fmt.Errorf("unknown protocol %d", in.Protocol())
}

// rawJoin joins values as raw name=value items for the GET query path. No
// encoding happens here; the signer and the wire URL builder encode exactly
// once.
func rawJoin(values url.Values) string {
	var sb bytes.Buffer
	first := true
	for name, vals := range values {
		for _, v := range vals {
			if !first {
				sb.WriteByte('&')
			}
			first = false
			sb.WriteString(name)
			sb.WriteByte('=')
			sb.WriteString(v)
		}
	}
	return sb.String()
}

// encodeForm builds a form body from values: each name and value is
// percent-encoded exactly once, pair by pair, so reserved characters inside
// a value cannot split or rename a field. Pairs are sorted by name then
// value for a deterministic body.
func encodeForm(values url.Values) string {
	type pair struct{ name, value string }
	pairs := make([]pair, 0, len(values))
	for name, vals := range values {
		encName := signer.PercentEncode(name)
		for _, v := range vals {
			pairs = append(pairs, pair{encName, signer.PercentEncode(v)})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].name != pairs[j].name {
			return pairs[i].name < pairs[j].name
		}
		return pairs[i].value < pairs[j].value
	})

	var sb bytes.Buffer
	for i, p := range pairs {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(p.name)
		sb.WriteByte('=')
		sb.WriteString(p.value)
	}
	return sb.String()
}

// cst is the fixed GMT+8 zone used by the legacy datetime wire format.
var cst = time.FixedZone("GMT+8", 8*60*60)

// Timestamp is a time encoded as integer seconds since the Unix epoch.
type Timestamp struct {
	time.Time
}

// MarshalJSON encodes the timestamp as an integer.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(t.Unix(), 10)), nil
}

// UnmarshalJSON decodes an integer number of seconds.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	sec, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("decoding epoch timestamp: %w", err)
	}
	t.Time = time.Unix(sec, 0).UTC()
	return nil
}

// dateTimeLayout is the legacy wire layout, always rendered in GMT+8.
const dateTimeLayout = "2006-01-02 15:04:05"

// DateTime is a time encoded as "yyyy-MM-dd HH:mm:ss" in GMT+8. ISO-8601
// fields use plain time.Time and its RFC 3339 encoding.
type DateTime struct {
	time.Time
}

// MarshalJSON encodes the time in the legacy layout.
func (t DateTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.In(cst).Format(dateTimeLayout) + `"`), nil
}

// UnmarshalJSON decodes the legacy layout.
func (t *DateTime) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("decoding datetime: %w", err)
	}
	parsed, err := time.ParseInLocation(dateTimeLayout, s, cst)
	if err != nil {
		return fmt.Errorf("decoding datetime: %w", err)
	}
	t.Time = parsed
	return nil
}
