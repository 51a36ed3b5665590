// Package signer implements the TC3-HMAC-SHA256 request signature (V3) and
// the legacy flat-parameter signature (V1).
//
// The V3 signature is a deterministic function of the request and the
// signing time: canonical request, string to sign, derived key chain, hex
// signature. Given identical inputs it always produces identical headers.
package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/teco-project/teco-core/credentials"
	"github.com/teco-project/teco-core/tcerr"
)

const (
	// Algorithm is the V3 signature algorithm identifier.
	Algorithm = "TC3-HMAC-SHA256"

	// scopeTerminator is the fixed suffix of the credential scope.
	scopeTerminator = "tc3_request"

	// scopeDateFormat is the date portion of the credential scope, in UTC.
	scopeDateFormat = "2006-01-02"

	// EmptyBodySHA256 is the SHA-256 hash of zero bytes.
	EmptyBodySHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
)

// Injected header names.
const (
	HeaderAuthorization = "Authorization"
	HeaderHost          = "Host"
	HeaderTimestamp     = "X-TC-Timestamp"
	HeaderToken         = "X-TC-Token"
)

// SkipAuthorizationValue is the Authorization value set in skip mode, for
// transports that authenticate by other means.
const SkipAuthorizationValue = "SKIP"

// Mode selects which headers participate in the signature.
type Mode int

const (
	// ModeDefault signs every header the caller provides.
	ModeDefault Mode = iota
	// ModeSkipAuthorization sets Authorization: SKIP and performs no
	// derivation.
	ModeSkipAuthorization
	// ModeMinimal signs only content-type and host, even when the request
	// carries more headers. This is the signed set the public API expects.
	ModeMinimal
)

// SignInput collects everything the V3 signature is a function of.
type SignInput struct {
	// Method is the HTTP method, GET or POST.
	Method string
	// URL is the absolute request URL. Query items are taken as raw and
	// percent-encoded exactly once during canonicalization.
	URL string
	// Headers are the request headers available for signing. At minimum
	// Content-Type should be present; Host is derived from URL when absent.
	Headers http.Header
	// Body is the request payload; nil or empty hashes as the empty string.
	Body []byte
	// Service is the short service name bound into the credential scope.
	Service string
	// Mode selects the signed header set.
	Mode Mode
	// OmitSessionToken suppresses the X-TC-Token header even when the
	// credential carries one.
	OmitSessionToken bool
	// Time is the signing instant; its UTC date enters the scope.
	Time time.Time
}

// SignHeaders produces the headers to add or overwrite on the request so the
// server accepts it as authentic: Authorization, X-TC-Timestamp, Host when
// not already set, and X-TC-Token when the credential carries one.
func SignHeaders(in SignInput, cred credentials.Credential) (http.Header, error) {
	u, err := url.Parse(in.URL)
	if err != nil {
		return nil, tcerr.InvalidURL(in.URL, err.Error())
	}
	if u.Host == "" {
		return nil, tcerr.InvalidURL(in.URL, "missing host")
	}

	timestamp := in.Time.Unix()
	out := make(http.Header)
	out.Set(HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	if in.Headers.Get(HeaderHost) == "" {
		out.Set(HeaderHost, u.Host)
	}
	if token := cred.Token(); token != "" && !in.OmitSessionToken {
		out.Set(HeaderToken, token)
	}

	if in.Mode == ModeSkipAuthorization {
		out.Set(HeaderAuthorization, SkipAuthorizationValue)
		return out, nil
	}

	host := in.Headers.Get(HeaderHost)
	if host == "" {
		host = u.Host
	}

	names, canonicalHeaders := canonicalHeaderSet(in.Headers, host, in.Mode)
	signedHeaders := strings.Join(names, ";")

	canonicalRequest := strings.ToUpper(in.Method) + "\n" +
		canonicalURI(u) + "\n" +
		canonicalQueryString(u.RawQuery) + "\n" +
		canonicalHeaders + "\n" +
		signedHeaders + "\n" +
		sha256Hex(in.Body)

	date := in.Time.UTC().Format(scopeDateFormat)
	scope := date + "/" + in.Service + "/" + scopeTerminator
	stringToSign := Algorithm + "\n" +
		strconv.FormatInt(timestamp, 10) + "\n" +
		scope + "\n" +
		sha256Hex([]byte(canonicalRequest))

	key := deriveSigningKey(cred.SecretKey(), date, in.Service)
	signature := hex.EncodeToString(hmacSHA256(key, stringToSign))

	out.Set(HeaderAuthorization,
		Algorithm+" Credential="+cred.SecretID()+"/"+scope+
			", SignedHeaders="+signedHeaders+
			", Signature="+signature)
	return out, nil
}

// PercentEncode applies the RFC 3986 unreserved-set encoding with uppercase
// hex digits: the same single application the canonical query string uses,
// exposed for callers that encode name/value pairs themselves.
func PercentEncode(s string) string {
	return percentEncode(s)
}

// EncodeQuery canonicalizes raw query items for the wire: encoded once,
// sorted by name then value. The result is byte-identical to the canonical
// query string entering the signature, so a GET request sends exactly the
// bytes it signed.
func EncodeQuery(rawQuery string) string {
	return canonicalQueryString(rawQuery)
}

// canonicalURI returns the path component; an empty path contributes "/".
func canonicalURI(u *url.URL) string {
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

// canonicalQueryString encodes the raw query items exactly once: items are
// split on '&' and the first '=', percent-encoded with the RFC 3986
// unreserved set, sorted by name then value, and joined with '&'. The raw
// items are never decoded first, so pre-encoded input is encoded again and
// yields a distinct signature by design of the single-application rule.
func canonicalQueryString(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	type pair struct{ name, value string }
	var pairs []pair
	for _, item := range strings.Split(rawQuery, "&") {
		if item == "" {
			continue
		}
		name, value, _ := strings.Cut(item, "=")
		pairs = append(pairs, pair{percentEncode(name), percentEncode(value)})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].name != pairs[j].name {
			return pairs[i].name < pairs[j].name
		}
		return pairs[i].value < pairs[j].value
	})
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.name + "=" + p.value
	}
	return strings.Join(parts, "&")
}

// canonicalHeaderSet returns the sorted lowercase signed header names and
// the canonical headers block (name:value\n per header). Content-type and
// host are always part of the set; ModeMinimal signs nothing else.
func canonicalHeaderSet(headers http.Header, host string, mode Mode) ([]string, string) {
	values := map[string]string{
		"host": strings.TrimSpace(host),
	}
	for name, vals := range headers {
		lower := strings.ToLower(name)
		if mode == ModeMinimal && lower != "content-type" && lower != "host" {
			continue
		}
		if len(vals) == 0 {
			continue
		}
		values[lower] = strings.TrimSpace(vals[0])
	}
	if _, ok := values["content-type"]; !ok {
		values["content-type"] = ""
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(name)
		sb.WriteByte(':')
		sb.WriteString(values[name])
		sb.WriteByte('\n')
	}
	return names, sb.String()
}

// deriveSigningKey runs the TC3 key chain: date, then service, then the
// scope terminator.
func deriveSigningKey(secretKey, date, service string) []byte {
	kDate := hmacSHA256([]byte("TC3"+secretKey), date)
	kService := hmacSHA256(kDate, service)
	return hmacSHA256(kService, scopeTerminator)
}

// percentEncode applies RFC 3986 percent-encoding with the unreserved set
// (alphanumerics plus "-._~") and uppercase hex digits.
func percentEncode(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			sb.WriteByte(c)
		} else {
			sb.WriteByte('%')
			sb.WriteByte(upperHexDigit(c >> 4))
			sb.WriteByte(upperHexDigit(c & 0x0f))
		}
	}
	return sb.String()
}

// isUnreserved reports whether c needs no encoding.
func isUnreserved(c byte) bool {
	return (c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '.' || c == '_' || c == '~'
}

// upperHexDigit returns the uppercase hex digit for a 4-bit value.
func upperHexDigit(b byte) byte {
	if b < 10 {
		return '0' + b
	}
	return 'A' + b - 10
}

// sha256Hex returns the lowercase hex SHA-256 of data.
func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hmacSHA256 computes HMAC-SHA256 of data under key.
func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}
