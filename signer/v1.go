package signer

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"hash"
	"net/url"
	"sort"
	"strings"
)

// V1Algorithm selects the keyed hash used by the legacy V1 signature.
type V1Algorithm string

const (
	// HmacSHA1 is the historical default for V1 signing.
	HmacSHA1 V1Algorithm = "HmacSHA1"
	// HmacSHA256 is the stronger V1 variant.
	HmacSHA256 V1Algorithm = "HmacSHA256"
)

// SignV1 computes the legacy flat Signature parameter over
// "{METHOD}{host}{path}?{sortedQuery}", where sortedQuery joins the
// parameters as name=value pairs sorted by name. Values are used raw; V1
// performs no percent-encoding inside the string to sign. The result is the
// base64 signature to place in the Signature parameter.
//
// It is exposed for GET-style legacy endpoints and for building COS V5
// presigned URLs; like the V3 signer it is a pure function of its inputs.
func SignV1(method, host, path string, params map[string]string, secretKey string, algo V1Algorithm) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString(strings.ToUpper(method))
	sb.WriteString(host)
	if path == "" {
		path = "/"
	}
	sb.WriteString(path)
	sb.WriteByte('?')
	for i, name := range names {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(name)
		sb.WriteByte('=')
		sb.WriteString(params[name])
	}

	var mac hash.Hash
	if algo == HmacSHA256 {
		mac = hmac.New(sha256.New, []byte(secretKey))
	} else {
		mac = hmac.New(sha1.New, []byte(secretKey))
	}
	mac.Write([]byte(sb.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// PresignV1 returns a complete GET URL carrying the V1 Signature parameter,
// suitable for handing to clients that cannot sign themselves. The params
// must already include the action, timestamp, nonce and credential id
// expected by the target endpoint.
func PresignV1(scheme, host, path string, params map[string]string, secretKey string, algo V1Algorithm) string {
	signature := SignV1("GET", host, path, params, secretKey, algo)

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString(scheme)
	sb.WriteString("://")
	sb.WriteString(host)
	if path == "" {
		path = "/"
	}
	sb.WriteString(path)
	sb.WriteByte('?')
	for i, name := range names {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(name))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(params[name]))
	}
	sb.WriteString("&Signature=")
	sb.WriteString(url.QueryEscape(signature))
	return sb.String()
}
