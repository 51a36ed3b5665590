package signer

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/teco-project/teco-core/credentials"
	"github.com/teco-project/teco-core/tcerr"
)

var testCred = credentials.New("AKIDEXAMPLE", "Gu5t9xGARNpq86cd98joQYCN3EXAMPLE")

func describeInstancesInput() SignInput {
	headers := make(http.Header)
	headers.Set("Content-Type", "application/json; charset=utf-8")
	headers.Set("Host", "cvm.tencentcloudapi.com")
	headers.Set("X-TC-Action", "DescribeInstances")
	return SignInput{
		Method:  "POST",
		URL:     "https://cvm.tencentcloudapi.com/",
		Headers: headers,
		Body:    []byte(`{"Limit": 1, "Filters": [{"Values": ["unnamed"], "Name": "instance-name"}]}`),
		Service: "cvm",
		Mode:    ModeMinimal,
		Time:    time.Unix(1551113065, 0),
	}
}

func TestSignHeadersVector(t *testing.T) {
	out, err := SignHeaders(describeInstancesInput(), testCred)
	if err != nil {
		t.Fatalf("SignHeaders: %v", err)
	}

	want := "TC3-HMAC-SHA256 Credential=AKIDEXAMPLE/2019-02-25/cvm/tc3_request, " +
		"SignedHeaders=content-type;host, " +
		"Signature=63eae8f4b793c20564dafd5a5f62817d6e8de7ce5d4fb2d38f7babf1531c493c"
	if got := out.Get(HeaderAuthorization); got != want {
		t.Errorf("Authorization:\n got %s\nwant %s", got, want)
	}
	if got := out.Get(HeaderTimestamp); got != "1551113065" {
		t.Errorf("X-TC-Timestamp = %s, want 1551113065", got)
	}
}

func TestSignHeadersDeterministic(t *testing.T) {
	first, err := SignHeaders(describeInstancesInput(), testCred)
	if err != nil {
		t.Fatalf("SignHeaders: %v", err)
	}
	second, err := SignHeaders(describeInstancesInput(), testCred)
	if err != nil {
		t.Fatalf("SignHeaders: %v", err)
	}
	if first.Get(HeaderAuthorization) != second.Get(HeaderAuthorization) {
		t.Errorf("signatures differ across identical inputs:\n%s\n%s",
			first.Get(HeaderAuthorization), second.Get(HeaderAuthorization))
	}
}

func TestSignHeadersHeaderCaseIndependent(t *testing.T) {
	// The same headers under different name casing must canonicalize
	// identically.
	in1 := describeInstancesInput()
	in2 := describeInstancesInput()
	in2.Headers = http.Header{
		"CONTENT-TYPE": {"application/json; charset=utf-8"},
		"host":         {"cvm.tencentcloudapi.com"},
		"x-tc-action":  {"DescribeInstances"},
	}

	out1, err := SignHeaders(in1, testCred)
	if err != nil {
		t.Fatalf("SignHeaders: %v", err)
	}
	out2, err := SignHeaders(in2, testCred)
	if err != nil {
		t.Fatalf("SignHeaders: %v", err)
	}
	if out1.Get(HeaderAuthorization) != out2.Get(HeaderAuthorization) {
		t.Errorf("signature depends on header name case:\n%s\n%s",
			out1.Get(HeaderAuthorization), out2.Get(HeaderAuthorization))
	}
}

func TestSignHeadersSingleEncoding(t *testing.T) {
	// Raw query items are encoded exactly once and never decoded first, so a
	// raw space and a pre-encoded %20 are different inputs with different
	// signatures.
	sign := func(rawQuery string) string {
		t.Helper()
		in := describeInstancesInput()
		in.Method = "GET"
		in.URL = "https://cvm.tencentcloudapi.com/?" + rawQuery
		in.Body = nil
		out, err := SignHeaders(in, testCred)
		if err != nil {
			t.Fatalf("SignHeaders(%q): %v", rawQuery, err)
		}
		return out.Get(HeaderAuthorization)
	}

	if raw, encoded := sign("k=a b"), sign("k=a%20b"); raw == encoded {
		t.Errorf("raw and pre-encoded query produced the same signature %s", raw)
	}
}

func TestCanonicalQueryString(t *testing.T) {
	tests := []struct {
		name     string
		rawQuery string
		want     string
	}{
		{"empty", "", ""},
		{"sorted by name", "b=2&a=1", "a=1&b=2"},
		{"sorted by value within name", "a=2&a=1", "a=1&a=2"},
		{"space encoded uppercase hex", "k=a b", "k=a%20b"},
		{"pre-encoded input encoded again", "k=a%20b", "k=a%2520b"},
		{"unreserved set kept", "k=a-b._~0Z", "k=a-b._~0Z"},
		{"missing value", "flag", "flag="},
		{"empty items dropped", "a=1&&b=2", "a=1&b=2"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := canonicalQueryString(tc.rawQuery); got != tc.want {
				t.Errorf("canonicalQueryString(%q) = %q, want %q", tc.rawQuery, got, tc.want)
			}
		})
	}
}

func TestEmptyBodyHash(t *testing.T) {
	if got := sha256Hex(nil); got != EmptyBodySHA256 {
		t.Errorf("sha256Hex(nil) = %s, want %s", got, EmptyBodySHA256)
	}
	if got := sha256Hex([]byte{}); got != EmptyBodySHA256 {
		t.Errorf("sha256Hex(empty) = %s, want %s", got, EmptyBodySHA256)
	}
}

func TestSignHeadersInvalidURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"unparseable", "://nope"},
		{"missing host", "/relative/only"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := describeInstancesInput()
			in.URL = tc.url
			_, err := SignHeaders(in, testCred)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if _, ok := err.(*tcerr.SignerError); !ok {
				t.Errorf("got %T, want *tcerr.SignerError", err)
			}
		})
	}
}

func TestSignHeadersSkipAuthorization(t *testing.T) {
	in := describeInstancesInput()
	in.Mode = ModeSkipAuthorization
	out, err := SignHeaders(in, testCred)
	if err != nil {
		t.Fatalf("SignHeaders: %v", err)
	}
	if got := out.Get(HeaderAuthorization); got != SkipAuthorizationValue {
		t.Errorf("Authorization = %s, want %s", got, SkipAuthorizationValue)
	}
	if got := out.Get(HeaderTimestamp); got == "" {
		t.Error("X-TC-Timestamp missing in skip mode")
	}
}

func TestSignHeadersModeDefault(t *testing.T) {
	in := describeInstancesInput()
	in.Mode = ModeDefault
	out, err := SignHeaders(in, testCred)
	if err != nil {
		t.Fatalf("SignHeaders: %v", err)
	}
	auth := out.Get(HeaderAuthorization)
	if !strings.Contains(auth, "SignedHeaders=content-type;host;x-tc-action,") {
		t.Errorf("default mode should sign all provided headers, got %s", auth)
	}
}

func TestSignHeadersSessionToken(t *testing.T) {
	cred := credentials.NewWithToken("AKIDEXAMPLE", "key", "session-token")

	out, err := SignHeaders(describeInstancesInput(), cred)
	if err != nil {
		t.Fatalf("SignHeaders: %v", err)
	}
	if got := out.Get(HeaderToken); got != "session-token" {
		t.Errorf("X-TC-Token = %q, want session-token", got)
	}

	in := describeInstancesInput()
	in.OmitSessionToken = true
	out, err = SignHeaders(in, cred)
	if err != nil {
		t.Fatalf("SignHeaders: %v", err)
	}
	if got := out.Get(HeaderToken); got != "" {
		t.Errorf("X-TC-Token = %q, want omitted", got)
	}
}

func TestSignHeadersDerivesHost(t *testing.T) {
	in := describeInstancesInput()
	in.Headers.Del("Host")
	out, err := SignHeaders(in, testCred)
	if err != nil {
		t.Fatalf("SignHeaders: %v", err)
	}
	if got := out.Get(HeaderHost); got != "cvm.tencentcloudapi.com" {
		t.Errorf("Host = %q, want cvm.tencentcloudapi.com", got)
	}
}

func TestEncodeQueryMatchesCanonical(t *testing.T) {
	raw := "b=x y&a=1"
	if got, want := EncodeQuery(raw), canonicalQueryString(raw); got != want {
		t.Errorf("EncodeQuery(%q) = %q, want %q", raw, got, want)
	}
}
