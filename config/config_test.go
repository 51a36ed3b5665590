package config

import (
	"testing"
	"time"
)

func TestRegionIsolated(t *testing.T) {
	tests := []struct {
		region Region
		want   bool
	}{
		{RegionShanghaiFSI, true},
		{RegionShenzhenFSI, true},
		{RegionGuangzhou, false},
		{Region(""), false},
	}
	for _, tc := range tests {
		if got := tc.region.Isolated(); got != tc.want {
			t.Errorf("Isolated(%q) = %v, want %v", tc.region, got, tc.want)
		}
	}
}

func TestResolveEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		region   Region
		endpoint Endpoint
		want     string
	}{
		{
			name:   "global preference",
			region: RegionGuangzhou,
			want:   "https://cvm.tencentcloudapi.com",
		},
		{
			name:   "isolated region overrides global",
			region: RegionShanghaiFSI,
			want:   "https://cvm.ap-shanghai-fsi.tencentcloudapi.com",
		},
		{
			name:     "regional preference",
			region:   RegionGuangzhou,
			endpoint: RegionalEndpoint(),
			want:     "https://cvm.ap-guangzhou.tencentcloudapi.com",
		},
		{
			name:     "custom wins over region",
			region:   RegionShanghaiFSI,
			endpoint: CustomEndpoint("https://x"),
			want:     "https://x",
		},
		{
			name: "no region",
			want: "https://cvm.tencentcloudapi.com",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := ServiceConfig{Service: "cvm", Region: tc.region, Endpoint: tc.endpoint}
			if got := c.ResolveEndpoint(); got != tc.want {
				t.Errorf("ResolveEndpoint() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewReadsRegionFromEnv(t *testing.T) {
	t.Setenv(EnvRegion, "ap-tokyo")
	c := New("cvm", "2017-03-12")
	if c.Region != RegionTokyo {
		t.Errorf("Region = %q, want %q", c.Region, RegionTokyo)
	}
	if c.RequestMethod() != "POST" {
		t.Errorf("RequestMethod = %q, want POST", c.RequestMethod())
	}
	if c.RequestTimeout() != DefaultTimeout {
		t.Errorf("RequestTimeout = %v, want %v", c.RequestTimeout(), DefaultTimeout)
	}
}

func TestWithPatchRecomputesEndpoint(t *testing.T) {
	c := New("cvm", "2017-03-12")
	c.Region = RegionGuangzhou

	fsi := RegionShanghaiFSI
	patched := c.With(Patch{Region: &fsi})

	if got := patched.ResolveEndpoint(); got != "https://cvm.ap-shanghai-fsi.tencentcloudapi.com" {
		t.Errorf("patched endpoint = %q", got)
	}
	// The original is untouched.
	if got := c.ResolveEndpoint(); got != "https://cvm.tencentcloudapi.com" {
		t.Errorf("original endpoint = %q", got)
	}
}

func TestWithPatchFields(t *testing.T) {
	c := New("cvm", "2017-03-12")

	lang := "en-US"
	timeout := 5 * time.Second
	ep := CustomEndpoint("https://mock")
	patched := c.With(Patch{Language: &lang, Timeout: &timeout, Endpoint: &ep})

	if patched.Language != "en-US" {
		t.Errorf("Language = %q", patched.Language)
	}
	if patched.RequestTimeout() != timeout {
		t.Errorf("Timeout = %v", patched.RequestTimeout())
	}
	if patched.ResolveEndpoint() != "https://mock" {
		t.Errorf("Endpoint = %q", patched.ResolveEndpoint())
	}
	if c.Language != "" || c.ResolveEndpoint() == "https://mock" {
		t.Error("patch mutated the original config")
	}
}
