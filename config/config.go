// Package config holds the per-service configuration consumed by the
// request pipeline: region, API version, endpoint preference and resolution,
// timeouts, and the optional service error table.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/teco-project/teco-core/tcerr"
)

// rootDomain is the public API apex domain.
const rootDomain = "tencentcloudapi.com"

// isolatedSuffix marks regions unreachable through the global endpoint.
const isolatedSuffix = "-fsi"

// EnvRegion is the environment variable consulted by RegionFromEnv.
const EnvRegion = "TENCENTCLOUD_REGION"

// DefaultTimeout is the per-call deadline applied when none is configured.
const DefaultTimeout = 20 * time.Second

// Region tags a request with a geographic service region.
type Region string

// Well-known regions.
const (
	RegionBeijing     Region = "ap-beijing"
	RegionChengdu     Region = "ap-chengdu"
	RegionGuangzhou   Region = "ap-guangzhou"
	RegionHongKong    Region = "ap-hongkong"
	RegionNanjing     Region = "ap-nanjing"
	RegionShanghai    Region = "ap-shanghai"
	RegionShanghaiFSI Region = "ap-shanghai-fsi"
	RegionShenzhenFSI Region = "ap-shenzhen-fsi"
	RegionSingapore   Region = "ap-singapore"
	RegionTokyo       Region = "ap-tokyo"
	RegionFrankfurt   Region = "eu-frankfurt"
	RegionAshburn     Region = "na-ashburn"
	RegionSiliconValley Region = "na-siliconvalley"
)

// Isolated reports whether the region is reachable only through its own
// regional endpoint. Isolation is a name-suffix property.
func (r Region) Isolated() bool {
	return strings.HasSuffix(string(r), isolatedSuffix)
}

// Hostname returns the API host for a service in this region. The global
// host is used unless the region is isolated or regional addressing is
// preferred.
func (r Region) Hostname(service string, preferRegional bool) string {
	if r != "" && (preferRegional || r.Isolated()) {
		return service + "." + string(r) + "." + rootDomain
	}
	return service + "." + rootDomain
}

// RegionFromEnv returns the region named by TENCENTCLOUD_REGION, or "".
func RegionFromEnv() Region {
	return Region(os.Getenv(EnvRegion))
}

// endpointKind discriminates Endpoint values.
type endpointKind int

const (
	endpointGlobal endpointKind = iota
	endpointRegional
	endpointCustom
)

// Endpoint expresses an endpoint preference: the global apex host, the
// region-qualified host, or a fixed custom URL.
type Endpoint struct {
	kind endpointKind
	url  string
}

// GlobalEndpoint prefers the region-less apex host. Isolated regions still
// resolve regionally.
func GlobalEndpoint() Endpoint { return Endpoint{kind: endpointGlobal} }

// RegionalEndpoint always resolves to the region-qualified host.
func RegionalEndpoint() Endpoint { return Endpoint{kind: endpointRegional} }

// CustomEndpoint pins resolution to the given URL regardless of region.
func CustomEndpoint(url string) Endpoint { return Endpoint{kind: endpointCustom, url: url} }

// ServiceConfig is the immutable per-service configuration. Use With to
// derive a patched copy.
type ServiceConfig struct {
	// Region tags requests and participates in endpoint resolution.
	Region Region
	// Service is the short service name, e.g. "cvm".
	Service string
	// APIVersion is the service API version, e.g. "2017-03-12".
	APIVersion string
	// Language selects response text language: "zh-CN" or "en-US".
	Language string
	// Endpoint is the endpoint preference; zero value means global.
	Endpoint Endpoint
	// Method is the HTTP method used by the service protocol, GET or POST.
	// Empty means POST.
	Method string
	// Timeout bounds a single call end to end; zero means DefaultTimeout.
	Timeout time.Duration
	// ErrorTable maps service error codes to typed errors; may be nil.
	ErrorTable tcerr.Table
}

// New returns a ServiceConfig for a service and API version with the region
// taken from the environment and defaults applied.
func New(service, apiVersion string) ServiceConfig {
	return ServiceConfig{
		Region:     RegionFromEnv(),
		Service:    service,
		APIVersion: apiVersion,
		Method:     "POST",
		Timeout:    DefaultTimeout,
	}
}

// ResolveEndpoint returns the URL requests are sent to. A custom preference
// wins unconditionally; otherwise the host follows Region.Hostname with
// regional preference honored.
func (c ServiceConfig) ResolveEndpoint() string {
	if c.Endpoint.kind == endpointCustom {
		return c.Endpoint.url
	}
	return "https://" + c.Region.Hostname(c.Service, c.Endpoint.kind == endpointRegional)
}

// RequestTimeout returns the effective per-call deadline.
func (c ServiceConfig) RequestTimeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// RequestMethod returns the effective HTTP method.
func (c ServiceConfig) RequestMethod() string {
	if c.Method == "" {
		return "POST"
	}
	return strings.ToUpper(c.Method)
}

// Patch describes a partial update applied by With. Nil fields are left
// unchanged. Changing the region without changing the endpoint preference
// recomputes the endpoint from the existing preference and the new region,
// which falls out of resolution being lazy.
type Patch struct {
	Region   *Region
	Language *string
	Endpoint *Endpoint
	Timeout  *time.Duration
}

// With returns a copy of the config with the patch applied.
func (c ServiceConfig) With(p Patch) ServiceConfig {
	out := c
	if p.Region != nil {
		out.Region = *p.Region
	}
	if p.Language != nil {
		out.Language = *p.Language
	}
	if p.Endpoint != nil {
		out.Endpoint = *p.Endpoint
	}
	if p.Timeout != nil {
		out.Timeout = *p.Timeout
	}
	return out
}
