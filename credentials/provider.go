package credentials

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/ini.v1"

	"github.com/teco-project/teco-core/tcerr"
)

// Environment variables consulted by EnvProvider.
const (
	EnvSecretID  = "TENCENTCLOUD_SECRET_ID"
	EnvSecretKey = "TENCENTCLOUD_SECRET_KEY"
	EnvToken     = "TENCENTCLOUD_TOKEN"
)

// DefaultProfilePath is the well-known credentials file location. The tilde
// is expanded against the current user's home directory.
const DefaultProfilePath = "~/.tencentcloud/credentials"

// DefaultProfileSection is the INI section read when none is configured.
const DefaultProfileSection = "default"

// Provider is a source of signing credentials. All implementations are safe
// for concurrent use. Shutdown is idempotent; calls after Shutdown fail with
// an alreadyShutdown client error.
type Provider interface {
	// GetCredential returns a credential, honoring the context deadline.
	GetCredential(ctx context.Context) (Credential, error)
	// Shutdown releases any resources held by the provider.
	Shutdown()
}

// StaticProvider returns a fixed credential on every call.
type StaticProvider struct {
	cred Credential
	down atomic.Bool
}

// NewStaticProvider wraps a fixed credential in a Provider.
func NewStaticProvider(cred Credential) *StaticProvider {
	return &StaticProvider{cred: cred}
}

// GetCredential implements Provider.
func (p *StaticProvider) GetCredential(ctx context.Context) (Credential, error) {
	if p.down.Load() {
		return nil, tcerr.AlreadyShutdown("static credential provider")
	}
	return p.cred, nil
}

// Shutdown implements Provider.
func (p *StaticProvider) Shutdown() { p.down.Store(true) }

// EnvProvider reads TENCENTCLOUD_SECRET_ID, TENCENTCLOUD_SECRET_KEY and the
// optional TENCENTCLOUD_TOKEN on first call and caches the result.
type EnvProvider struct {
	once sync.Once
	cred Credential
	err  error
	down atomic.Bool
}

// NewEnvProvider returns a provider backed by the process environment.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{}
}

// GetCredential implements Provider.
func (p *EnvProvider) GetCredential(ctx context.Context) (Credential, error) {
	if p.down.Load() {
		return nil, tcerr.AlreadyShutdown("environment credential provider")
	}
	p.once.Do(func() {
		id := os.Getenv(EnvSecretID)
		key := os.Getenv(EnvSecretKey)
		if id == "" || key == "" {
			p.err = tcerr.NoProvider(fmt.Sprintf("%s and %s are not both set", EnvSecretID, EnvSecretKey))
			return
		}
		p.cred = NewWithToken(id, key, os.Getenv(EnvToken))
	})
	return p.cred, p.err
}

// Shutdown implements Provider.
func (p *EnvProvider) Shutdown() { p.down.Store(true) }

// FileProvider reads a credential from an INI profile file. The expected
// layout is the one written by the official CLI:
//
//	[default]
//	secret_id  = AKID...
//	secret_key = ...
//	token      = ...          ; optional
type FileProvider struct {
	// Path is the credentials file location; DefaultProfilePath when empty.
	Path string
	// Section is the profile section name; DefaultProfileSection when empty.
	Section string

	down atomic.Bool
}

// NewFileProvider returns a provider reading the given path and section.
// Empty arguments select the defaults.
func NewFileProvider(path, section string) *FileProvider {
	return &FileProvider{Path: path, Section: section}
}

// GetCredential implements Provider. I/O and parse failures are reported as
// noProvider so a chain can move on; a present but incomplete profile is
// invalidCredentials and aborts the chain.
func (p *FileProvider) GetCredential(ctx context.Context) (Credential, error) {
	if p.down.Load() {
		return nil, tcerr.AlreadyShutdown("file credential provider")
	}

	path := p.Path
	if path == "" {
		path = DefaultProfilePath
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, tcerr.NoProviderCause("expanding credentials path", err)
	}

	file, err := ini.Load(expanded)
	if err != nil {
		return nil, tcerr.NoProviderCause(fmt.Sprintf("reading credentials file %s", expanded), err)
	}

	section := p.Section
	if section == "" {
		section = DefaultProfileSection
	}
	sec, err := file.GetSection(section)
	if err != nil {
		return nil, tcerr.NoProviderCause(fmt.Sprintf("section %q not found in %s", section, expanded), err)
	}

	id := sec.Key("secret_id").String()
	key := sec.Key("secret_key").String()
	if id == "" || key == "" {
		return nil, tcerr.InvalidCredentials(fmt.Sprintf("section %q in %s is missing secret_id or secret_key", section, expanded))
	}
	return NewWithToken(id, key, sec.Key("token").String()), nil
}

// Shutdown implements Provider.
func (p *FileProvider) Shutdown() { p.down.Store(true) }

// NullProvider always fails with noProvider. It is useful as a chain
// terminator and as a stand-in in tests.
type NullProvider struct{}

// GetCredential implements Provider.
func (NullProvider) GetCredential(ctx context.Context) (Credential, error) {
	return nil, tcerr.NoProvider("null credential provider")
}

// Shutdown implements Provider.
func (NullProvider) Shutdown() {}

// DefaultChainProvider returns the default resolution order — environment
// variables, then the profile file — wrapped in a TemporaryProvider so that
// expiring credentials are cached and refreshed.
func DefaultChainProvider() Provider {
	return NewTemporaryProvider(NewChain(NewEnvProvider(), NewFileProvider("", "")))
}
