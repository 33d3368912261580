// Package secrets supplies the relay's service-account credentials for the
// commerce backend.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
)

var ErrMissingCredentials = errors.New("backend credentials are not configured")

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c Credentials) Valid() bool {
	return strings.TrimSpace(c.Username) != "" && c.Password != ""
}

type Provider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// StaticProvider returns credentials from configuration.
type StaticProvider struct {
	creds Credentials
}

func NewStaticProvider(username, password string) *StaticProvider {
	return &StaticProvider{creds: Credentials{Username: username, Password: password}}
}

func (p *StaticProvider) Credentials(context.Context) (Credentials, error) {
	if !p.creds.Valid() {
		return Credentials{}, ErrMissingCredentials
	}
	return p.creds, nil
}

type secretAccessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

// SecretManagerProvider reads a JSON {"username","password"} secret from
// Google Secret Manager on every call.
type SecretManagerProvider struct {
	sm     secretAccessor
	closer func() error
	name   string
}

// NewSecretManagerProvider builds the resource name
// projects/<project>/secrets/<secret>/versions/<version>.
func NewSecretManagerProvider(ctx context.Context, projectID, secretID, version string) (*SecretManagerProvider, error) {
	prj := strings.TrimSpace(projectID)
	if prj == "" {
		return nil, errors.New("secrets: projectID is empty")
	}
	sid := strings.TrimSpace(secretID)
	if sid == "" {
		return nil, errors.New("secrets: secretID is empty")
	}
	ver := strings.TrimSpace(version)
	if ver == "" {
		ver = "latest"
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("secretmanager client: %w", err)
	}

	return &SecretManagerProvider{
		sm:     client,
		closer: client.Close,
		name:   "projects/" + prj + "/secrets/" + sid + "/versions/" + ver,
	}, nil
}

func (p *SecretManagerProvider) Credentials(ctx context.Context) (Credentials, error) {
	resp, err := p.sm.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: p.name})
	if err != nil {
		return Credentials{}, fmt.Errorf("secrets: AccessSecretVersion failed (%s): %w", p.name, err)
	}
	if resp == nil || resp.Payload == nil {
		return Credentials{}, fmt.Errorf("secrets: empty payload (%s)", p.name)
	}
	return parseCredentials(resp.Payload.Data)
}

func (p *SecretManagerProvider) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

func parseCredentials(data []byte) (Credentials, error) {
	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return Credentials{}, fmt.Errorf("secrets: decode credentials: %w", err)
	}
	if !c.Valid() {
		return Credentials{}, ErrMissingCredentials
	}
	return c, nil
}
