// Package image hides vendor image backends behind one Provider contract.
package image

import (
	"context"
	"fmt"
	"sort"

	"inviteai/internal/domain"
)

// Request is the vendor-neutral input for one unit of a batch.
type Request struct {
	Prompt         string
	NegativePrompt string
	ImageURL       string
	Model          domain.ModelDescriptor
	VariationIndex int
	Seed           int
}

// Output is either a remote URL the vendor owns or inline bytes. Neither is
// durable; the caller copies or uploads it.
type Output struct {
	Encoding      domain.OutputEncoding
	URL           string
	Data          []byte
	MIME          string
	ProviderJobID string
}

// Provider generates one image per call.
type Provider interface {
	GenerateImage(ctx context.Context, req Request) (*Output, error)
}

// Registry selects a Provider by the model's provider type. It is populated
// at startup and read-only afterwards.
type Registry struct {
	providers map[domain.ProviderType]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: map[domain.ProviderType]Provider{}}
}

// Register binds a provider type. Later registrations replace earlier ones.
func (r *Registry) Register(t domain.ProviderType, p Provider) *Registry {
	r.providers[t] = p
	return r
}

// For returns the provider serving model.
func (r *Registry) For(model domain.ModelDescriptor) (Provider, error) {
	p, ok := r.providers[model.ProviderType]
	if !ok || p == nil {
		return nil, fmt.Errorf("%w: no provider for %q (%s)", domain.ErrUnknownModel, model.ID, model.ProviderType)
	}
	return p, nil
}

// Types lists registered provider types.
func (r *Registry) Types() []domain.ProviderType {
	out := make([]domain.ProviderType, 0, len(r.providers))
	for t := range r.providers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// credentialed is implemented by vendor clients that may be unconfigured.
type credentialed interface {
	HasCredentials() bool
}

// fallbackProvider routes to fallback while the primary vendor has no key.
// Vendor errors are returned as-is so a failed unit is never replaced by a
// synthetic image.
type fallbackProvider struct {
	primary  Provider
	creds    credentialed
	fallback Provider
}

// WithFallback wraps primary so calls go to fallback when creds reports no key.
func WithFallback(primary Provider, creds credentialed, fallback Provider) Provider {
	if fallback == nil {
		return primary
	}
	return &fallbackProvider{primary: primary, creds: creds, fallback: fallback}
}

func (f *fallbackProvider) GenerateImage(ctx context.Context, req Request) (*Output, error) {
	if f.creds != nil && !f.creds.HasCredentials() {
		return f.fallback.GenerateImage(ctx, req)
	}
	return f.primary.GenerateImage(ctx, req)
}
