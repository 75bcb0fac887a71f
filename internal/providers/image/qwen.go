package image

import (
	"context"
	"fmt"
	"strings"

	"inviteai/internal/domain"
	"inviteai/internal/providers/qwen"
)

type qwenEditClient interface {
	Edit(context.Context, qwen.EditRequest) (*qwen.EditResult, error)
	HasCredentials() bool
}

// QwenProvider returns vendor URLs from DashScope image edit.
type QwenProvider struct {
	client qwenEditClient
}

func NewQwenProvider(client qwenEditClient) *QwenProvider {
	return &QwenProvider{client: client}
}

func (p *QwenProvider) HasCredentials() bool {
	return p != nil && p.client != nil && p.client.HasCredentials()
}

func (p *QwenProvider) GenerateImage(ctx context.Context, req Request) (*Output, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("qwen provider not configured")
	}
	editReq := qwen.EditRequest{
		Prompt:         req.Prompt,
		NegativePrompt: coalesce(req.NegativePrompt, DefaultNegativePrompt),
		ReferenceURL:   req.ImageURL,
		Model:          req.Model.VendorModel,
		Seed:           req.Seed,
	}
	res, err := p.client.Edit(ctx, editReq)
	if err != nil && isTransientQwenError(err) {
		res, err = p.client.Edit(ctx, simplify(editReq))
	}
	if err != nil {
		return nil, err
	}
	return &Output{
		Encoding:      domain.EncodingURL,
		URL:           res.URL,
		ProviderJobID: res.RequestID,
	}, nil
}

// simplify drops optional parameters DashScope sometimes rejects under load.
func simplify(req qwen.EditRequest) qwen.EditRequest {
	req.NegativePrompt = ""
	req.Seed = 0
	return req
}

func isTransientQwenError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"internalerror", "internal error", "service unavailable", "status 500", "status 502", "status 503", "invalidparameter"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

var _ Provider = (*QwenProvider)(nil)
