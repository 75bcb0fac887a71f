package image

import (
	"context"
	"fmt"

	"inviteai/internal/domain"
	"inviteai/internal/providers/genai"
)

type geminiImageClient interface {
	EditImage(context.Context, genai.EditRequest) (*genai.InlineImage, error)
	HasCredentials() bool
}

// GeminiProvider returns inline image bytes.
type GeminiProvider struct {
	client geminiImageClient
}

func NewGeminiProvider(client geminiImageClient) *GeminiProvider {
	return &GeminiProvider{client: client}
}

func (p *GeminiProvider) HasCredentials() bool {
	return p != nil && p.client != nil && p.client.HasCredentials()
}

func (p *GeminiProvider) GenerateImage(ctx context.Context, req Request) (*Output, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("gemini provider not configured")
	}
	img, err := p.client.EditImage(ctx, genai.EditRequest{
		Model:        req.Model.VendorModel,
		Prompt:       req.Prompt,
		ReferenceURL: req.ImageURL,
		Seed:         req.Seed,
	})
	if err != nil {
		return nil, err
	}
	if len(img.Data) == 0 {
		return nil, fmt.Errorf("gemini returned an empty image")
	}
	return &Output{
		Encoding:      domain.EncodingInline,
		Data:          img.Data,
		MIME:          normalizeMIME(img.MIME),
		ProviderJobID: img.ResponseID,
	}, nil
}

var _ Provider = (*GeminiProvider)(nil)
