package genai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxReferenceBytes = 12 << 20

// EditRequest asks the image model to restyle a reference photo.
type EditRequest struct {
	Model        string
	Prompt       string
	ReferenceURL string
	Seed         int
}

// InlineImage is image bytes returned directly in the response body.
type InlineImage struct {
	Data       []byte
	MIME       string
	ResponseID string
}

// EditImage downloads the reference image, sends it inline with the prompt
// and returns the first image part of the response.
func (c *Client) EditImage(ctx context.Context, req EditRequest) (*InlineImage, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("genai: prompt is required")
	}
	parts := []part{{Text: prompt}}
	if ref := strings.TrimSpace(req.ReferenceURL); ref != "" {
		data, mime, err := c.fetchReference(ctx, ref)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part{InlineData: &inlineData{MimeType: mime, Data: base64.StdEncoding.EncodeToString(data)}})
	}
	cfg := &generationConfig{ResponseModalities: []string{"TEXT", "IMAGE"}}
	if req.Seed > 0 {
		seed := req.Seed
		cfg.Seed = &seed
	}

	resp, err := c.generate(ctx, req.Model, generateContentRequest{
		Contents:         []content{{Role: "user", Parts: parts}},
		GenerationConfig: cfg,
	})
	if err != nil {
		return nil, err
	}
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("genai: decode inline data: %w", err)
			}
			mime := p.InlineData.MimeType
			if mime == "" {
				mime = "image/png"
			}
			c.logger.Debug().Str("model", req.Model).Int("bytes", len(data)).Msg("genai: image generated")
			return &InlineImage{Data: data, MIME: mime, ResponseID: resp.ResponseID}, nil
		}
	}
	reason := ""
	if len(resp.Candidates) > 0 {
		reason = resp.Candidates[0].FinishReason
	}
	return nil, fmt.Errorf("genai: no image in response (finish reason %q)", reason)
}

func (c *Client) fetchReference(ctx context.Context, ref string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, "", fmt.Errorf("genai: build reference request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("genai: download reference: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, "", fmt.Errorf("genai: reference status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReferenceBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("genai: read reference: %w", err)
	}
	if len(data) > maxReferenceBytes {
		return nil, "", errors.New("genai: reference image too large")
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" || !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(data)
	}
	return data, mime, nil
}
