package domain

// ModelKind separates image backends from text (LLM) backends.
type ModelKind string

const (
	ModelKindImage ModelKind = "image"
	ModelKindText  ModelKind = "text"
)

// ProviderType is the stable identifier used to select a provider implementation.
type ProviderType string

const (
	ProviderQwen      ProviderType = "qwen"
	ProviderGemini    ProviderType = "gemini"
	ProviderSynthetic ProviderType = "synthetic"
	ProviderOpenAI    ProviderType = "openai"
)

// OutputEncoding describes how an image backend returns its result.
type OutputEncoding string

const (
	EncodingURL    OutputEncoding = "url"
	EncodingInline OutputEncoding = "inline"
)

// Speed is a coarse latency tier.
type Speed string

const (
	SpeedFast   Speed = "fast"
	SpeedMedium Speed = "medium"
	SpeedSlow   Speed = "slow"
)

// Quality grades how well a backend preserves faces from a reference image.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// ModelDescriptor is an immutable catalog entry.
type ModelDescriptor struct {
	ID                      string         `json:"id"`
	Name                    string         `json:"name"`
	Kind                    ModelKind      `json:"kind"`
	ProviderType            ProviderType   `json:"providerType"`
	VendorModel             string         `json:"-"`
	CostPerUnit             float64        `json:"costPerUnit"`
	CreditsPerUnit          int            `json:"creditsPerUnit"`
	Speed                   Speed          `json:"speed"`
	FacePreservationQuality Quality        `json:"facePreservationQuality,omitempty"`
	SupportsReferenceImage  bool           `json:"supportsReferenceImage"`
	OutputEncoding          OutputEncoding `json:"outputEncoding,omitempty"`
	InputPricePerMTok       float64        `json:"-"`
	OutputPricePerMTok      float64        `json:"-"`
}
