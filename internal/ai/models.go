package ai

// Verdict is the model's opinion of a recovered text
type Verdict string

const (
	VerdictSource     Verdict = "source"     // readable PHP source
	VerdictPartial    Verdict = "partial"    // source with damaged or undecoded regions
	VerdictObfuscated Verdict = "obfuscated" // valid PHP that still hides its logic
	VerdictGarbage    Verdict = "garbage"    // not source at all
	VerdictUnknown    Verdict = "unknown"
)

// ReviewRequest contains data sent to the model for review
type ReviewRequest struct {
	FilePath  string   `json:"file_path"`
	Method    string   `json:"method"`
	Variant   string   `json:"variant"`
	Framing   string   `json:"framing"`
	Score     int      `json:"score"`
	Threshold int      `json:"threshold"`
	Accepted  bool     `json:"accepted"`
	Markers   []string `json:"markers,omitempty"`
	Layers    []string `json:"layers,omitempty"` // unwrapped obfuscation layers
	Source    string   `json:"source"`
}

// Review is the model's assessment
type Review struct {
	Model      string   `json:"model" yaml:"model"`
	Verdict    Verdict  `json:"verdict" yaml:"verdict"`
	Confidence int      `json:"confidence" yaml:"confidence"` // 0-100
	Summary    string   `json:"summary" yaml:"summary"`
	Indicators []string `json:"indicators,omitempty" yaml:"indicators,omitempty"`
	NextSteps  string   `json:"next_steps,omitempty" yaml:"next_steps,omitempty"`
	TokensUsed int      `json:"tokens_used" yaml:"tokens_used"`
}

// GetVerdictEmoji returns the emoji for a verdict
func GetVerdictEmoji(v Verdict) string {
	switch v {
	case VerdictSource:
		return "🟢"
	case VerdictPartial:
		return "🟡"
	case VerdictObfuscated:
		return "🟠"
	case VerdictGarbage:
		return "🔴"
	default:
		return "⚪"
	}
}

// CostEstimate represents estimated API cost of one review
type CostEstimate struct {
	Model            string
	SourceBytes      int
	EstimatedTokens  int
	EstimatedCostUSD float64
}

// TokenPricing contains pricing per million tokens for each model
type TokenPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// ModelPricing returns pricing for a model
func ModelPricing(model string) TokenPricing {
	switch model {
	case "haiku", "claude-3-5-haiku-latest":
		return TokenPricing{InputPerMillion: 0.8, OutputPerMillion: 4.0}
	case "opus", "claude-opus-4-20250514":
		return TokenPricing{InputPerMillion: 15.0, OutputPerMillion: 75.0}
	default: // sonnet
		return TokenPricing{InputPerMillion: 3.0, OutputPerMillion: 15.0}
	}
}

// EstimateCost estimates the cost of reviewing sourceBytes of text
func EstimateCost(model string, sourceBytes int) *CostEstimate {
	const (
		promptTokens  = 700 // system prompt + metadata table
		outputTokens  = 350
		bytesPerToken = 4
	)

	input := promptTokens + sourceBytes/bytesPerToken
	pricing := ModelPricing(model)
	cost := float64(input)/1_000_000*pricing.InputPerMillion +
		float64(outputTokens)/1_000_000*pricing.OutputPerMillion

	return &CostEstimate{
		Model:            model,
		SourceBytes:      sourceBytes,
		EstimatedTokens:  input + outputTokens,
		EstimatedCostUSD: cost,
	}
}
