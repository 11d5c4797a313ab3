// Package llm provides vision model clients used to describe damage photos.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotConfigured is returned by NewClient when no provider has credentials.
var ErrNotConfigured = errors.New("no vision provider configured")

// SystemPrompt instructs the model to act as a claims photo analyst.
const SystemPrompt = `Είσαι ένας εξειδικευμένος αναλυτής εικόνων για ασφαλιστική εταιρεία. Αναλύεις εικόνες που στέλνουν πελάτες για να τεκμηριώσουν περιστατικά ασφάλισης.

Παρακαλώ αναλύστε την εικόνα και δώστε:
1. Περιγραφή του τι βλέπετε (οχήματα, ζημιές, περιβάλλον, κλπ)
2. Τυχόν ζημιές που παρατηρείτε
3. Σημαντικές λεπτομέρειες για την ασφαλιστική υπόθεση
4. Συστάσεις για επιπλέον τεκμηρίωση αν χρειάζεται

Απαντήστε στα ελληνικά με σαφή και επαγγελματικό τρόπο.`

// UserPrompt returns the per-image instruction.
func UserPrompt(filename string) string {
	return fmt.Sprintf("Αναλύστε αυτή την εικόνα που στάλθηκε για ασφαλιστικό περιστατικό. Όνομα αρχείου: %s", filename)
}

// ImageRequest asks a model to describe one image.
type ImageRequest struct {
	Model       string
	System      string
	Prompt      string
	MediaType   string
	Data        []byte
	MaxTokens   int
	Temperature float64
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for vision providers.
type Client interface {
	// AnalyzeImage sends the image with its prompt and returns the model text.
	AnalyzeImage(ctx context.Context, req *ImageRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderAzure     Provider = "azure"
)

// Options selects and configures a provider.
type Options struct {
	Provider        Provider
	AnthropicAPIKey string
	OpenAIAPIKey    string
	AzureEndpoint   string
	AzureDeployment string
}

// NewClient creates a vision client. Without an explicit provider the first
// one with credentials wins, Azure before OpenAI before Anthropic.
func NewClient(opts Options) (Client, error) {
	provider := opts.Provider
	if provider == "" {
		switch {
		case opts.AzureEndpoint != "" && opts.OpenAIAPIKey != "":
			provider = ProviderAzure
		case opts.OpenAIAPIKey != "":
			provider = ProviderOpenAI
		case opts.AnthropicAPIKey != "":
			provider = ProviderAnthropic
		default:
			return nil, ErrNotConfigured
		}
	}

	var (
		client Client
		err    error
	)
	switch provider {
	case ProviderAnthropic:
		client, err = NewAnthropicClient(opts.AnthropicAPIKey)
	case ProviderOpenAI:
		client, err = NewOpenAIClient(opts.OpenAIAPIKey)
	case ProviderAzure:
		client, err = NewAzureOpenAIClient(opts.OpenAIAPIKey, opts.AzureEndpoint, opts.AzureDeployment)
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}
