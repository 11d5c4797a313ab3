package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientSelection(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"azure wins with endpoint", Options{OpenAIAPIKey: "k", AzureEndpoint: "https://x.openai.azure.com/", AzureDeployment: "vision"}, "azure"},
		{"openai key only", Options{OpenAIAPIKey: "k"}, "openai"},
		{"anthropic key only", Options{AnthropicAPIKey: "k"}, "anthropic"},
		{"explicit provider", Options{Provider: ProviderAnthropic, OpenAIAPIKey: "k", AnthropicAPIKey: "a"}, "anthropic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Name())
		})
	}
}

func TestNewClientErrors(t *testing.T) {
	_, err := NewClient(Options{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewClient(Options{Provider: ProviderOpenAI})
	assert.Error(t, err)

	_, err = NewClient(Options{Provider: ProviderAzure, OpenAIAPIKey: "k"})
	assert.Error(t, err)

	_, err = NewClient(Options{Provider: "gemini"})
	assert.Error(t, err)
}

func TestDataURL(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,AQI=", dataURL("image/png", []byte{1, 2}))
	assert.Equal(t, "data:image/jpeg;base64,", dataURL("", nil))
}

func TestUserPrompt(t *testing.T) {
	assert.Contains(t, UserPrompt("damage.jpg"), "damage.jpg")
}
