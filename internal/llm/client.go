package llm

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rivo/uniseg"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
	"google.golang.org/api/option"
	unifiedgenai "google.golang.org/genai"
)

// maxResponseLogGraphemes is the max length of a model response to log in full (to avoid huge logs).
const maxResponseLogGraphemes = 4096

// Providers for story generation.
const (
	ProviderGoogleAI = "googleai"
	ProviderOpenAI   = "openai"
)

// httpClientForEndpoint returns an http.Client that rewrites request URLs to the given base endpoint (e.g. http://host.docker.internal:31300/gemini).
func httpClientForEndpoint(baseEndpoint string) *http.Client {
	base, err := url.Parse(baseEndpoint)
	if err != nil {
		log.Warn().Err(err).Str("endpoint", baseEndpoint).Msg("Invalid GEMINI_API_ENDPOINT, using default")
		return nil
	}
	base.Path = strings.TrimSuffix(base.Path, "/")
	return &http.Client{
		Transport: &endpointRoundTripper{base: base, next: http.DefaultTransport},
	}
}

// endpointRoundTripper rewrites request URLs to a custom base (scheme, host, path prefix).
type endpointRoundTripper struct {
	base *url.URL
	next http.RoundTripper
}

func (e *endpointRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req2 := req.Clone(req.Context())
	req2.URL.Scheme = e.base.Scheme
	req2.URL.Host = e.base.Host
	req2.URL.Path = path.Join(e.base.Path, strings.TrimPrefix(req.URL.Path, "/"))
	if req.URL.RawQuery != "" {
		req2.URL.RawQuery = req.URL.RawQuery
	}
	return e.next.RoundTrip(req2)
}

// truncateGraphemes cuts s to at most n grapheme clusters. ok is false when s was cut.
func truncateGraphemes(s string, n int) (out string, ok bool) {
	if uniseg.GraphemeClusterCount(s) <= n {
		return s, true
	}
	var b strings.Builder
	gr := uniseg.NewGraphemes(s)
	for i := 0; i < n && gr.Next(); i++ {
		b.WriteString(gr.Str())
	}
	return b.String(), false
}

// logModelResponse logs a model response, truncating if over maxResponseLogGraphemes.
func logModelResponse(caller, raw string) {
	short, whole := truncateGraphemes(raw, maxResponseLogGraphemes)
	if whole {
		log.Info().Str("caller", caller).Str("model_response", raw).Msg("Model response")
		return
	}
	log.Info().
		Str("caller", caller).
		Str("model_response", short+"... [truncated]").
		Int("model_response_len", len(raw)).
		Msg("Model response")
}

// Options configures NewClient.
type Options struct {
	Provider     string // googleai (default) or openai
	GeminiAPIKey string
	APIEndpoint  string // optional Gemini API base URL override
	ModelStory   string
	ModelTitle   string
	ModelTTS     string // e.g. gemini-2.5-pro-preview-tts
	TTSVoice     string // default prebuilt voice, e.g. Zephyr
	OpenAIAPIKey string
	OpenAIModel  string
}

// Client wraps the story, title and speech models.
type Client struct {
	provider      string
	modelStory    string
	modelTitle    string
	modelTTS      string
	ttsVoice      string
	storyModel    llms.Model           // langchaingo, story text and title fallback
	genaiClient   *genai.Client        // title with JSON response schema
	unifiedClient *unifiedgenai.Client // unified genai SDK for TTS
}

// NewClient creates a new LLM client. Models that fail to initialize are left
// nil and the calls that need them return errors.
func NewClient(opts Options) *Client {
	if opts.Provider == "" {
		opts.Provider = ProviderGoogleAI
	}
	if opts.ModelStory == "" {
		opts.ModelStory = "gemini-2.5-flash"
	}
	if opts.ModelTitle == "" {
		opts.ModelTitle = "gemini-2.5-flash-lite"
	}
	if opts.ModelTTS == "" {
		opts.ModelTTS = "gemini-2.5-pro-preview-tts"
	}
	if opts.TTSVoice == "" {
		opts.TTSVoice = "Zephyr"
	}

	var storyModel llms.Model
	var err error
	switch opts.Provider {
	case ProviderOpenAI:
		openaiOpts := []openai.Option{openai.WithToken(opts.OpenAIAPIKey)}
		if opts.OpenAIModel != "" {
			openaiOpts = append(openaiOpts, openai.WithModel(opts.OpenAIModel))
		}
		storyModel, err = openai.New(openaiOpts...)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize OpenAI story model")
			storyModel = nil
		}
	default:
		// Optional custom HTTP client for langchaingo when using a custom endpoint
		googleOpts := []googleai.Option{googleai.WithAPIKey(opts.GeminiAPIKey), googleai.WithDefaultModel(opts.ModelStory)}
		if opts.APIEndpoint != "" {
			if hc := httpClientForEndpoint(opts.APIEndpoint); hc != nil {
				googleOpts = append(googleOpts, googleai.WithHTTPClient(hc))
			}
		}
		storyModel, err = googleai.New(context.Background(), googleOpts...)
		if err != nil {
			log.Error().Err(err).Str("model", opts.ModelStory).Msg("Failed to initialize story model")
			storyModel = nil
		}
	}

	// genai client for the title schema; requires API key
	var genaiClient *genai.Client
	if opts.GeminiAPIKey != "" {
		genaiOpts := []option.ClientOption{option.WithAPIKey(opts.GeminiAPIKey)}
		if opts.APIEndpoint != "" {
			genaiOpts = append(genaiOpts, option.WithEndpoint(opts.APIEndpoint))
		}
		genaiClient, err = genai.NewClient(context.Background(), genaiOpts...)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize genai client for titles")
		}
	}

	// Unified genai client for TTS with response_modalities: audio
	var unifiedClient *unifiedgenai.Client
	if opts.GeminiAPIKey != "" {
		unifiedCfg := &unifiedgenai.ClientConfig{APIKey: opts.GeminiAPIKey}
		if opts.APIEndpoint != "" {
			unifiedCfg.HTTPOptions = unifiedgenai.HTTPOptions{BaseURL: opts.APIEndpoint}
		}
		unifiedClient, err = unifiedgenai.NewClient(context.Background(), unifiedCfg)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize unified genai client for TTS")
		}
	}

	log.Info().
		Str("provider", opts.Provider).
		Str("model_story", opts.ModelStory).
		Str("model_title", opts.ModelTitle).
		Str("model_tts", opts.ModelTTS).
		Str("tts_voice", opts.TTSVoice).
		Str("api_endpoint", opts.APIEndpoint).
		Bool("story_model", storyModel != nil).
		Bool("genai_client", genaiClient != nil).
		Bool("unified_tts", unifiedClient != nil).
		Msg("LLM client initialized")

	return &Client{
		provider:      opts.Provider,
		modelStory:    opts.ModelStory,
		modelTitle:    opts.ModelTitle,
		modelTTS:      opts.ModelTTS,
		ttsVoice:      opts.TTSVoice,
		storyModel:    storyModel,
		genaiClient:   genaiClient,
		unifiedClient: unifiedClient,
	}
}

// Close releases the genai client.
func (c *Client) Close() error {
	if c.genaiClient != nil {
		return c.genaiClient.Close()
	}
	return nil
}
