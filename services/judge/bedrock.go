package judge

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// HTTPDoer is the subset of http.Client the backends need. Tests substitute
// a mock implementation.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	defaultBedrockModel      = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	defaultBedrockEmbedModel = "amazon.titan-embed-text-v2:0"
)

// BedrockClient implements the Client interface for AWS Bedrock.
type BedrockClient struct {
	accessKeyID     string
	secretAccessKey string
	sessionToken    string // optional, for temporary credentials
	region          string
	httpClient      HTTPDoer
	limiter         Limiter
}

// BedrockOption configures the Bedrock client.
type BedrockOption func(*BedrockClient)

// WithSessionToken sets the session token for temporary credentials.
func WithSessionToken(token string) BedrockOption {
	return func(c *BedrockClient) {
		c.sessionToken = token
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(doer HTTPDoer) BedrockOption {
	return func(c *BedrockClient) {
		c.httpClient = doer
	}
}

// WithLimiter throttles Bedrock API calls.
func WithLimiter(l Limiter) BedrockOption {
	return func(c *BedrockClient) {
		c.limiter = l
	}
}

// NewBedrockClient creates a new AWS Bedrock judge backend.
func NewBedrockClient(accessKeyID, secretAccessKey, region string, opts ...BedrockOption) *BedrockClient {
	if region == "" {
		region = "us-east-1"
	}
	c := &BedrockClient{
		accessKeyID:     accessKeyID,
		secretAccessKey: secretAccessKey,
		region:          region,
		httpClient:      &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *BedrockClient) Name() string {
	return "bedrock"
}

func (c *BedrockClient) Available(ctx context.Context) bool {
	return c.accessKeyID != "" && c.secretAccessKey != ""
}

// Bedrock Converse API types
type bedrockMessage struct {
	Role    string                `json:"role"`
	Content []bedrockContentBlock `json:"content"`
}

type bedrockContentBlock struct {
	Text string `json:"text,omitempty"`
}

type bedrockInferenceConfig struct {
	MaxTokens   int      `json:"maxTokens,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	TopP        float64  `json:"topP,omitempty"`
	StopSeqs    []string `json:"stopSequences,omitempty"`
}

type bedrockConverseRequest struct {
	Messages        []bedrockMessage        `json:"messages"`
	System          []bedrockContentBlock   `json:"system,omitempty"`
	InferenceConfig *bedrockInferenceConfig `json:"inferenceConfig,omitempty"`
}

type bedrockConverseResponse struct {
	Output struct {
		Message bedrockMessage `json:"message"`
	} `json:"output"`
	StopReason string `json:"stopReason"`
	Usage      struct {
		InputTokens  int `json:"inputTokens"`
		OutputTokens int `json:"outputTokens"`
		TotalTokens  int `json:"totalTokens"`
	} `json:"usage"`
}

func (c *BedrockClient) Complete(ctx context.Context, params CompletionParams) (*CompletionResult, error) {
	model := params.Model
	if model == "" {
		model = defaultBedrockModel
	}

	// Build messages, extracting system messages
	var systemBlocks []bedrockContentBlock
	var messages []bedrockMessage

	for _, m := range params.Messages {
		if m.Role == "system" {
			systemBlocks = append(systemBlocks, bedrockContentBlock{Text: m.Content})
			continue
		}
		messages = append(messages, bedrockMessage{
			Role:    m.Role,
			Content: []bedrockContentBlock{{Text: m.Content}},
		})
	}

	reqBody := bedrockConverseRequest{
		Messages: messages,
		System:   systemBlocks,
	}

	if params.MaxTokens > 0 || params.Temperature > 0 || params.TopP > 0 || len(params.Stop) > 0 {
		reqBody.InferenceConfig = &bedrockInferenceConfig{
			MaxTokens:   params.MaxTokens,
			Temperature: params.Temperature,
			TopP:        params.TopP,
			StopSeqs:    params.Stop,
		}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com/model/%s/converse", c.region, model)

	respBody, err := c.invoke(ctx, endpoint, body)
	if err != nil {
		return nil, err
	}

	var bedrockResp bedrockConverseResponse
	if err := json.Unmarshal(respBody, &bedrockResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	var content string
	for _, block := range bedrockResp.Output.Message.Content {
		if block.Text != "" {
			content += block.Text
		}
	}

	return &CompletionResult{
		Content: content,
		Client:  c.Name(),
		Model:   model,
		Usage: Usage{
			PromptTokens:     bedrockResp.Usage.InputTokens,
			CompletionTokens: bedrockResp.Usage.OutputTokens,
			TotalTokens:      bedrockResp.Usage.TotalTokens,
		},
	}, nil
}

func (c *BedrockClient) Embed(ctx context.Context, params EmbedParams) (*EmbedResult, error) {
	model := params.Model
	if model == "" {
		model = defaultBedrockEmbedModel
	}

	embeddings := make([]Embedding, 0, len(params.Texts))

	for _, text := range params.Texts {
		body, err := json.Marshal(map[string]interface{}{
			"inputText": text,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}

		endpoint := fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com/model/%s/invoke", c.region, model)

		respBody, err := c.invoke(ctx, endpoint, body)
		if err != nil {
			return nil, err
		}

		var embedResp struct {
			Embedding []float32 `json:"embedding"`
		}
		if err := json.Unmarshal(respBody, &embedResp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}

		embeddings = append(embeddings, Embedding{
			Values:     embedResp.Embedding,
			Dimensions: len(embedResp.Embedding),
		})
	}

	return &EmbedResult{
		Embeddings: embeddings,
		Client:     c.Name(),
		Model:      model,
	}, nil
}

// invoke signs and sends one Bedrock API request and returns the raw body.
func (c *BedrockClient) invoke(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if err := c.signRequest(req, body); err != nil {
		return nil, fmt.Errorf("failed to sign request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Bedrock API error: status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// signRequest signs an HTTP request using AWS Signature V4.
func (c *BedrockClient) signRequest(req *http.Request, payload []byte) error {
	now := time.Now().UTC()
	datestamp := now.Format("20060102")
	amzdate := now.Format("20060102T150405Z")

	service := "bedrock"
	host := req.URL.Host

	method := req.Method
	canonicalURI := req.URL.Path
	canonicalQuerystring := req.URL.RawQuery

	payloadHash := sha256Hash(payload)

	req.Header.Set("Host", host)
	req.Header.Set("X-Amz-Date", amzdate)
	req.Header.Set("X-Amz-Content-Sha256", payloadHash)
	if c.sessionToken != "" {
		req.Header.Set("X-Amz-Security-Token", c.sessionToken)
	}

	signedHeaders := []string{"content-type", "host", "x-amz-content-sha256", "x-amz-date"}
	if c.sessionToken != "" {
		signedHeaders = append(signedHeaders, "x-amz-security-token")
	}
	sort.Strings(signedHeaders)
	signedHeadersStr := strings.Join(signedHeaders, ";")

	var canonicalHeaders strings.Builder
	for _, h := range signedHeaders {
		var val string
		switch h {
		case "host":
			val = host
		case "content-type":
			val = req.Header.Get("Content-Type")
		case "x-amz-date":
			val = amzdate
		case "x-amz-content-sha256":
			val = payloadHash
		case "x-amz-security-token":
			val = c.sessionToken
		}
		canonicalHeaders.WriteString(h)
		canonicalHeaders.WriteString(":")
		canonicalHeaders.WriteString(val)
		canonicalHeaders.WriteString("\n")
	}

	canonicalRequest := strings.Join([]string{
		method,
		canonicalURI,
		canonicalQuerystring,
		canonicalHeaders.String(),
		signedHeadersStr,
		payloadHash,
	}, "\n")

	algorithm := "AWS4-HMAC-SHA256"
	credentialScope := fmt.Sprintf("%s/%s/%s/aws4_request", datestamp, c.region, service)
	stringToSign := strings.Join([]string{
		algorithm,
		amzdate,
		credentialScope,
		sha256Hash([]byte(canonicalRequest)),
	}, "\n")

	kDate := hmacSHA256([]byte("AWS4"+c.secretAccessKey), []byte(datestamp))
	kRegion := hmacSHA256(kDate, []byte(c.region))
	kService := hmacSHA256(kRegion, []byte(service))
	kSigning := hmacSHA256(kService, []byte("aws4_request"))
	signature := hex.EncodeToString(hmacSHA256(kSigning, []byte(stringToSign)))

	authHeader := fmt.Sprintf("%s Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		algorithm, c.accessKeyID, credentialScope, signedHeadersStr, signature)
	req.Header.Set("Authorization", authHeader)

	return nil
}

func sha256Hash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}
