package prediagnosis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/apperr"
)

// DefaultLabel is stored when the classifier returns no diagnosis.
const DefaultLabel = "Sin diagnóstico"

// maxResponseBytes bounds how much of the classifier response is read.
const maxResponseBytes = 1 << 20

// Predictor classifies a symptom description.
type Predictor interface {
	Predict(ctx context.Context, text string) (*Prediction, error)
}

// ClientOption configures an AIClient.
type ClientOption func(*AIClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(a *AIClient) { a.httpClient = c }
}

func WithClientLogger(l zerolog.Logger) ClientOption {
	return func(a *AIClient) { a.logger = l }
}

// AIClient calls the external symptom classifier over HTTP.
type AIClient struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewAIClient(baseURL string, timeout time.Duration, opts ...ClientOption) *AIClient {
	c := &AIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type predictRequest struct {
	Texto string `json:"texto"`
	Text  string `json:"text"`
}

// Predict posts text to {baseURL}/predict. Transport failures, non-2xx
// answers and undecodable bodies are reported as UpstreamError.
func (c *AIClient) Predict(ctx context.Context, text string) (*Prediction, error) {
	payload, err := json.Marshal(predictRequest{Texto: text, Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal predict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, err, "invalid classifier url")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", c.baseURL).Msg("classifier request failed")
		return nil, apperr.Wrap(apperr.KindUpstream, err, "the diagnosis service is unavailable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, err, "reading the diagnosis service response failed")
	}
	c.logger.Debug().
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("classifier responded")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperr.New(apperr.KindUpstream, "the diagnosis service answered with status %d", resp.StatusCode)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, err, "the diagnosis service returned an invalid response")
	}
	return parsePrediction(raw), nil
}

// parsePrediction accepts the field spellings the classifier has used over
// time. Missing fields fall back to DefaultLabel and confidence 0.
func parsePrediction(raw map[string]json.RawMessage) *Prediction {
	p := &Prediction{Label: DefaultLabel}

	if s, ok := firstString(raw, "diagnostico", "diagnóstico", "diagnosis", "label"); ok && strings.TrimSpace(s) != "" {
		p.Label = strings.TrimSpace(s)
	}

	if v, ok := raw["confianza"]; ok {
		if f, ok := parseNumber(v); ok {
			p.Confidence = f
		}
	} else if v, ok := raw["confidence"]; ok {
		if f, ok := parseNumber(v); ok {
			p.Confidence = f
		}
	} else if v, ok := raw["probabilidad"]; ok {
		if f, ok := parsePercent(v); ok {
			p.Confidence = f
		}
	}
	p.Confidence = clamp01(p.Confidence)

	if s, ok := firstString(raw, "sugerencia", "mensaje", "recommendation"); ok && s != "" {
		p.Recommendation = &s
	}
	if s, ok := firstString(raw, "version", "model_version", "modelo"); ok && s != "" {
		p.ModelVersion = &s
	}
	return p
}

func firstString(raw map[string]json.RawMessage, keys ...string) (string, bool) {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s, true
		}
	}
	return "", false
}

// parseNumber reads a JSON number or a numeric string such as "0.928".
func parseNumber(v json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}

// parsePercent reads "92.8%" as 0.928. Bare numbers above 1 are also taken as
// percentages.
func parsePercent(v json.RawMessage) (float64, bool) {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		return f / 100, true
	}
	f, ok := parseNumber(v)
	if !ok {
		return 0, false
	}
	if f > 1 {
		f /= 100
	}
	return f, true
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
