package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const presidioDefaultTimeout = 10 * time.Second

// PresidioDetector calls a Presidio analyzer service for NER-backed entity
// types such as PERSON.
type PresidioDetector struct {
	baseURL  string
	language string
	entities []string
	client   *http.Client
}

// NewPresidio creates a detector for the analyzer at baseURL
// (e.g. http://localhost:5002). entities limits the requested types; nil asks
// for everything the analyzer supports. A nil client gets a 10s timeout.
func NewPresidio(baseURL, language string, entities []string, client *http.Client) *PresidioDetector {
	if client == nil {
		client = &http.Client{Timeout: presidioDefaultTimeout}
	}
	if language == "" {
		language = "en"
	}
	return &PresidioDetector{
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		entities: entities,
		client:   client,
	}
}

type presidioAnalyzeRequest struct {
	Text     string   `json:"text"`
	Language string   `json:"language"`
	Entities []string `json:"entities,omitempty"`
}

// Detect implements Detector.
func (p *PresidioDetector) Detect(ctx context.Context, text string) ([]Entity, error) {
	body, err := json.Marshal(presidioAnalyzeRequest{
		Text:     text,
		Language: p.language,
		Entities: p.entities,
	})
	if err != nil {
		return nil, fmt.Errorf("presidio analyze marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("presidio analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("presidio analyze: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Service: "presidio", StatusCode: resp.StatusCode, Body: string(msg)}
	}

	var found []Entity
	if err := json.NewDecoder(resp.Body).Decode(&found); err != nil {
		return nil, fmt.Errorf("presidio analyze decode: %w", err)
	}
	return found, nil
}

// StatusError is a non-200 answer from an HTTP collaborator.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Service, e.StatusCode, e.Body)
}
