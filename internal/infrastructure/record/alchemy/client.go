package alchemy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/chemdoc-processor/internal/core/domain"
)

type Config struct {
	BaseURL        string
	AppURL         string
	Tenant         string
	RefreshToken   string
	RecordTemplate string
	RequestsPerSec float64
}

// Client pushes extraction results into the Alchemy LIMS as records.
type Client struct {
	cfg        Config
	httpClient *http.Client
	tokens     *tokenManager
	limiter    *rate.Limiter
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://core-production.alchemy.cloud/core/api/v2"
	}
	if cfg.AppURL == "" {
		cfg.AppURL = "https://app.alchemy.cloud"
	}
	if cfg.RecordTemplate == "" {
		cfg.RecordTemplate = "exampleParsing"
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 2
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")

	httpClient := &http.Client{Timeout: 30 * time.Second}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		tokens:     newTokenManager(cfg.BaseURL, cfg.Tenant, cfg.RefreshToken, httpClient),
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
	}
}

type recordValue struct {
	Value        string `json:"value"`
	ValuePreview string `json:"valuePreview"`
}

type recordRow struct {
	Row    int           `json:"row"`
	Values []recordValue `json:"values"`
}

type recordProperty struct {
	Identifier string      `json:"identifier"`
	Rows       []recordRow `json:"rows"`
}

type recordPayload struct {
	ProcessID      *string          `json:"processId"`
	RecordTemplate string           `json:"recordTemplate"`
	Properties     []recordProperty `json:"properties"`
}

func (c *Client) CreateRecord(ctx context.Context, result *domain.ExtractionResult) (*domain.RemoteRecord, error) {
	if result == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create record", fmt.Errorf("nil extraction result"))
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("record rate limit: %w", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("obtain alchemy token: %w", err)
	}

	payload := []recordPayload{{
		RecordTemplate: c.cfg.RecordTemplate,
		Properties: []recordProperty{
			property("RecordName", fallback(stringEntity(result.Entities, "product_name"), "Unknown Product")),
			property("CasNumber", stringEntity(result.Entities, "cas_number")),
			property("Purity", formatPurityValue(stringEntity(result.Entities, "purity"))),
			property("LotNumber", stringEntity(result.Entities, "lot_number")),
		},
	}}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal record payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/create-record", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create record request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alchemy create-record request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("read create-record response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("alchemy create-record status: %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	record := &domain.RemoteRecord{ID: extractRecordID(raw)}
	if record.ID != "" {
		record.URL = fmt.Sprintf("%s/%s/record/%s", c.cfg.AppURL, c.cfg.Tenant, record.ID)
	}
	return record, nil
}

func property(identifier, value string) recordProperty {
	return recordProperty{
		Identifier: identifier,
		Rows:       []recordRow{{Row: 0, Values: []recordValue{{Value: value}}}},
	}
}

func stringEntity(entities domain.Entities, field string) string {
	value, _ := entities[field].(string)
	return strings.TrimSpace(value)
}

func fallback(value, alt string) string {
	if value == "" {
		return alt
	}
	return value
}

var purityNumberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

// formatPurityValue reduces a purity string like ">= 99.5 % (GC)" to the
// bare number the record field expects.
func formatPurityValue(purity string) string {
	return purityNumberRe.FindString(purity)
}

// extractRecordID digs the created record id out of the response, which may
// be a list of records, an object, or an object with a data list.
func extractRecordID(raw []byte) string {
	var asList []map[string]any
	if err := json.Unmarshal(raw, &asList); err == nil && len(asList) > 0 {
		return idFromObject(asList[0])
	}

	var asObject map[string]any
	if err := json.Unmarshal(raw, &asObject); err != nil {
		return ""
	}
	if id := idFromObject(asObject); id != "" {
		return id
	}
	if data, ok := asObject["data"].([]any); ok && len(data) > 0 {
		if first, ok := data[0].(map[string]any); ok {
			return idFromObject(first)
		}
	}
	return ""
}

func idFromObject(obj map[string]any) string {
	for _, key := range []string{"id", "recordId"} {
		switch value := obj[key].(type) {
		case string:
			return value
		case float64:
			return fmt.Sprintf("%.0f", value)
		}
	}
	return ""
}
