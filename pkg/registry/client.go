// Package registry talks to the external PayloadCMS-compatible character
// registry. All operations are best-effort collaborators of the profile
// generation workflow; failures are logged and degrade gracefully.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/bramble/config"
	"github.com/Ramsey-B/bramble/pkg/models"
	"github.com/Ramsey-B/bramble/pkg/tracing"
)

// Client is an HTTP client for the character registry.
type Client struct {
	baseURL        string
	apiKey         string
	charactersPath string
	httpClient     *http.Client
	logger         ectologger.Logger
}

// NewClient builds a registry client from config. Returns nil when the
// registry integration is disabled; callers treat a nil client as "no
// registry".
func NewClient(cfg *config.Config, logger ectologger.Logger) *Client {
	if !cfg.RegistryEnabled || cfg.RegistryURL == "" {
		return nil
	}
	return &Client{
		baseURL:        cfg.RegistryURL,
		apiKey:         cfg.RegistryAPIKey,
		charactersPath: cfg.RegistryCharactersPath,
		httpClient:     &http.Client{Timeout: cfg.RegistryTimeout},
		logger:         logger,
	}
}

type listResponse struct {
	Docs []registryDoc `json:"docs"`
}

type registryDoc map[string]any

func (d registryDoc) str(key string) string {
	if v, ok := d[key].(string); ok {
		return v
	}
	return ""
}

// GetProjectCharacters returns the registry characters for a project. A
// registry failure yields an empty list so profile generation can continue.
func (c *Client) GetProjectCharacters(ctx context.Context, projectID string) ([]models.RegistryCharacter, error) {
	if c == nil {
		return nil, nil
	}
	ctx, span := tracing.StartSpan(ctx, "registry.Client.GetProjectCharacters")
	defer span.End()

	where := map[string]any{
		"project_id": map[string]any{"equals": projectID},
	}
	docs, err := c.listCharacters(ctx, where, 100)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).WithField("project_id", projectID).Error("Failed to query character registry")
		return nil, nil
	}

	characters := make([]models.RegistryCharacter, 0, len(docs))
	for _, doc := range docs {
		ch := models.RegistryCharacter{
			ID:         doc.str("id"),
			Name:       doc.str("name"),
			ProjectID:  doc.str("project_id"),
			Attributes: map[string]any{},
		}
		for k, v := range doc {
			switch k {
			case "id", "name", "project_id", "createdAt", "updatedAt":
			default:
				ch.Attributes[k] = v
			}
		}
		characters = append(characters, ch)
	}
	return characters, nil
}

// UpsertCharacter creates or updates a registry character for the profile.
// Lookup is by name within the project; an existing record is patched.
func (c *Client) UpsertCharacter(ctx context.Context, projectID string, profile *models.CharacterProfile) error {
	if c == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "registry.Client.UpsertCharacter")
	defer span.End()

	payload := map[string]any{
		"name":             profile.Name,
		"project_id":       projectID,
		"role":             profile.Role,
		"motivation":       profile.Motivation,
		"visual_signature": profile.VisualSignature,
		"relationships":    profile.Relationships,
		"continuity_notes": profile.ContinuityNotes,
	}

	existing, err := c.findByName(ctx, projectID, profile.Name)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).WithField("name", profile.Name).Error("Failed to look up registry character")
		return err
	}

	if existing != "" {
		return c.send(ctx, http.MethodPatch, c.charactersPath+"/"+existing, payload)
	}
	return c.send(ctx, http.MethodPost, c.charactersPath, payload)
}

func (c *Client) findByName(ctx context.Context, projectID, name string) (string, error) {
	where := map[string]any{
		"and": []map[string]any{
			{"project_id": map[string]any{"equals": projectID}},
			{"name": map[string]any{"equals": name}},
		},
	}
	docs, err := c.listCharacters(ctx, where, 1)
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "", nil
	}
	return docs[0].str("id"), nil
}

func (c *Client) listCharacters(ctx context.Context, where map[string]any, limit int) ([]registryDoc, error) {
	whereJSON, err := json.Marshal(where)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("where", string(whereJSON))
	query.Set("limit", fmt.Sprintf("%d", limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.charactersPath+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("registry returned %d: %s", resp.StatusCode, string(body))
	}

	var list listResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, err
	}
	return list.Docs, nil
}

func (c *Client) send(ctx context.Context, method, path string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("registry returned %d: %s", resp.StatusCode, string(respBody))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")
}
