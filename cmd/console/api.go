package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/jwebster45206/soma-recovery/internal/handlers"
	"github.com/jwebster45206/soma-recovery/pkg/engine"
	"github.com/jwebster45206/soma-recovery/pkg/world"
)

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/api/ping")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	var pong handlers.PingResponse
	if err := json.NewDecoder(resp.Body).Decode(&pong); err != nil {
		return false
	}
	return resp.StatusCode == http.StatusOK && pong.Pong
}

// do sends a JSON request and decodes a JSON response. Non-2xx responses
// are turned into errors using the API's error body.
func do(ctx context.Context, client *http.Client, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errorResp handlers.ErrorResponse
		if err := json.Unmarshal(data, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func getWorld(ctx context.Context, client *http.Client, baseURL, worldFile string) (*world.Layout, error) {
	var layout world.Layout
	if err := do(ctx, client, http.MethodGet, baseURL+"/v1/worlds/"+url.PathEscape(worldFile), nil, &layout); err != nil {
		return nil, err
	}
	return &layout, nil
}

// remoteDriver plays a session hosted by the API.
type remoteDriver struct {
	client  *http.Client
	baseURL string
	id      uuid.UUID
}

func newRemoteDriver(ctx context.Context, client *http.Client, baseURL, worldFile string) (*remoteDriver, error) {
	var created handlers.SessionResponse
	req := handlers.CreateSessionRequest{World: worldFile}
	if err := do(ctx, client, http.MethodPost, baseURL+"/v1/sessions", req, &created); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &remoteDriver{client: client, baseURL: baseURL, id: created.ID}, nil
}

func (d *remoteDriver) url(suffix string) string {
	return fmt.Sprintf("%s/v1/sessions/%s%s", d.baseURL, d.id, suffix)
}

func (d *remoteDriver) Snapshot(ctx context.Context) (handlers.SessionResponse, error) {
	var resp handlers.SessionResponse
	err := do(ctx, d.client, http.MethodGet, d.url(""), nil, &resp)
	return resp, err
}

func (d *remoteDriver) Frame(ctx context.Context, in engine.Input, dt float64) (handlers.SessionResponse, error) {
	var resp handlers.SessionResponse
	err := do(ctx, d.client, http.MethodPost, d.url("/frame"), handlers.FrameRequest{Input: in, DT: dt}, &resp)
	return resp, err
}

func (d *remoteDriver) Action(ctx context.Context, req handlers.ActionRequest) (handlers.SessionResponse, error) {
	var resp handlers.SessionResponse
	err := do(ctx, d.client, http.MethodPost, d.url("/actions"), req, &resp)
	return resp, err
}

// Close ends the session on the server.
func (d *remoteDriver) Close() error {
	return do(context.Background(), d.client, http.MethodDelete, d.url(""), nil, nil)
}
