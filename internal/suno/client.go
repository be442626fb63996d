package suno

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"codeberg.org/melodygen/server/internal/dispatch"
	"codeberg.org/melodygen/server/internal/keypool"
	"codeberg.org/melodygen/server/melodygen/tasks"
	"golang.org/x/time/rate"
)

const (
	generatePath = "/api/v1/generate"
	statusPath   = "/api/v1/generate/record-info"
)

// rate limiter for music API calls (10 requests/second with burst capacity of 5)
var musicRateLimiter = rate.NewLimiter(10, 5)

// talks to the Suno-compatible music generation API through the key pool
type Client struct {
	baseURL    string
	dispatcher *dispatch.Dispatcher
}

// creates a music API client over a key pool
func NewClient(pool *keypool.Pool, baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		dispatcher: dispatch.New(pool, dispatch.Options{
			MaxAttempts:    3,
			RequestTimeout: 30 * time.Second,
		}),
	}
}

// submits a generation request and returns the upstream task id
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	payload := generatePayload{
		Prompt:       req.Prompt,
		Style:        req.Style,
		Title:        req.Title,
		CustomMode:   req.Style != "" || req.Title != "",
		Instrumental: req.Instrumental,
		Model:        req.Model,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	if err := musicRateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	resp, err := c.dispatcher.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generatePath, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}

		httpReq.Header.Set("Content-Type", "application/json")
		return httpReq, nil
	})

	if err != nil {
		return "", err
	}

	defer resp.Body.Close() //nolint:errcheck

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	// the API wraps errors in a 200 envelope
	if decoded.Code != 200 {
		return "", fmt.Errorf("%w: code %d: %s", dispatch.ErrUpstreamRejected, decoded.Code, decoded.Msg)
	}

	if decoded.Data.TaskID == "" {
		return "", fmt.Errorf("no task id in response")
	}

	return decoded.Data.TaskID, nil
}

// fetches the current state of a generation task
func (c *Client) Status(ctx context.Context, taskID string) (*TaskStatus, error) {
	if err := musicRateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	resp, err := c.dispatcher.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+statusPath+"?taskId="+taskID, nil)
		if err != nil {
			return nil, err
		}

		httpReq.Header.Set("Content-Type", "application/json")
		return httpReq, nil
	})

	if err != nil {
		return nil, err
	}

	defer resp.Body.Close() //nolint:errcheck

	var decoded statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}

	if decoded.Code != 200 {
		return nil, fmt.Errorf("status request failed: code %d: %s", decoded.Code, decoded.Msg)
	}

	status := &TaskStatus{
		TaskID:       decoded.Data.TaskID,
		Status:       mapStatus(decoded.Data.Status),
		ErrorMessage: decoded.Data.ErrorMsg,
	}

	for _, track := range decoded.Data.Response.SunoData {
		status.Outputs = append(status.Outputs, Output{
			AudioURL: track.AudioURL,
			ImageURL: track.ImageURL,
			Title:    track.Title,
			Duration: track.Duration,
		})
	}

	return status, nil
}

// maps upstream status strings onto the local task lifecycle
func mapStatus(upstream string) string {
	switch upstream {
	case "SUCCESS":
		return tasks.StatusCompleted
	case "CREATE_TASK_FAILED", "GENERATE_AUDIO_FAILED", "CALLBACK_EXCEPTION", "SENSITIVE_WORD_ERROR":
		return tasks.StatusFailed
	case "PENDING":
		return tasks.StatusCreated
	case "TEXT_SUCCESS", "FIRST_SUCCESS":
		return tasks.StatusProcessing
	default:
		return tasks.StatusProcessing
	}
}
