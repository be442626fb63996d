package wavespeed

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
	videoPath      = "/api/v3/video"
	predictionPath = "/api/v3/predictions/"
)

// rate limiter for video API calls
var videoRateLimiter = rate.NewLimiter(5, 3)

// talks to the Wavespeed-compatible video generation API through the key pool
type Client struct {
	baseURL    string
	dispatcher *dispatch.Dispatcher
}

// creates a video API client over a key pool. Video renders are slower
// than music submissions, hence the longer timeout.
func NewClient(pool *keypool.Pool, baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		dispatcher: dispatch.New(pool, dispatch.Options{
			MaxAttempts:    3,
			RequestTimeout: 45 * time.Second,
		}),
	}
}

// submits a video generation request and returns the prediction id
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if req.AudioURL == "" {
		return "", fmt.Errorf("audio url is required")
	}

	body, err := json.Marshal(generatePayload{
		AudioURL:   req.AudioURL,
		ImageURL:   req.ImageURL,
		Prompt:     req.Prompt,
		Resolution: req.Resolution,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	if err := videoRateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	resp, err := c.dispatcher.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+videoPath, bytes.NewReader(body))
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

	if decoded.Data.ID == "" {
		return "", fmt.Errorf("no prediction id in response: %s", decoded.Message)
	}

	return decoded.Data.ID, nil
}

// fetches the current state of a prediction
func (c *Client) Status(ctx context.Context, predictionID string) (*PredictionStatus, error) {
	if err := videoRateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	resp, err := c.dispatcher.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+predictionPath+predictionID+"/result", nil)
	})

	if err != nil {
		return nil, err
	}

	defer resp.Body.Close() //nolint:errcheck

	var decoded predictionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode prediction response: %w", err)
	}

	return &PredictionStatus{
		ID:           decoded.Data.ID,
		Status:       mapStatus(decoded.Data.Status),
		Outputs:      decoded.Data.Outputs,
		NSFWFlags:    decoded.Data.NSFW,
		ErrorMessage: decoded.Data.ErrorMsg,
	}, nil
}

// maps upstream prediction statuses onto the local task lifecycle
func mapStatus(upstream string) string {
	switch upstream {
	case "completed":
		return tasks.StatusCompleted
	case "failed":
		return tasks.StatusFailed
	case "created":
		return tasks.StatusCreated
	default:
		return tasks.StatusProcessing
	}
}
