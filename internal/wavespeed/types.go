package wavespeed

// describes one music video generation request
type GenerateRequest struct {
	AudioURL   string
	ImageURL   string
	Prompt     string
	Resolution string // e.g. "720p", "1080p"
}

// upstream prediction state mapped to local status values
type PredictionStatus struct {
	ID           string
	Status       string
	Outputs      []string
	NSFWFlags    []bool
	ErrorMessage string
}

// wire format for POST /api/v3/video
type generatePayload struct {
	AudioURL   string `json:"audio_url"`
	ImageURL   string `json:"image_url,omitempty"`
	Prompt     string `json:"prompt,omitempty"`
	Resolution string `json:"resolution,omitempty"`
}

type generateResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"data"`
}

type predictionResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		ID       string   `json:"id"`
		Status   string   `json:"status"`
		Outputs  []string `json:"outputs"`
		NSFW     []bool   `json:"has_nsfw_contents"`
		ErrorMsg string   `json:"error"`
	} `json:"data"`
}
