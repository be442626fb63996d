package suno

// describes one music generation request
type GenerateRequest struct {
	Prompt       string
	Style        string
	Title        string
	Instrumental bool
	Model        string // e.g. "V3_5", "V4"
}

// one generated track
type Output struct {
	AudioURL string  `json:"audio_url"`
	ImageURL string  `json:"image_url"`
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
}

// upstream task state mapped to local status values
type TaskStatus struct {
	TaskID       string
	Status       string
	Outputs      []Output
	ErrorMessage string
}

// wire format for POST /api/v1/generate
type generatePayload struct {
	Prompt       string `json:"prompt"`
	Style        string `json:"style,omitempty"`
	Title        string `json:"title,omitempty"`
	CustomMode   bool   `json:"customMode"`
	Instrumental bool   `json:"instrumental"`
	Model        string `json:"model,omitempty"`
}

// envelope shared by the generate and status endpoints
type generateResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskID string `json:"taskId"`
	} `json:"data"`
}

type statusResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskID   string `json:"taskId"`
		Status   string `json:"status"`
		ErrorMsg string `json:"errorMessage"`
		Response struct {
			SunoData []struct {
				AudioURL string  `json:"audioUrl"`
				ImageURL string  `json:"imageUrl"`
				Title    string  `json:"title"`
				Duration float64 `json:"duration"`
			} `json:"sunoData"`
		} `json:"response"`
	} `json:"data"`
}
