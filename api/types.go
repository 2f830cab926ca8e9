package api

// ProgressResponse is the live state of a run
type ProgressResponse struct {
	RunID       string `json:"run_id"`
	Directories int64  `json:"directories"`
	Files       int64  `json:"files"`
	ElapsedMS   int64  `json:"elapsed_ms"`
	Cancelled   bool   `json:"cancelled"`
}
