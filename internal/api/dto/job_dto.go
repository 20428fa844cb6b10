package dto

// ListJobsRequest filters the paginated job listing.
type ListJobsRequest struct {
	Agent    string `form:"agent"`
	State    string `form:"state"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

// ListJobsResponse carries one page of jobs and an opaque cursor
// for the next page when more results exist.
type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

// JobDTO is the listing projection of a job; result payloads are
// deliberately omitted and fetched via the status endpoint.
type JobDTO struct {
	JobID     string `json:"job_id"`
	Agent     string `json:"agent"`
	State     string `json:"state"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}
