package models

type CreateProjectRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

type UpdateProjectRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

type GenerateRequest struct {
	ProjectID string `json:"project_id" binding:"required"`
	// Type is one of bass, simple_chords, complex_chords.
	Type   string `json:"type" binding:"required" example:"bass"`
	Scale  []int  `json:"scale,omitempty"`
	Rhythm []int  `json:"rhythm,omitempty"`
}

type FileIDRequest struct {
	FileID string `json:"file_id" binding:"required"`
}

type RenameRequest struct {
	FileID      string `json:"file_id" binding:"required"`
	DisplayName string `json:"display_name"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
