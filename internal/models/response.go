package models

import "time"

type ProjectResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ProjectListResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

type CreateProjectResponse struct {
	Success   bool   `json:"success"`
	ProjectID string `json:"project_id"`
}

type MidiAssetResponse struct {
	ID             string                 `json:"id"`
	ProjectID      string                 `json:"project_id"`
	FileType       string                 `json:"file_type"`
	Label          string                 `json:"label"`
	DisplayName    *string                `json:"display_name"`
	SequenceNumber int                    `json:"sequence_number"`
	Parameters     map[string]interface{} `json:"parameters,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
}

type MidiAssetListResponse struct {
	Assets []MidiAssetResponse `json:"assets"`
}

type GenerateResponse struct {
	Success  bool   `json:"success"`
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
}

type UploadResponse struct {
	Success     bool   `json:"success"`
	FileID      string `json:"file_id"`
	Filename    string `json:"filename"`
	ChordNumber int    `json:"chord_number"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Plan  string `json:"plan"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	MidiService string `json:"midi_service"`
}

func NewProjectResponse(p *Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID.String(),
		Title:       p.Title,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func NewMidiAssetResponse(a *MidiAsset) MidiAssetResponse {
	resp := MidiAssetResponse{
		ID:             a.ID.String(),
		ProjectID:      a.ProjectID.String(),
		FileType:       a.FileType,
		Label:          a.Label(),
		SequenceNumber: a.Number(),
		Parameters:     a.Parameters,
		CreatedAt:      a.CreatedAt,
	}
	if a.DisplayName.Valid {
		name := a.DisplayName.String
		resp.DisplayName = &name
	}
	return resp
}
