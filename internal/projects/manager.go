package projects

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"mess-o-midi-backend/internal/apperr"
	"mess-o-midi-backend/internal/database"
	"mess-o-midi-backend/internal/models"
)

const duplicatePrefix = "Copy of "

// UsageGate answers whether an owner may create another project.
type UsageGate interface {
	CanCreateProject(ctx context.Context, ownerID uuid.UUID) (*models.Usage, error)
}

// FileRemover deletes stored MIDI files by the path recorded on the asset.
type FileRemover interface {
	Remove(ctx context.Context, path string) error
}

// FileErrorHandler is told about physical files that could not be removed.
// Such failures never fail the operation that triggered them.
type FileErrorHandler func(path string, err error)

// Manager owns projects and their MIDI assets. Every read or write of a
// project is scoped to its owner.
type Manager struct {
	store       *database.Store
	gate        UsageGate
	files       FileRemover
	onFileError FileErrorHandler
	now         func() time.Time
}

type Option func(*Manager)

func WithFileErrorHandler(h FileErrorHandler) Option {
	return func(m *Manager) { m.onFileError = h }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(store *database.Store, gate UsageGate, files FileRemover, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		gate:        gate,
		files:       files,
		onFileError: func(string, error) {},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) timestamp() time.Time {
	return m.now().UTC()
}

// ListProjects returns the owner's projects, newest first.
func (m *Manager) ListProjects(ctx context.Context, ownerID uuid.UUID) ([]models.Project, error) {
	projects := []models.Project{}
	err := m.store.FetchAll(ctx, &projects,
		"SELECT * FROM projects WHERE owner_id = ? ORDER BY created_at DESC",
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// GetProject returns apperr.ErrNotFound both when the project does not exist
// and when it belongs to someone else.
func (m *Manager) GetProject(ctx context.Context, projectID, ownerID uuid.UUID) (*models.Project, error) {
	return getProject(ctx, m.store, projectID, ownerID)
}

func getProject(ctx context.Context, store *database.Store, projectID, ownerID uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := store.FetchOne(ctx, &project,
		"SELECT * FROM projects WHERE id = ? AND owner_id = ?",
		projectID, ownerID,
	)
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (m *Manager) CanCreate(ctx context.Context, ownerID uuid.UUID) (*models.Usage, error) {
	return m.gate.CanCreateProject(ctx, ownerID)
}

func (m *Manager) ProjectCount(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var count int
	if err := m.store.FetchOne(ctx, &count, "SELECT COUNT(*) FROM projects WHERE owner_id = ?", ownerID); err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return count, nil
}

func (m *Manager) CreateProject(ctx context.Context, ownerID uuid.UUID, title, description string) (uuid.UUID, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return uuid.Nil, apperr.Validation("Project title is required")
	}

	usage, err := m.gate.CanCreateProject(ctx, ownerID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to check usage: %w", err)
	}
	if !usage.CanCreate {
		return uuid.Nil, apperr.ErrQuotaExceeded
	}

	now := m.timestamp()
	id, err := m.store.Insert(ctx, "projects", map[string]interface{}{
		"owner_id":    ownerID,
		"title":       title,
		"description": strings.TrimSpace(description),
		"created_at":  now,
		"updated_at":  now,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create project: %w", err)
	}
	return id, nil
}

func (m *Manager) UpdateProject(ctx context.Context, projectID, ownerID uuid.UUID, title, description string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return apperr.Validation("Project title is required")
	}

	n, err := m.store.Update(ctx, "projects",
		map[string]interface{}{
			"title":       title,
			"description": strings.TrimSpace(description),
			"updated_at":  m.timestamp(),
		},
		"id = ? AND owner_id = ?", projectID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// DeleteProject removes the project, its assets and its sequence counters in
// one transaction, then deletes the stored files.
func (m *Manager) DeleteProject(ctx context.Context, projectID, ownerID uuid.UUID) error {
	var paths []string
	err := m.store.WithTx(ctx, func(tx *database.Store) error {
		if _, err := getProject(ctx, tx, projectID, ownerID); err != nil {
			return err
		}
		if err := tx.FetchAll(ctx, &paths, "SELECT file_path FROM midi_assets WHERE project_id = ?", projectID); err != nil {
			return err
		}
		if _, err := tx.Delete(ctx, "midi_assets", "project_id = ?", projectID); err != nil {
			return err
		}
		if _, err := tx.Delete(ctx, "asset_sequences", "project_id = ?", projectID); err != nil {
			return err
		}
		n, err := tx.Delete(ctx, "projects", "id = ? AND owner_id = ?", projectID, ownerID)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete project: %w", err)
	}

	for _, path := range paths {
		m.removeFile(ctx, path)
	}
	return nil
}

// DuplicateProject copies title and description into a new project. Assets
// are not copied. The copy counts against the owner's quota.
func (m *Manager) DuplicateProject(ctx context.Context, projectID, ownerID uuid.UUID) (uuid.UUID, error) {
	project, err := m.GetProject(ctx, projectID, ownerID)
	if err != nil {
		return uuid.Nil, err
	}
	return m.CreateProject(ctx, ownerID, duplicatePrefix+project.Title, project.Description)
}

// AddMidiAsset records a stored file against a project. Callers must have
// verified ownership. A path that is already recorded yields
// apperr.ErrConflict.
func (m *Manager) AddMidiAsset(ctx context.Context, projectID uuid.UUID, fileType, filePath string, params models.Parameters) (uuid.UUID, error) {
	id, err := m.store.Insert(ctx, "midi_assets", map[string]interface{}{
		"project_id":      projectID,
		"file_type":       fileType,
		"file_path":       filePath,
		"sequence_number": models.SequenceFromPath(filePath),
		"parameters":      params,
		"created_at":      m.timestamp(),
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to add midi asset: %w", err)
	}
	return id, nil
}

// GetMidiAsset looks an asset up by id alone. Callers that act for a user
// must check ownership through the parent project.
func (m *Manager) GetMidiAsset(ctx context.Context, id uuid.UUID) (*models.MidiAsset, error) {
	var asset models.MidiAsset
	if err := m.store.FetchOne(ctx, &asset, "SELECT * FROM midi_assets WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &asset, nil
}

type ownedAsset struct {
	models.MidiAsset
	ProjectOwnerID     uuid.UUID `db:"p_owner_id"`
	ProjectTitle       string    `db:"p_title"`
	ProjectDescription string    `db:"p_description"`
	ProjectCreatedAt   time.Time `db:"p_created_at"`
	ProjectUpdatedAt   time.Time `db:"p_updated_at"`
}

// GetOwnedMidiAsset returns the asset and its project when ownerID owns the
// project, apperr.ErrNotFound otherwise.
func (m *Manager) GetOwnedMidiAsset(ctx context.Context, id, ownerID uuid.UUID) (*models.MidiAsset, *models.Project, error) {
	var row ownedAsset
	err := m.store.FetchOne(ctx, &row, `
		SELECT a.*,
			p.owner_id AS p_owner_id,
			p.title AS p_title,
			p.description AS p_description,
			p.created_at AS p_created_at,
			p.updated_at AS p_updated_at
		FROM midi_assets a
		JOIN projects p ON p.id = a.project_id
		WHERE a.id = ? AND p.owner_id = ?
	`, id, ownerID)
	if err != nil {
		return nil, nil, err
	}

	project := &models.Project{
		ID:          row.ProjectID,
		OwnerID:     row.ProjectOwnerID,
		Title:       row.ProjectTitle,
		Description: row.ProjectDescription,
		CreatedAt:   row.ProjectCreatedAt,
		UpdatedAt:   row.ProjectUpdatedAt,
	}
	asset := row.MidiAsset
	return &asset, project, nil
}

// ListProjectMidiAssets returns the project's assets, newest first. A project
// the owner does not hold yields an empty list rather than an error.
func (m *Manager) ListProjectMidiAssets(ctx context.Context, projectID, ownerID uuid.UUID) ([]models.MidiAsset, error) {
	assets := []models.MidiAsset{}
	err := m.store.FetchAll(ctx, &assets, `
		SELECT a.* FROM midi_assets a
		JOIN projects p ON p.id = a.project_id
		WHERE a.project_id = ? AND p.owner_id = ?
		ORDER BY a.created_at DESC
	`, projectID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list midi assets: %w", err)
	}
	return assets, nil
}

// DeleteMidiAsset removes the stored file and then the row. A file that is
// already gone is not an error; a row that is already gone, even one removed
// by a concurrent delete, is apperr.ErrNotFound.
func (m *Manager) DeleteMidiAsset(ctx context.Context, id, ownerID uuid.UUID) error {
	asset, _, err := m.GetOwnedMidiAsset(ctx, id, ownerID)
	if err != nil {
		return err
	}

	m.removeFile(ctx, asset.FilePath)

	n, err := m.store.Delete(ctx, "midi_assets", "id = ?", asset.ID)
	if err != nil {
		return fmt.Errorf("failed to delete midi asset: %w", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// UpdateDisplayName sets or, for an empty name, clears an asset's display name.
func (m *Manager) UpdateDisplayName(ctx context.Context, id, ownerID uuid.UUID, name string) error {
	if err := ValidateDisplayName(name); err != nil {
		return err
	}

	asset, _, err := m.GetOwnedMidiAsset(ctx, id, ownerID)
	if err != nil {
		return err
	}

	value := sql.NullString{String: strings.TrimSpace(name)}
	value.Valid = value.String != ""

	if _, err := m.store.Update(ctx, "midi_assets",
		map[string]interface{}{"display_name": value},
		"id = ?", asset.ID,
	); err != nil {
		return fmt.Errorf("failed to rename midi asset: %w", err)
	}
	return nil
}

func (m *Manager) removeFile(ctx context.Context, path string) {
	if path == "" || m.files == nil {
		return
	}
	if err := m.files.Remove(ctx, path); err != nil {
		m.onFileError(path, err)
	}
}
