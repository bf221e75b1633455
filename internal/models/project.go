package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// File types produced by the generation service or by uploads.
const (
	FileTypeBass           = "bass"
	FileTypeSimpleChords   = "simple_chords"
	FileTypeComplexChords  = "complex_chords"
	FileTypeUploadedChords = "uploaded_chords"
)

type Project struct {
	ID          uuid.UUID `db:"id"`
	OwnerID     uuid.UUID `db:"owner_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type MidiAsset struct {
	ID             uuid.UUID      `db:"id"`
	ProjectID      uuid.UUID      `db:"project_id"`
	FileType       string         `db:"file_type"`
	FilePath       string         `db:"file_path"`
	DisplayName    sql.NullString `db:"display_name"`
	SequenceNumber int            `db:"sequence_number"`
	Parameters     Parameters     `db:"parameters"`
	CreatedAt      time.Time      `db:"created_at"`
}

var sequenceSuffix = regexp.MustCompile(`_(\d+)\.mid$`)

// SequenceFromPath extracts n from "..._{n}.mid", or 0 when absent.
func SequenceFromPath(path string) int {
	m := sequenceSuffix.FindStringSubmatch(path)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// Number returns the sequence number embedded in the file name, falling back
// to the stored column for rows whose path does not follow the naming scheme.
func (a *MidiAsset) Number() int {
	if n := SequenceFromPath(a.FilePath); n > 0 {
		return n
	}
	return a.SequenceNumber
}

// Label is the user-facing name: the display name when set, otherwise
// "Simple Chords 2" style text built from the type and number.
func (a *MidiAsset) Label() string {
	if a.DisplayName.Valid && a.DisplayName.String != "" {
		return a.DisplayName.String
	}
	label := TypeLabel(a.FileType)
	if n := a.Number(); n > 0 {
		label += " " + strconv.Itoa(n)
	}
	return label
}

// TypeLabel turns "simple_chords" into "Simple Chords".
func TypeLabel(fileType string) string {
	words := strings.Split(fileType, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Parameters is the schema-on-read generation metadata stored as JSON text.
type Parameters map[string]interface{}

func (p Parameters) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (p *Parameters) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*p = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("parameters: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*p = nil
		return nil
	}
	out := Parameters{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("parameters: %w", err)
	}
	*p = out
	return nil
}
