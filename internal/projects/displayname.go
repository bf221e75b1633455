package projects

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"mess-o-midi-backend/internal/apperr"
	"mess-o-midi-backend/internal/models"
)

const MaxDisplayNameLength = 50

// forbiddenChars cannot appear in a display name because the name ends up in
// a download filename.
const forbiddenChars = `/\:*?"<>|`

// ValidateDisplayName checks a user-supplied asset name after trimming.
// The empty string is valid and means "clear the name".
func ValidateDisplayName(name string) error {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return apperr.Validation("Name must be 50 characters or less")
	}
	if strings.ContainsAny(name, forbiddenChars) {
		return apperr.Validation(`Name cannot contain / \ : * ? " < > |`)
	}
	return nil
}

// DownloadName is the filename offered when an asset is downloaded:
// "{display name}.mid", or "{project title} - {Type Label} {n}.mid".
func DownloadName(project *models.Project, asset *models.MidiAsset) string {
	var base string
	if asset.DisplayName.Valid && asset.DisplayName.String != "" {
		base = asset.DisplayName.String
	} else {
		base = project.Title + " - " + models.TypeLabel(asset.FileType)
		if n := asset.Number(); n > 0 {
			base += " " + strconv.Itoa(n)
		}
	}
	return sanitizeFilename(base) + ".mid"
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(forbiddenChars, r) || r < 0x20 {
			return '_'
		}
		return r
	}, s)
}
