package archive

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SanitizeFilename replaces every character outside [a-zA-Z0-9._-] with an
// underscore. Input is NFC-normalized first so a decomposed diacritic counts
// as one character.
func SanitizeFilename(name string) string {
	name = norm.NFC.String(name)
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// WorkbookFilename builds the archive entry name for a doctor workbook. An
// empty display name falls back to the doctor key.
func WorkbookFilename(displayName, doctorKey, ext string) string {
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = "Doctor_" + doctorKey
	} else {
		name = "Doctor_" + name
	}
	return SanitizeFilename(name) + ext
}

// ExportFilename is the attachment name of a finished archive.
func ExportFilename(unixMillis int64) string {
	return "export_" + strconv.FormatInt(unixMillis, 10) + ".zip"
}
