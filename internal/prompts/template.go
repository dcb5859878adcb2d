package prompts

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	promptExt = ".md"
	schemaExt = ".schema.json"
)

// HashText returns a SHA256 hash of the text for change detection.
func HashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// validName rejects names that could escape the prompt directory.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
