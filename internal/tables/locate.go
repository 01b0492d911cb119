// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tables

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrArtifactNotFound reports that a requested markdown or exported artifact
// does not exist. Callers map it to a not-found response.
var ErrArtifactNotFound = errors.New("artifact not found")

// LocateMarkdown finds a processed document's markdown under the output
// root. The conversion step's layout is not fully consistent, so three
// layouts are checked in order: the per-document folder, a doubly-nested
// variant, and a flat file.
func LocateMarkdown(outputRoot, document string) (string, error) {
	layouts := []string{
		filepath.Join(outputRoot, document, document+".md"),
		filepath.Join(outputRoot, document, document, document+".md"),
		filepath.Join(outputRoot, document+".md"),
	}
	for _, path := range layouts {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", fmt.Errorf("markdown for document %q under %s: %w", document, outputRoot, ErrArtifactNotFound)
}
