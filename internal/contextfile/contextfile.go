// Package contextfile builds context file descriptors from local files.
// Only metadata is read into the descriptor; contents never leave the
// machine.
package contextfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/user/promptengine/internal/types"
)

// Describe stats each path and sniffs its MIME type. It returns nil for no
// paths so that callers never hold an empty list.
func Describe(paths []string) ([]types.ContextFile, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	files := make([]types.ContextFile, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat context file: %w", err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("context file %s is a directory", path)
		}

		mtype, err := mimetype.DetectFile(path)
		if err != nil {
			return nil, fmt.Errorf("detect type of %s: %w", path, err)
		}

		files = append(files, types.ContextFile{
			Name: filepath.Base(path),
			Type: MediaType(mtype.String()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MediaType strips parameters such as charset from a MIME string.
func MediaType(s string) string {
	mt, _, _ := strings.Cut(s, ";")
	return strings.TrimSpace(mt)
}
