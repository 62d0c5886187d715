package templates

import (
	"embed"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	FormHTML   = "form.html"
	ResumeDocx = "resume.docx"
)

//go:embed form.html resume.docx
var embedded embed.FS

// Read returns the named template from dir when it exists there, otherwise the built-in copy.
func Read(dir, name string) ([]byte, error) {
	dir = strings.TrimSpace(dir)
	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return embedded.ReadFile(name)
}
