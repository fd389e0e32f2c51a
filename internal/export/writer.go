package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/matillion/slack-export/internal/timewindow"
)

// Format is an artifact format, named by its file extension.
type Format string

const (
	FormatPlain    Format = "txt"
	FormatMarkdown Format = "md"
)

// Artifact describes a file written by an ArtifactWriter.
type Artifact struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Format  Format `json:"format"`
	Bytes   int64  `json:"bytes"`
	Lines   int    `json:"lines"`
	Content []byte `json:"-"`
}

// ArtifactWriter persists rendered exports under a name.
type ArtifactWriter interface {
	Write(baseName string, format Format, content []byte) (Artifact, error)
	Dir() string
}

// FileArtifactWriter writes artifacts to files on disk
type FileArtifactWriter struct {
	dir string
}

// NewFileArtifactWriter creates a writer that stores files in the given directory
func NewFileArtifactWriter(dir string) *FileArtifactWriter {
	return &FileArtifactWriter{dir: dir}
}

// Dir returns the directory where files are written
func (w *FileArtifactWriter) Dir() string {
	return w.dir
}

// Write stores content as {baseName}.{format}, creating the directory if needed.
// The file is written under a temporary name and renamed into place, so a
// concurrent export of the same window never observes a partial file.
func (w *FileArtifactWriter) Write(baseName string, format Format, content []byte) (Artifact, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("failed to create export directory: %w", err)
	}

	filename := baseName + "." + string(format)
	filePath := filepath.Join(w.dir, filename)

	tmp, err := os.CreateTemp(w.dir, "."+filename+".tmp-*")
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return Artifact{}, fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Artifact{}, fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return Artifact{}, fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return Artifact{}, fmt.Errorf("failed to move file into place: %w", err)
	}

	return Artifact{
		Path:    filePath,
		Name:    filename,
		Format:  format,
		Bytes:   int64(len(content)),
		Lines:   countLines(content),
		Content: content,
	}, nil
}

// BaseName derives the artifact name for a channel and window:
// {channel}_{YYYYMMDD}-{YYYYMMDD}, both dates in local time.
func BaseName(channelName string, w timewindow.Window) string {
	return fmt.Sprintf("%s_%s-%s",
		sanitizeName(channelName),
		timewindow.Local(w.Start).Format("20060102"),
		timewindow.Local(w.End).Format("20060102"))
}

// sanitizeName keeps letters, digits, '-' and '_'. Full-width forms are
// folded with NFKC first, so the same channel always maps to the same name.
func sanitizeName(name string) string {
	name = norm.NFKC.String(strings.TrimPrefix(strings.TrimSpace(name), "#"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	s := strings.Trim(b.String(), "_")
	if s == "" {
		return "channel"
	}
	return s
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	n := bytes.Count(content, []byte{'\n'})
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}
