// Package media describes local video files and the checks they pass before upload.
package media

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MaxFileSize is the largest accepted upload, inclusive.
const MaxFileSize int64 = 200 * 1024 * 1024

// AllowedTypes are the accepted MIME types.
var AllowedTypes = []string{
	"video/mp4",
	"video/quicktime",
	"video/x-msvideo",
	"video/webm",
	"video/x-matroska",
}

// AllowedExtensions are the accepted lower-case file extensions.
var AllowedExtensions = []string{".mp4", ".mov", ".avi", ".webm", ".mkv"}

var typeByExtension = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
}

// File is a local file offered for upload.
type File interface {
	Name() string
	Size() int64
	Type() string // MIME type, "" when unknown
	Open() (io.ReadCloser, error)
}

// LocalFile is a File on disk.
type LocalFile struct {
	path  string
	name  string
	size  int64
	ctype string
}

// OpenLocal stats path and determines its MIME type from the extension, falling back to
// content sniffing.
func OpenLocal(path string) (*LocalFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	f := &LocalFile{path: path, name: filepath.Base(path), size: info.Size()}
	f.ctype = detectType(path, f.name)
	return f, nil
}

func (f *LocalFile) Name() string                 { return f.name }
func (f *LocalFile) Size() int64                  { return f.size }
func (f *LocalFile) Type() string                 { return f.ctype }
func (f *LocalFile) Path() string                 { return f.path }
func (f *LocalFile) Open() (io.ReadCloser, error) { return os.Open(f.path) }

func detectType(path, name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := typeByExtension[ext]; ok {
		return t
	}
	fh, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer fh.Close()
	head := make([]byte, 512)
	n, _ := io.ReadFull(fh, head)
	sniffed := http.DetectContentType(head[:n])
	if sniffed == "application/octet-stream" {
		return ""
	}
	mediaType, _, _ := mime.ParseMediaType(sniffed)
	return mediaType
}

// Memory is an in-memory File.
type Memory struct {
	FileName string
	FileType string
	Data     []byte
}

func (m *Memory) Name() string                 { return m.FileName }
func (m *Memory) Size() int64                  { return int64(len(m.Data)) }
func (m *Memory) Type() string                 { return m.FileType }
func (m *Memory) Open() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(m.Data)), nil }

// Reason classifies a pre-flight rejection.
type Reason int

const (
	ReasonFormat Reason = iota + 1
	ReasonSize
)

// ValidationError is a file rejected before any network call.
type ValidationError struct {
	FileName string
	Reason   Reason
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonSize:
		return fmt.Sprintf("%s: the maximum allowed size is %dMB", e.FileName, MaxFileSize/(1024*1024))
	default:
		return fmt.Sprintf("%s: only mp4, mov, avi, webm and mkv files are allowed", e.FileName)
	}
}

// Extension returns the lower-cased extension of name including the dot, or "".
func Extension(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i:])
}

// Validate checks format, then size. The format passes when either the MIME type or
// the extension is allowed.
func Validate(f File) error {
	if !allowedType(f.Type()) && !allowedExtension(Extension(f.Name())) {
		return &ValidationError{FileName: f.Name(), Reason: ReasonFormat}
	}
	if f.Size() > MaxFileSize {
		return &ValidationError{FileName: f.Name(), Reason: ReasonSize}
	}
	return nil
}

func allowedType(t string) bool {
	for _, a := range AllowedTypes {
		if t == a {
			return true
		}
	}
	return false
}

func allowedExtension(ext string) bool {
	for _, a := range AllowedExtensions {
		if ext == a {
			return true
		}
	}
	return false
}

// TitleFromName drops one trailing ".<ext>" (an extension holds no '.' or '/') and
// returns the NFC form of the rest.
func TitleFromName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		ext := name[i+1:]
		if ext != "" && !strings.ContainsAny(ext, "/") {
			name = name[:i]
		}
	}
	return norm.NFC.String(name)
}
