// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package submit

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/gabriel-vasile/mimetype"

	"github.com/pdiddy/mathnote/pkg/types"
)

// ErrValidation matches every *ValidationError.
var ErrValidation = errors.New("invalid submission")

// Reason classifies a local validation failure.
type Reason string

const (
	ReasonUnsupportedType Reason = "unsupported file type"
	ReasonTooLarge        Reason = "file too large"
	ReasonEmpty           Reason = "file is empty"
	ReasonEmptyURL        Reason = "video URL is empty"
)

// ValidationError is returned before any network call when the input is
// rejected locally.
type ValidationError struct {
	Reason Reason
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
	}
	return string(e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// sniffLen is how much of the file is read to detect its type.
const sniffLen = 3072

var defaultUpload = types.UploadConfig{
	MaxSize:           500 * datasize.MB,
	AllowedTypes:      []string{"video/mp4", "video/quicktime"},
	AllowedExtensions: []string{".mp4", ".mov"},
}

// Validator applies the local file checks.
type Validator struct {
	cfg types.UploadConfig
}

// NewValidator returns a Validator for cfg. Empty fields take the
// defaults: 500MB, MP4 and QuickTime.
func NewValidator(cfg types.UploadConfig) *Validator {
	if cfg.MaxSize == 0 {
		cfg.MaxSize = defaultUpload.MaxSize
	}
	if len(cfg.AllowedTypes) == 0 {
		cfg.AllowedTypes = defaultUpload.AllowedTypes
	}
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = defaultUpload.AllowedExtensions
	}
	return &Validator{cfg: cfg}
}

// Checked is a file that passed validation. Body replays the sniffed
// header followed by the rest of the original reader.
type Checked struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// File checks name, size, and content of a candidate upload. The type is
// sniffed from the content; when the content is not recognized the
// extension decides. Size is checked after type.
func (v *Validator) File(name string, size int64, r io.Reader) (*Checked, error) {
	if size <= 0 {
		return nil, &ValidationError{Reason: ReasonEmpty, Detail: filepath.Base(name)}
	}

	header := make([]byte, sniffLen)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	header = header[:n]

	ct, ok := v.contentType(name, header)
	if !ok {
		return nil, &ValidationError{Reason: ReasonUnsupportedType, Detail: fmt.Sprintf("%s (%s)", filepath.Base(name), ct)}
	}
	if limit := int64(v.cfg.MaxSize.Bytes()); size > limit {
		return nil, &ValidationError{
			Reason: ReasonTooLarge,
			Detail: fmt.Sprintf("%s exceeds %s", datasize.ByteSize(size).HumanReadable(), v.cfg.MaxSize.HumanReadable()),
		}
	}

	return &Checked{
		Name:        filepath.Base(name),
		ContentType: ct,
		Size:        size,
		Body:        io.MultiReader(bytes.NewReader(header), r),
	}, nil
}

// contentType returns the MIME type to declare and whether it is allowed.
func (v *Validator) contentType(name string, header []byte) (string, bool) {
	mt := mimetype.Detect(header)
	for _, allowed := range v.cfg.AllowedTypes {
		if mt.Is(allowed) {
			return allowed, true
		}
	}
	if !mt.Is("application/octet-stream") {
		return mt.String(), false
	}

	ext := strings.ToLower(filepath.Ext(name))
	if !slices.Contains(v.cfg.AllowedExtensions, ext) {
		return mt.String(), false
	}
	if ct, ok := extensionTypes[ext]; ok {
		return ct, true
	}
	return mt.String(), true
}

var extensionTypes = map[string]string{
	".mp4": "video/mp4",
	".mov": "video/quicktime",
}

// URL checks a submitted video URL. Only emptiness is validated locally;
// the backend decides whether it can fetch it.
func URL(raw string) (string, error) {
	u := strings.TrimSpace(raw)
	if u == "" {
		return "", &ValidationError{Reason: ReasonEmptyURL}
	}
	return u, nil
}
