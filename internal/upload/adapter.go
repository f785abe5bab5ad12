// Package upload turns a locally selected receipt image into a preview and
// a payload ready for transmission.
package upload

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/litschool/admissions-portal/internal/models"
	apperrors "github.com/litschool/admissions-portal/pkg/errors"
	_ "golang.org/x/image/webp" // registers the webp decoder used by imaging
)

const (
	DefaultMaxBytes         = 10 * 1024 * 1024
	DefaultMaxPixels        = 40_000_000
	DefaultPreviewMaxPixels = 480
	previewQuality          = 80
)

// Error is a rejected file. Message is shown to the applicant.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

// Unwrap places every rejection in the upload category
func (e *Error) Unwrap() error { return apperrors.ErrUpload }

// Failure reasons
var (
	ErrNoFile          = &Error{Message: "Please upload a receipt image."}
	ErrTooLarge        = &Error{Message: "The receipt image is too large."}
	ErrTooManyPixels   = &Error{Message: "The receipt image dimensions are too large."}
	ErrUnsupportedType = &Error{Message: "The receipt must be a JPEG, PNG or WebP image."}
	ErrUnreadableImage = &Error{Message: "The receipt image could not be read."}
)

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Config bounds accepted files and previews
type Config struct {
	MaxBytes int64
	// MaxPixels caps width*height so a small file cannot declare a huge
	// canvas that the decoder would allocate.
	MaxPixels        int
	PreviewMaxPixels int
}

// DefaultConfig returns the limits used by the portal
func DefaultConfig() Config {
	return Config{
		MaxBytes:         DefaultMaxBytes,
		MaxPixels:        DefaultMaxPixels,
		PreviewMaxPixels: DefaultPreviewMaxPixels,
	}
}

// Selection is an accepted file
type Selection struct {
	FileName    string
	ContentType string
	Preview     string
	Payload     []byte
}

// Receipt converts the selection into the model sent to the admissions API
func (s Selection) Receipt() models.Receipt {
	return models.Receipt{
		FileName:    s.FileName,
		ContentType: s.ContentType,
		Size:        len(s.Payload),
		Preview:     s.Preview,
		Payload:     s.Payload,
	}
}

// Adapter holds at most one selected file. It is not safe for concurrent
// use; the owner serializes access.
type Adapter struct {
	cfg     Config
	current *Selection
}

// NewAdapter creates an empty adapter
func NewAdapter(cfg Config) *Adapter {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = DefaultMaxPixels
	}
	if cfg.PreviewMaxPixels <= 0 {
		cfg.PreviewMaxPixels = DefaultPreviewMaxPixels
	}
	return &Adapter{cfg: cfg}
}

// Config returns the limits of the adapter
func (a *Adapter) Config() Config {
	return a.cfg
}

// Prepare checks data and builds its selection without touching the
// adapter state.
func (a *Adapter) Prepare(fileName string, data []byte) (Selection, error) {
	if len(data) == 0 {
		return Selection{}, ErrNoFile
	}
	if int64(len(data)) > a.cfg.MaxBytes {
		return Selection{}, ErrTooLarge
	}

	mtype := mimetype.Detect(data)
	contentType := strings.SplitN(mtype.String(), ";", 2)[0]
	if !allowedTypes[contentType] {
		return Selection{}, fmt.Errorf("%w: detected %s", ErrUnsupportedType, contentType)
	}

	if err := a.checkDimensions(data); err != nil {
		return Selection{}, err
	}

	preview, err := a.preview(data)
	if err != nil {
		return Selection{}, err
	}

	return Selection{
		FileName:    cleanFileName(fileName, mtype.Extension()),
		ContentType: contentType,
		Preview:     preview,
		Payload:     append([]byte(nil), data...),
	}, nil
}

// Select stores data as the current file. An invalid file leaves the
// previous selection in place.
func (a *Adapter) Select(fileName string, data []byte) (Selection, error) {
	sel, err := a.Prepare(fileName, data)
	if err != nil {
		return Selection{}, err
	}
	a.Set(sel)
	return sel, nil
}

// Replace swaps the current file for a new one
func (a *Adapter) Replace(fileName string, data []byte) (Selection, error) {
	return a.Select(fileName, data)
}

// Set stores an already prepared selection
func (a *Adapter) Set(sel Selection) {
	a.current = &sel
}

// Remove clears the preview and the payload
func (a *Adapter) Remove() {
	a.current = nil
}

// Current returns the selected file, if any
func (a *Adapter) Current() (Selection, bool) {
	if a.current == nil {
		return Selection{}, false
	}
	return *a.current, true
}

// HasFile reports whether a file is selected
func (a *Adapter) HasFile() bool {
	return a.current != nil
}

// checkDimensions reads only the image header
func (a *Adapter) checkDimensions(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ErrUnreadableImage
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(a.cfg.MaxPixels) {
		return fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}
	return nil
}

// preview renders a JPEG thumbnail as a data URI
func (a *Adapter) preview(data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}

	thumb := imaging.Fit(img, a.cfg.PreviewMaxPixels, a.cfg.PreviewMaxPixels, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(previewQuality)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadableImage, err)
	}
	return DataURI("image/jpeg", buf.Bytes()), nil
}

// DataURI encodes data as a base64 data URI
func DataURI(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func cleanFileName(name, ext string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		name = "receipt" + ext
	}
	return name
}

// MessageOf returns the applicant facing reason of a rejected file
func MessageOf(err error) string {
	var uerr *Error
	if errors.As(err, &uerr) {
		return uerr.Message
	}
	return ErrUnreadableImage.Message
}
