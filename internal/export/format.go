package export

import (
	"image"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Format is one of PDF, JPEG, TXT or Spreadsheet.
type Format interface {
	// Name is the short label of the format in reports and metrics.
	Name() string
	isFormat()
}

// PDF writes one page per source raster, scaled to fit. With IncludeOCRText
// the recognized text of each page is printed below its image.
type PDF struct {
	BaseName       string `validate:"omitempty,max=200,excludesall=/\\"`
	IncludeOCRText bool
}

// JPEG writes one file per page, scan_page_<n>.jpg.
type JPEG struct {
	Quality int `validate:"min=0,max=100"`
}

// TXT writes the text of every page into one file.
type TXT struct {
	BaseName string `validate:"omitempty,max=200,excludesall=/\\"`
}

// Spreadsheet detects a table on one image and writes it as a workbook. Image
// takes precedence over the stored raster of PageNumber.
type Spreadsheet struct {
	BaseName   string      `validate:"omitempty,max=200,excludesall=/\\"`
	PageNumber int         `validate:"min=0"`
	Image      image.Image `validate:"-"`
}

func (PDF) Name() string         { return "pdf" }
func (JPEG) Name() string        { return "jpeg" }
func (TXT) Name() string         { return "txt" }
func (Spreadsheet) Name() string { return "xlsx" }

func (PDF) isFormat()         {}
func (JPEG) isFormat()        {}
func (TXT) isFormat()         {}
func (Spreadsheet) isFormat() {}

// ParseFormat builds a format from its name with default options.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pdf":
		return PDF{}, nil
	case "jpeg", "jpg":
		return JPEG{Quality: DefaultJPEGQuality}, nil
	case "txt", "text":
		return TXT{}, nil
	case "xlsx", "spreadsheet", "table":
		return Spreadsheet{}, nil
	default:
		return nil, ErrUnknownFormat
	}
}
