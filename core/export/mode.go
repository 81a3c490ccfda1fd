package export

import (
	"strings"
	"time"

	"github.com/trezcool/tributes/core"
)

// Mode selects the shape of the export artifact.
type Mode string

const (
	// ModeLinked is a single HTML document whose images point back at the site.
	ModeLinked Mode = "linked"
	// ModeBundled is a self-contained zip: the document, the images it references & a README.
	ModeBundled Mode = "bundled"
)

const errUnknownMode = "Invalid export mode. Use 'linked' or 'bundled'."

func ParseMode(s string) (Mode, error) {
	switch Mode(core.CleanString(s, true /* lower */)) {
	case ModeLinked:
		return ModeLinked, nil
	case ModeBundled:
		return ModeBundled, nil
	}
	return "", core.NewValidationMessage(errUnknownMode)
}

// Options drive the rendering of an export.
type Options struct {
	AppName     string
	SiteName    string
	BaseURL     string // images not hosted elsewhere are resolved against it
	GeneratedAt time.Time
	Location    *time.Location // dates are rendered in it; defaults to UTC
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

func (o Options) format(t time.Time) string {
	return t.In(o.location()).Format(dateLayout)
}

// Artifact is a finished export, ready to be downloaded or written to disk.
type Artifact struct {
	Filename    string
	ContentType string
	Body        []byte
	Checksum    string // hex sha256 of Body
	Report      Report
}

// Report accounts for the images of a bundled export.
type Report struct {
	Images  int // distinct image files referenced by the document
	Fetched int
	Failed  []Failure
}

// Failure is an image that could not be fetched; the archive was built without it.
type Failure struct {
	Filename string
	Ref      string
	Err      string
}

func (r *Report) fail(job imageJob, err error) {
	r.Failed = append(r.Failed, Failure{Filename: job.filename, Ref: job.ref, Err: err.Error()})
}
