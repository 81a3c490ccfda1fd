package export

import (
	"bytes"

	"github.com/pkg/errors"
)

type (
	manifestData struct {
		AppName       string
		SiteName      string
		GeneratedAt   string
		DocumentName  string
		ManifestName  string
		ImagesDir     string
		Total         int
		ApprovedCount int
		PendingCount  int
		Images        []manifestImage
	}

	manifestImage struct {
		Filename string
		Name     string
	}
)

// renderManifest writes the README of a bundled archive. Every planned image is listed,
// fetched or not, since the document references them all.
func renderManifest(total, approved int, jobs []imageJob, opts Options) ([]byte, error) {
	data := manifestData{
		AppName:       opts.AppName,
		SiteName:      opts.SiteName,
		GeneratedAt:   opts.format(opts.GeneratedAt),
		DocumentName:  documentName,
		ManifestName:  manifestName,
		ImagesDir:     imagesDir,
		Total:         total,
		ApprovedCount: approved,
		PendingCount:  total - approved,
		Images:        make([]manifestImage, 0, len(jobs)),
	}
	for _, job := range jobs {
		data.Images = append(data.Images, manifestImage{Filename: job.filename, Name: job.name})
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, manifestTmpl, data); err != nil {
		return nil, errors.Wrap(err, "rendering export manifest")
	}
	return buf.Bytes(), nil
}
