package export

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"context"
	"io"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/tributes/core"
	"github.com/trezcool/tributes/core/tribute"
)

const (
	compressionLevel   = 6
	defaultConcurrency = 8
)

// imageJob is one image file of the archive.
type imageJob struct {
	filename string
	ref      string
	name     string // submitter, for the manifest
}

// planImages lists the image files of the archive in first appearance order.
// Tributes sharing a filename collapse into one file; the later tribute (in input order) wins.
func planImages(tributes []tribute.Tribute) []imageJob {
	var (
		jobs  []imageJob
		index = make(map[string]int)
	)
	for _, t := range tributes {
		if !t.HasImage() {
			continue
		}
		job := imageJob{
			filename: ImageFilename(t.Name, t.CreatedAt, t.ImageURL.String),
			ref:      t.ImageURL.String,
			name:     t.Name,
		}
		if i, ok := index[job.filename]; ok {
			jobs[i] = job
			continue
		}
		index[job.filename] = len(jobs)
		jobs = append(jobs, job)
	}
	return jobs
}

// fetchImages fetches every job with at most `concurrency` fetches in flight and waits for all of
// them to settle. A failed fetch is logged, reported & skipped: it never cancels the others.
// The returned slice is indexed like jobs; failed entries are nil.
func fetchImages(
	ctx context.Context,
	fetcher Fetcher,
	jobs []imageJob,
	concurrency int,
	logger core.Logger,
) ([][]byte, Report, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(fetcher, "fetcher"),
		vala.IsNotNil(logger, "logger"),
		vala.GreaterThan(concurrency, 0, "concurrency"),
	).Check(); err != nil {
		return nil, Report{}, err
	}

	images := make([][]byte, len(jobs))
	errs := make([]error, len(jobs))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i := range jobs {
		g.Go(func() error {
			start := time.Now()
			data, err := fetcher.Fetch(ctx, jobs[i].ref)
			imageFetchSeconds.Observe(time.Since(start).Seconds())
			if err != nil {
				errs[i] = err
				return nil
			}
			images[i] = data
			return nil
		})
	}
	_ = g.Wait() // workers never fail

	report := Report{Images: len(jobs)}
	for i, job := range jobs {
		if errs[i] != nil {
			logger.Warn("export: skipping image "+job.filename, errors.Wrap(errs[i], job.ref))
			report.fail(job, errs[i])
			imagesFetchedTotal.WithLabelValues("failed").Inc()
			continue
		}
		report.Fetched++
		imagesFetchedTotal.WithLabelValues("ok").Inc()
	}
	return images, report, nil
}

// writeArchive writes the bundled zip: the document, the images directory (if any image was
// planned), each fetched image, then the manifest. Entries are stamped with `modified`.
func writeArchive(w io.Writer, document, manifest []byte, jobs []imageJob, images [][]byte, modified time.Time) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, compressionLevel)
	})

	add := func(name string, data []byte) error {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified})
		if err != nil {
			return errors.Wrap(err, "adding "+name)
		}
		_, err = fw.Write(data)
		return errors.Wrap(err, "writing "+name)
	}

	if err := add(documentName, document); err != nil {
		return err
	}
	if len(jobs) > 0 {
		if _, err := zw.CreateHeader(&zip.FileHeader{Name: imagesDir + "/", Method: zip.Store, Modified: modified}); err != nil {
			return errors.Wrap(err, "adding "+imagesDir+"/")
		}
	}
	for i, job := range jobs {
		if images[i] == nil {
			continue
		}
		if err := add(imagesDir+"/"+job.filename, images[i]); err != nil {
			return err
		}
	}
	if err := add(manifestName, manifest); err != nil {
		return err
	}
	return errors.Wrap(zw.Close(), "closing archive")
}

// bundle builds the bundled archive of tributes.
func (svc *Service) bundle(ctx context.Context, tributes []tribute.Tribute, opts Options) ([]byte, Report, error) {
	document, err := renderDocument(tributes, ModeBundled, opts)
	if err != nil {
		return nil, Report{}, err
	}

	jobs := planImages(tributes)
	images, report, err := fetchImages(ctx, svc.fetcher, jobs, svc.concurrency, svc.logger)
	if err != nil {
		return nil, Report{}, err
	}

	approved, _ := tribute.Partition(tributes)
	manifest, err := renderManifest(len(tributes), len(approved), jobs, opts)
	if err != nil {
		return nil, Report{}, err
	}

	var buf bytes.Buffer
	if err := writeArchive(&buf, document, manifest, jobs, images, opts.GeneratedAt); err != nil {
		return nil, Report{}, err
	}
	return buf.Bytes(), report, nil
}
