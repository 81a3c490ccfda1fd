package export

import (
	"bytes"
	"io"
	"strings"
	"text/template"

	"github.com/pkg/errors"

	"github.com/trezcool/tributes/core/tribute"
	appfs "github.com/trezcool/tributes/fs"
)

const (
	dateLayout     = "January 2, 2006 at 03:04 PM"
	templatesGlob  = "templates/export/*.tmpl"
	documentTmpl   = "document.html.tmpl"
	manifestTmpl   = "readme.txt.tmpl"
	documentName   = "tributes.html"
	manifestName   = "README.txt"
	imagesDir      = "images"
	linkedPrefix   = "tributes-linked-"
	bundledPrefix  = "tributes-with-images-"
	filenameLayout = "2006-01-02"
)

var (
	htmlEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)

	templates = template.Must(
		template.New("export").
			Funcs(template.FuncMap{"esc": htmlEscaper.Replace}).
			Option("missingkey=error").
			ParseFS(appfs.FS, templatesGlob),
	)
)

type (
	documentData struct {
		AppName     string
		SiteName    string
		GeneratedAt string
		Linked      bool
		Total       int
		Approved    []card
		Pending     []card
	}

	card struct {
		Name       string
		Message    string
		Email      string
		Phone      string
		AdminNotes string
		Submitted  string
		ApprovedAt string
		Approved   bool
		Linked     bool
		ImageSrc   string
	}
)

// RenderDocument writes the tribute document: approved tributes first, then pending ones, each
// group in input order. It makes no network calls; equal inputs render identical bytes.
func RenderDocument(w io.Writer, tributes []tribute.Tribute, mode Mode, opts Options) error {
	approved, pending := tribute.Partition(tributes)
	data := documentData{
		AppName:     opts.AppName,
		SiteName:    opts.SiteName,
		GeneratedAt: opts.format(opts.GeneratedAt),
		Linked:      mode == ModeLinked,
		Total:       len(tributes),
		Approved:    makeCards(approved, mode, opts),
		Pending:     makeCards(pending, mode, opts),
	}
	return errors.Wrap(templates.ExecuteTemplate(w, documentTmpl, data), "rendering export document")
}

func renderDocument(tributes []tribute.Tribute, mode Mode, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := RenderDocument(&buf, tributes, mode, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func makeCards(tributes []tribute.Tribute, mode Mode, opts Options) []card {
	cards := make([]card, 0, len(tributes))
	for _, t := range tributes {
		c := card{
			Name:       t.Name,
			Message:    t.Message,
			Email:      t.Email.String,
			Phone:      t.Phone.String,
			AdminNotes: t.AdminNotes.String,
			Submitted:  opts.format(t.CreatedAt),
			Approved:   t.Approved,
			Linked:     mode == ModeLinked,
		}
		if t.ApprovedAt.Valid {
			c.ApprovedAt = opts.format(t.ApprovedAt.Time)
		}
		if t.HasImage() {
			if mode == ModeLinked {
				c.ImageSrc = absoluteURL(t.ImageURL.String, opts.BaseURL)
			} else {
				c.ImageSrc = imagesDir + "/" + ImageFilename(t.Name, t.CreatedAt, t.ImageURL.String)
			}
		}
		cards = append(cards, c)
	}
	return cards
}

// absoluteURL joins site relative references onto base. References already pointing at a host are kept.
func absoluteURL(ref, base string) string {
	if strings.HasPrefix(ref, "http") {
		return ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return strings.TrimRight(base, "/") + ref
}
