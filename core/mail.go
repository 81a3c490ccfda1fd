package core

import (
	"bytes"
	htmltmpl "html/template"
	"io/fs"
	"log"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	appfs "github.com/trezcool/tributes/fs"
)

const emailTemplatesDir = "templates/email"

var (
	templates tmplCache
	tmplInit  sync.Once
)

type (
	tmplCacheEntry map[string]interface{}    // {ext: *Template}
	tmplCache      map[string]tmplCacheEntry // {name: {tmplCacheEntry}}

	EmailMessage struct {
		From    *mail.Address // falls back to the service's default sender
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		SiteName     string
		SiteURL      string
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		SiteName string
		SiteURL  string
		Data     interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func (m *EmailMessage) getContextData() ContextData {
	return ContextData{
		SiteName: m.SiteName,
		SiteURL:  m.SiteURL,
		Data:     m.TemplateData,
	}
}

func (m *EmailMessage) getTemplate(ext string) (interface{}, bool) {
	cache, ok := templates[m.TemplateName]
	if !ok {
		return nil, ok
	}
	tmplEntry, ok := cache[ext]
	return tmplEntry, ok
}

func (m *EmailMessage) renderText() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	} else if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := m.getTemplate(".txt")
	if !ok {
		return nil
	}
	tmpl, ok := tmplEntry.(*texttmpl.Template)
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, m.getContextData()); err != nil {
		return err
	}
	m.TextContent = buff.String()
	return nil
}

func (m *EmailMessage) renderHTML() error {
	if m.TemplateName == "" {
		return nil
	}

	tmplEntry, ok := m.getTemplate(".gohtml")
	if !ok {
		return nil
	}
	tmpl, ok := tmplEntry.(*htmltmpl.Template)
	if !ok {
		return nil
	}

	var buff bytes.Buffer
	if err := tmpl.Execute(&buff, m.getContextData()); err != nil {
		return err
	}
	m.HTMLContent = buff.String()
	return nil
}

func (m *EmailMessage) Render() error {
	if m.TemplateName != "" {
		ParseEmailTemplates(nil) // no-op after the first call
	}
	if err := m.renderText(); err != nil {
		return errors.Wrap(err, "rendering text/plain")
	}
	return errors.Wrap(m.renderHTML(), "rendering text/html")
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

// emailFuncs are available in both text and html email templates.
var emailFuncs = map[string]interface{}{
	"lines": func(s string) []string { return strings.Split(s, "\n") },
}

// ParseEmailTemplates parses the embedded email templates once.
// Templates starting with "_" are bases, shared by every template of the same extension.
func ParseEmailTemplates(logger Logger) {
	tmplInit.Do(func() {
		templates = make(tmplCache)
		logErr := func(err error) {
			err = errors.Wrap(err, "core.ParseEmailTemplates")
			if logger != nil {
				logger.Error(err.Error(), err)
			} else {
				log.Print(err)
			}
		}

		entries, err := fs.ReadDir(appfs.FS, emailTemplatesDir)
		if err != nil {
			logErr(err)
			return
		}

		for _, e := range entries {
			fname := e.Name()
			ext := path.Ext(fname)
			if e.IsDir() || strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
				continue
			}
			name := strings.TrimSuffix(fname, ext)
			entry, ok := templates[name]
			if !ok {
				entry = make(tmplCacheEntry)
				templates[name] = entry
			}
			base := path.Join(emailTemplatesDir, "_base"+ext)
			fp := path.Join(emailTemplatesDir, fname)

			if ext == ".txt" {
				tmpl, err := texttmpl.New(path.Base(base)).Funcs(emailFuncs).ParseFS(appfs.FS, base, fp)
				if err != nil {
					logErr(err)
					continue
				}
				entry[ext] = tmpl.Option("missingkey=error")
			} else {
				tmpl, err := htmltmpl.New(path.Base(base)).Funcs(emailFuncs).ParseFS(appfs.FS, base, fp)
				if err != nil {
					logErr(err)
					continue
				}
				entry[ext] = tmpl.Option("missingkey=error")
			}
		}
	})
}
