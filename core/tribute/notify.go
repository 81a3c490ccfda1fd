package tribute

import (
	"net/url"
	"strings"

	"github.com/trezcool/tributes/core"
)

const (
	notifyTemplate = "tribute_submitted"
	dateLayout     = "January 2, 2006 at 03:04 PM"

	// notification length limits
	maxNameLen    = 100
	maxMessageLen = 5000
	maxEmailLen   = 254
	maxPhoneLen   = 20
	maxURLLen     = 500
	maxSubjectLen = 998
)

// NotificationData is what the admin notification templates render.
type NotificationData struct {
	Name         string
	Message      string
	Email        string
	Phone        string
	ImageURL     string
	SubmittedAt  string
	DashboardURL string
}

func (svc *Service) notifyAdmins(t Tribute) {
	if len(svc.notif.AdminRecipients) == 0 {
		svc.logger.Warn("no admin emails configured; skipping tribute notification")
		return
	}
	svc.mailSvc.SendMessages(NewNotification(t, svc.notif))
}

// NewNotification builds the email telling the admins a tribute awaits moderation.
// User content is truncated here; escaping is left to the templates.
func NewNotification(t Tribute, notif core.NotificationConfig) *core.EmailMessage {
	data := NotificationData{
		Name:         core.Truncate(t.Name, maxNameLen),
		Message:      core.Truncate(t.Message, maxMessageLen),
		Email:        core.Truncate(t.Email.String, maxEmailLen),
		Phone:        core.Truncate(t.Phone.String, maxPhoneLen),
		ImageURL:     notificationImageURL(t.ImageURL.String, notif.SiteURL),
		SubmittedAt:  t.CreatedAt.UTC().Format(dateLayout),
		DashboardURL: strings.TrimRight(notif.SiteURL, "/") + "/admin/dashboard",
	}

	msg := &core.EmailMessage{
		To:           notif.AdminRecipients,
		Subject:      core.Truncate("New Tribute Submission from "+data.Name, maxSubjectLen),
		TemplateName: notifyTemplate,
		TemplateData: data,
		SiteName:     notif.SiteName,
		SiteURL:      notif.SiteURL,
	}
	if notif.Sender.Address != "" {
		sender := notif.Sender
		msg.From = &sender
	}
	return msg
}

// notificationImageURL resolves stored image paths against the site and drops anything
// that is not a well-formed http(s) URL.
func notificationImageURL(ref, siteURL string) string {
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "/") {
		ref = strings.TrimRight(siteURL, "/") + ref
	}
	ref = core.Truncate(ref, maxURLLen)
	u, err := url.Parse(ref)
	if err != nil || !(u.Scheme == "http" || u.Scheme == "https") || u.Host == "" {
		return ""
	}
	return ref
}
