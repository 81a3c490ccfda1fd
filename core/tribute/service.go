package tribute

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tributes/core"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound    = errors.New("tribute not found")
	ErrImageUpload = errors.New("failed to upload image")

	errMessageRequired = "Message is required"
	errNameRequired    = "Name is required when not submitting anonymously"
	errInvalidEmail    = "Invalid email address"
	errInvalidRequest  = "Invalid request data"

	// DefaultOrdering is the order of every listing unless told otherwise: most recent first.
	DefaultOrdering = []core.DBOrdering{{Field: "created_at", Ascending: false}}
	// OrderingFields are the fields a listing may be ordered by.
	OrderingFields = []string{"created_at", "approved_at", "name", "approved", "id"}
)

type (
	Repository interface {
		CreateTribute(ctx context.Context, t Tribute) (Tribute, error)
		GetTribute(ctx context.Context, id int64) (Tribute, error)
		QueryTributes(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Tribute, error)
		// UpdateModeration atomically overwrites the moderation fields of a tribute (last write wins).
		// Returns ErrNotFound if id does not resolve.
		UpdateModeration(ctx context.Context, id int64, approved bool, approvedAt null.Time, notes null.String) (Tribute, error)
	}

	Service struct {
		repo    Repository
		blobs   core.BlobStore
		mailSvc core.EmailService
		notif   core.NotificationConfig
		logger  core.Logger
	}
)

func NewService(
	repo Repository,
	blobs core.BlobStore,
	mailSvc core.EmailService,
	notif core.NotificationConfig,
	logger core.Logger,
) *Service {
	return &Service{
		repo:    repo,
		blobs:   blobs,
		mailSvc: mailSvc,
		notif:   notif,
		logger:  logger,
	}
}

// Submit validates & persists a new tribute (pending approval), then notifies the admins.
// Notification failures never fail the submission.
func (svc *Service) Submit(ctx context.Context, nt NewTribute) (Tribute, error) {
	nt.clean()
	if err := nt.check(); err != nil {
		return Tribute{}, err
	}

	var imageURL null.String
	if nt.Image != nil && len(nt.Image.Data) > 0 {
		contentType, err := checkImage(nt.Image.Data)
		if err != nil {
			return Tribute{}, err
		}
		url, err := svc.storeImage(ctx, nt.Image.Data, contentType)
		if err != nil {
			return Tribute{}, err
		}
		imageURL = null.StringFrom(url)
	}

	t, err := svc.repo.CreateTribute(ctx, Tribute{
		Name:      nt.Name,
		Message:   nt.Message,
		Email:     null.NewString(nt.Email, nt.Email != ""),
		Phone:     null.NewString(nt.Phone, nt.Phone != ""),
		ImageURL:  imageURL,
		Approved:  false,
		CreatedAt: NowFunc().UTC(),
	})
	if err != nil {
		svc.discardImage(imageURL)
		return Tribute{}, pkgerrors.Wrap(err, "creating tribute")
	}
	submittedTotal.WithLabelValues(boolLabel(imageURL.Valid)).Inc()

	svc.notifyAdmins(t)
	return t, nil
}

func (svc *Service) Get(ctx context.Context, id int64) (Tribute, error) {
	return svc.repo.GetTribute(ctx, id)
}

// QueryAll returns every tribute, including contact details and admin notes.
func (svc *Service) QueryAll(ctx context.Context, ordering ...core.DBOrdering) ([]Tribute, error) {
	ordering = core.FilterOrderings(ordering, OrderingFields...)
	if len(ordering) == 0 {
		ordering = DefaultOrdering
	}
	return svc.repo.QueryTributes(ctx, QueryFilter{}, ordering)
}

// QueryApproved returns the public projection of approved tributes, most recent first.
func (svc *Service) QueryApproved(ctx context.Context) ([]PublicTribute, error) {
	approved := true
	tributes, err := svc.repo.QueryTributes(ctx, QueryFilter{Approved: &approved}, DefaultOrdering)
	if err != nil {
		return nil, err
	}
	public := make([]PublicTribute, 0, len(tributes))
	for _, t := range tributes {
		public = append(public, t.Public())
	}
	return public, nil
}

// Moderate applies an administrator decision.
func (svc *Service) Moderate(ctx context.Context, m Moderation) (Tribute, error) {
	if m.ID <= 0 || m.Approved == nil {
		return Tribute{}, core.NewValidationMessage(errInvalidRequest)
	}
	var note string
	if m.AdminNotes != nil {
		note = core.CleanString(*m.AdminNotes)
	}

	next := Transition(Tribute{ID: m.ID}, *m.Approved, note, NowFunc())
	t, err := svc.repo.UpdateModeration(ctx, next.ID, next.Approved, next.ApprovedAt, next.AdminNotes)
	if err != nil {
		if errors.Is(pkgerrors.Cause(err), ErrNotFound) {
			return Tribute{}, ErrNotFound
		}
		return Tribute{}, pkgerrors.Wrap(err, "updating tribute moderation")
	}
	moderatedTotal.WithLabelValues(string(Target(*m.Approved))).Inc()
	return t, nil
}

func (svc *Service) Approve(ctx context.Context, id int64, note string) (Tribute, error) {
	approve := true
	return svc.Moderate(ctx, Moderation{ID: id, Approved: &approve, AdminNotes: &note})
}

// Reject rejects a pending tribute, or revokes an approved one.
func (svc *Service) Reject(ctx context.Context, id int64, note string) (Tribute, error) {
	approve := false
	return svc.Moderate(ctx, Moderation{ID: id, Approved: &approve, AdminNotes: &note})
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
