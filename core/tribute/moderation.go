package tribute

import (
	"fmt"
	"time"

	"github.com/volatiletech/null/v8"
)

// Status is the moderation state of a tribute.
// Rejected (and revoked) tributes are stored exactly like pending ones, so a stored
// tribute only ever reports StatusApproved or StatusPending.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (t Tribute) Status() Status {
	if t.Approved {
		return StatusApproved
	}
	return StatusPending
}

// Transition applies an approve (approve=true) or reject/revoke (approve=false) action.
// The admin note always overwrites the previous one; an empty note clears it.
func Transition(t Tribute, approve bool, note string, now time.Time) Tribute {
	t.Approved = approve
	if approve {
		t.ApprovedAt = null.TimeFrom(now.UTC())
	} else {
		t.ApprovedAt = null.Time{}
	}
	t.AdminNotes = null.NewString(note, note != "")
	return t
}

// Target is the state an action leads to.
func Target(approve bool) Status {
	if approve {
		return StatusApproved
	}
	return StatusRejected
}

// CheckInvariants verifies the approval status & timestamp agree and required fields are set.
func (t Tribute) CheckInvariants() error {
	if t.Approved != t.ApprovedAt.Valid {
		return fmt.Errorf("tribute %d: approved=%v but approved_at set=%v", t.ID, t.Approved, t.ApprovedAt.Valid)
	}
	if t.Message == "" {
		return fmt.Errorf("tribute %d: empty message", t.ID)
	}
	if t.Name == "" {
		return fmt.Errorf("tribute %d: empty name", t.ID)
	}
	return nil
}

// Partition splits tributes into approved and pending ones, keeping their relative order.
func Partition(tributes []Tribute) (approved, pending []Tribute) {
	for _, t := range tributes {
		if t.Approved {
			approved = append(approved, t)
		} else {
			pending = append(pending, t)
		}
	}
	return approved, pending
}
