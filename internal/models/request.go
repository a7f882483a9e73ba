package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ScoreSlot is the closed set of revisable score columns. Keeping it an
// enumeration means caller input never reaches an SQL identifier position.
type ScoreSlot string

const (
	Slot1 ScoreSlot = "score1"
	Slot2 ScoreSlot = "score2"
)

func ParseScoreSlot(s string) (ScoreSlot, error) {
	switch ScoreSlot(s) {
	case Slot1, Slot2:
		return ScoreSlot(s), nil
	default:
		return "", fmt.Errorf("unknown score slot %q", s)
	}
}

// ScoreRevisionRequest is a teacher's pending proposal to change one score
// slot of one student. Immutable once created; adjudication deletes it.
type ScoreRevisionRequest struct {
	ReqID     string    `db:"req_id" json:"req_id" validate:"required"`
	StudentID int64     `db:"stu_id" json:"stu_id" validate:"required"`
	Option    ScoreSlot `db:"option" json:"option" validate:"required,oneof=score1 score2"`
	NewScore  int       `db:"new_score" json:"new_score"`
}

// InfoChangeRequest is a student's pending proposal to change their own
// profile fields. The name field is carried but not applied on approval,
// matching the historical adjudication behavior.
type InfoChangeRequest struct {
	ReqID       string `db:"req_id" json:"req_id" validate:"required"`
	StudentID   int64  `db:"stu_id" json:"id" validate:"required"`
	Name        string `db:"name" json:"name"`
	Gender      int    `db:"gender" json:"gender"`
	PhoneNumber string `db:"phone_number" json:"phone_number"`
	Wish        string `db:"wish" json:"wish"`
}

func (r *ScoreRevisionRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

func (r *InfoChangeRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// PendingRequests is the review-queue snapshot returned to an admin at
// login: every unadjudicated request of both kinds.
type PendingRequests struct {
	Students []InfoChangeRequest    `json:"students"`
	Teachers []ScoreRevisionRequest `json:"teachers"`
}

// ScoreInsert is one entry of an admin bulk score upload.
type ScoreInsert struct {
	StudentID int64     `json:"stu_id" validate:"required"`
	Option    ScoreSlot `json:"option" validate:"required,oneof=score1 score2"`
	NewScore  int       `json:"new_score"`
}

func (e *ScoreInsert) Validate() error {
	validate := validator.New()
	return validate.Struct(e)
}

// RequestKind selects which pending queue an adjudication targets. The
// wire labels come from the submitting role: "teacher" for score
// revisions, "student" for info changes.
type RequestKind string

const (
	KindScoreRevision RequestKind = "teacher"
	KindInfoChange    RequestKind = "student"
)

func ParseRequestKind(s string) (RequestKind, error) {
	switch RequestKind(s) {
	case KindScoreRevision, KindInfoChange:
		return RequestKind(s), nil
	default:
		return "", fmt.Errorf("unknown request kind %q", s)
	}
}

// Outcome is the admin decision on a pending request. Both outcomes are
// terminal; the request row is gone either way.
type Outcome string

const (
	OutcomeApprove Outcome = "approve"
	OutcomeCancel  Outcome = "cancel"
)

func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(s) {
	case OutcomeApprove, OutcomeCancel:
		return Outcome(s), nil
	default:
		return "", fmt.Errorf("unknown request status %q", s)
	}
}
