package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tillhanna/lingon/internal/models"
	"github.com/tillhanna/lingon/internal/store"
)

// ErrInvalidCredentials covers both an unknown login id and a password
// mismatch; callers must not distinguish the two.
var ErrInvalidCredentials = errors.New("invalid credentials")

type Service struct {
	Config   *Config
	Store    store.RecordStore
	Sessions SessionStore
}

func NewService(configPath string) (*Service, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, err := NewStore(config.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	sessions, err := NewRedisSessions(config.Auth.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to init sessions: %w", err)
	}

	return &Service{
		Config:   config,
		Store:    store,
		Sessions: sessions,
	}, nil
}

// Authenticate resolves the bearer token on a request to an identity.
func (s *Service) Authenticate(r *http.Request) (*models.Identity, error) {
	authHeader := r.Header.Get(s.Config.Auth.TokenHeader)
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return nil, ErrUnauthenticated
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")

	return s.Sessions.Resolve(r.Context(), token)
}

// LoginResult carries the issued token plus the role-scoped payload:
// exactly one of the three projections is set.
type LoginResult struct {
	Token   string                  `json:"token"`
	Student *models.StudentProfile  `json:"profile,omitempty"`
	Teacher *models.TeacherProfile  `json:"assignments,omitempty"`
	Pending *models.PendingRequests `json:"pending,omitempty"`
}

// Login checks credentials for any of the three roles. Students and
// teachers are rows looked up by integer id with integer passwords; the
// admin is the configured fixed pair, and an admin login also returns the
// full review queue so the reviewer starts with the current snapshot.
func (s *Service) Login(ctx context.Context, role models.Role, id int64, name string, password models.Credential) (*LoginResult, error) {
	switch role {
	case models.RoleStudent:
		student, err := s.Store.GetStudent(id)
		if err != nil {
			return nil, err
		}
		if student == nil {
			return nil, ErrInvalidCredentials
		}
		pwd, err := password.Int64()
		if err != nil || pwd != student.Password {
			return nil, ErrInvalidCredentials
		}

		token, err := s.Sessions.Create(ctx, models.Identity{ID: id, Role: role})
		if err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		profile := student.Profile()
		return &LoginResult{Token: token, Student: &profile}, nil

	case models.RoleTeacher:
		teacher, err := s.Store.GetTeacher(id)
		if err != nil {
			return nil, err
		}
		if teacher == nil {
			return nil, ErrInvalidCredentials
		}
		pwd, err := password.Int64()
		if err != nil || pwd != teacher.Password {
			return nil, ErrInvalidCredentials
		}

		token, err := s.Sessions.Create(ctx, models.Identity{ID: id, Role: role})
		if err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		profile := teacher.Profile()
		return &LoginResult{Token: token, Teacher: &profile}, nil

	case models.RoleAdmin:
		if name != s.Config.Admin.Name || password.String() != s.Config.Admin.Password {
			return nil, ErrInvalidCredentials
		}

		pending, err := s.PendingRequests()
		if err != nil {
			return nil, err
		}

		token, err := s.Sessions.Create(ctx, models.Identity{ID: id, Role: role})
		if err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		return &LoginResult{Token: token, Pending: pending}, nil

	default:
		return nil, ErrInvalidCredentials
	}
}

// PendingRequests snapshots both queues. No pagination; the queue is
// small by construction since every admin visit drains it.
func (s *Service) PendingRequests() (*models.PendingRequests, error) {
	students, err := s.Store.ListInfoChanges()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending info changes: %w", err)
	}
	teachers, err := s.Store.ListScoreRevisions()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending score revisions: %w", err)
	}

	if students == nil {
		students = []models.InfoChangeRequest{}
	}
	if teachers == nil {
		teachers = []models.ScoreRevisionRequest{}
	}

	return &models.PendingRequests{Students: students, Teachers: teachers}, nil
}

// CourseRoster lists every student enrolled in the course, projecting the
// score and eligibility flag of whichever slot matched. Slot 1 wins when
// a student carries the course in both slots.
func (s *Service) CourseRoster(courseID string) ([]models.RosterEntry, error) {
	students, err := s.Store.ListStudentsByCourse(courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch course roster: %w", err)
	}

	roster := make([]models.RosterEntry, 0, len(students))
	for _, stu := range students {
		entry := models.RosterEntry{
			ID:    stu.ID,
			Name:  stu.Name,
			Class: stu.Class,
		}
		if stu.Course1 == courseID {
			entry.Score = stu.Score1
			entry.Able = stu.AbleToRevise1
		} else {
			entry.Score = stu.Score2
			entry.Able = stu.AbleToRevise2
		}
		roster = append(roster, entry)
	}

	return roster, nil
}

// ScoreInsertError reports which entry of a bulk upload failed. Entries
// before it have already been applied.
type ScoreInsertError struct {
	Index     int
	StudentID int64
	Err       error
}

func (e *ScoreInsertError) Error() string {
	return fmt.Sprintf("entry %d (student %d): %v", e.Index, e.StudentID, e.Err)
}

func (e *ScoreInsertError) Unwrap() error { return e.Err }

// InsertScores applies a bulk score upload entry by entry, in order. The
// first failing entry aborts the call and is named in the error, so
// nothing fails silently.
func (s *Service) InsertScores(entries []models.ScoreInsert) error {
	for i, entry := range entries {
		if err := entry.Validate(); err != nil {
			return &ScoreInsertError{Index: i, StudentID: entry.StudentID, Err: err}
		}
		if err := s.Store.SetScore(entry.StudentID, entry.Option, entry.NewScore); err != nil {
			return &ScoreInsertError{Index: i, StudentID: entry.StudentID, Err: err}
		}
	}
	return nil
}

// Adjudicate drives a pending request to its terminal state. Approval
// copies the payload onto the student row and deletes the request inside
// one transaction; cancel deletes without touching authoritative data.
// A req_id that no longer exists resolves as a successful no-op, which
// makes re-adjudication and racing decisions safe.
func (s *Service) Adjudicate(reqID string, kind models.RequestKind, outcome models.Outcome) (bool, error) {
	switch {
	case kind == models.KindScoreRevision && outcome == models.OutcomeApprove:
		return s.Store.ApproveScoreRevision(reqID)
	case kind == models.KindScoreRevision && outcome == models.OutcomeCancel:
		return s.Store.RejectScoreRevision(reqID)
	case kind == models.KindInfoChange && outcome == models.OutcomeApprove:
		return s.Store.ApproveInfoChange(reqID)
	case kind == models.KindInfoChange && outcome == models.OutcomeCancel:
		return s.Store.RejectInfoChange(reqID)
	default:
		return false, fmt.Errorf("unsupported adjudication %s/%s", kind, outcome)
	}
}

func (s *Service) Close() error {
	var errs []error

	if err := s.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if err := s.Sessions.Close(); err != nil {
		errs = append(errs, fmt.Errorf("sessions: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors while closing: %v", errs)
	}
	return nil
}
