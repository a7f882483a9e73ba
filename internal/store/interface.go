package store

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/tillhanna/lingon/internal/models"
)

// RecordStore is the persistence surface for the authoritative student and
// teacher tables plus the two pending-request queues. Adjudication methods
// run inside a single transaction: either every statement of a transition
// lands, or the request stays pending.
type RecordStore interface {
	Close() error
	ApplyMigrations(dir string) error

	GetStudent(id int64) (*models.StudentRecord, error)
	GetTeacher(id int64) (*models.TeacherRecord, error)
	ListStudentsByCourse(courseID string) ([]models.StudentRecord, error)
	SetScore(studentID int64, slot models.ScoreSlot, newScore int) error

	CreateScoreRevision(req *models.ScoreRevisionRequest) error
	CreateInfoChange(req *models.InfoChangeRequest) error
	ListScoreRevisions() ([]models.ScoreRevisionRequest, error)
	ListInfoChanges() ([]models.InfoChangeRequest, error)

	// Approve/Reject return whether the request existed. A missing request
	// is a successful no-op so re-adjudication stays idempotent.
	ApproveScoreRevision(reqID string) (bool, error)
	ApproveInfoChange(reqID string) (bool, error)
	RejectScoreRevision(reqID string) (bool, error)
	RejectInfoChange(reqID string) (bool, error)
}

// Score columns are a closed enumeration mapped to fixed statements, so
// request-controlled strings never reach an identifier position.
var scoreSetBySlot = map[models.ScoreSlot]string{
	models.Slot1: `UPDATE students SET score1 = ?, able_to_revise1 = FALSE WHERE id = ?`,
	models.Slot2: `UPDATE students SET score2 = ?, able_to_revise2 = FALSE WHERE id = ?`,
}

// Approved revisions touch only the score column. Eligibility was already
// cleared when the admin set the score; approval consumes it, not resets it.
var scoreReviseBySlot = map[models.ScoreSlot]string{
	models.Slot1: `UPDATE students SET score1 = ? WHERE id = ?`,
	models.Slot2: `UPDATE students SET score2 = ? WHERE id = ?`,
}

// BaseStore provides common functionality for different DB implementations
type BaseStore struct {
	DB          *sqlx.DB
	Converter   func(string) string
	IsDuplicate func(error) bool
}

func (s *BaseStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// ApplyMigrations applies SQL migrations from a directory, translating dialect if needed
func (s *BaseStore) ApplyMigrations(dir string, translateSQL func(string) string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		content, err := os.ReadFile(fmt.Sprintf("%s/%s", dir, file.Name()))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file.Name(), err)
		}

		sql := string(content)
		if translateSQL != nil {
			sql = translateSQL(sql)
		}

		if _, err := s.DB.Exec(sql); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file.Name(), err)
		}
	}

	return nil
}

func (s *BaseStore) GetStudent(id int64) (*models.StudentRecord, error) {
	var student models.StudentRecord
	query := s.Converter(`
		SELECT id, name, class, password, course1, course2, score1, score2,
		       phone_number, gender, wish, able_to_revise1, able_to_revise2
		FROM students
		WHERE id = ?
	`)

	err := s.DB.Get(&student, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return &student, nil
}

func (s *BaseStore) GetTeacher(id int64) (*models.TeacherRecord, error) {
	var teacher models.TeacherRecord
	query := s.Converter(`
		SELECT id, name, course_name, password, course_num1, course_num2
		FROM teachers
		WHERE id = ?
	`)

	err := s.DB.Get(&teacher, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get teacher: %w", err)
	}
	return &teacher, nil
}

func (s *BaseStore) ListStudentsByCourse(courseID string) ([]models.StudentRecord, error) {
	var students []models.StudentRecord
	query := s.Converter(`
		SELECT id, name, class, password, course1, course2, score1, score2,
		       phone_number, gender, wish, able_to_revise1, able_to_revise2
		FROM students
		WHERE course1 = ? OR course2 = ?
		ORDER BY id ASC
	`)

	err := s.DB.Select(&students, query, courseID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list students for course: %w", err)
	}

	return students, nil
}

// SetScore writes an admin-provided score and clears the matching
// eligibility flag in one statement. A fresh score is not open for
// teacher revision until some out-of-band grant flips the flag back.
func (s *BaseStore) SetScore(studentID int64, slot models.ScoreSlot, newScore int) error {
	query, ok := scoreSetBySlot[slot]
	if !ok {
		return fmt.Errorf("unknown score slot %q", slot)
	}

	res, err := s.DB.Exec(s.Converter(query), newScore, studentID)
	if err != nil {
		return fmt.Errorf("failed to set score: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("student %d: %w", studentID, ErrNotFound)
	}
	return nil
}

func (s *BaseStore) CreateScoreRevision(req *models.ScoreRevisionRequest) error {
	_, err := s.DB.NamedExec(`
		INSERT INTO requests_teacher (req_id, stu_id, option, new_score)
		VALUES (:req_id, :stu_id, :option, :new_score)
	`, req)
	if err != nil {
		if s.IsDuplicate != nil && s.IsDuplicate(err) {
			return fmt.Errorf("req_id %s: %w", req.ReqID, ErrDuplicateRequest)
		}
		return fmt.Errorf("failed to create score revision request: %w", err)
	}
	return nil
}

func (s *BaseStore) CreateInfoChange(req *models.InfoChangeRequest) error {
	_, err := s.DB.NamedExec(`
		INSERT INTO requests_student (req_id, stu_id, name, gender, phone_number, wish)
		VALUES (:req_id, :stu_id, :name, :gender, :phone_number, :wish)
	`, req)
	if err != nil {
		if s.IsDuplicate != nil && s.IsDuplicate(err) {
			return fmt.Errorf("req_id %s: %w", req.ReqID, ErrDuplicateRequest)
		}
		return fmt.Errorf("failed to create info change request: %w", err)
	}
	return nil
}

func (s *BaseStore) ListScoreRevisions() ([]models.ScoreRevisionRequest, error) {
	var reqs []models.ScoreRevisionRequest
	err := s.DB.Select(&reqs, `
		SELECT req_id, stu_id, option, new_score
		FROM requests_teacher
		ORDER BY req_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list score revision requests: %w", err)
	}
	return reqs, nil
}

func (s *BaseStore) ListInfoChanges() ([]models.InfoChangeRequest, error) {
	var reqs []models.InfoChangeRequest
	err := s.DB.Select(&reqs, `
		SELECT req_id, stu_id, name, gender, phone_number, wish
		FROM requests_student
		ORDER BY req_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list info change requests: %w", err)
	}
	return reqs, nil
}

// ApproveScoreRevision copies a pending revision onto the student row and
// deletes the request, all in one transaction. The DELETE doubles as the
// race arbiter: when a concurrent adjudication already removed the row,
// zero rows are affected and the whole transaction rolls back, so exactly
// one adjudication ever mutates the student.
func (s *BaseStore) ApproveScoreRevision(reqID string) (bool, error) {
	tx, err := s.DB.Beginx()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var req models.ScoreRevisionRequest
	query := s.Converter(`
		SELECT req_id, stu_id, option, new_score
		FROM requests_teacher
		WHERE req_id = ?
	`)
	err = tx.Get(&req, query, reqID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to fetch score revision request: %w", err)
	}

	deleted, err := s.deleteRequest(tx, "requests_teacher", reqID)
	if err != nil {
		return false, err
	}
	if !deleted {
		return false, nil
	}

	update, ok := scoreReviseBySlot[req.Option]
	if !ok {
		return false, fmt.Errorf("request %s names unknown score slot %q", reqID, req.Option)
	}

	res, err := tx.Exec(s.Converter(update), req.NewScore, req.StudentID)
	if err != nil {
		return false, fmt.Errorf("failed to apply score revision: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return false, fmt.Errorf("student %d: %w", req.StudentID, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit score revision: %w", err)
	}
	return true, nil
}

// ApproveInfoChange applies gender, phone_number and wish from a pending
// info change and deletes the request. The submitted name is deliberately
// not copied; the review queue shows it but approval leaves it alone.
func (s *BaseStore) ApproveInfoChange(reqID string) (bool, error) {
	tx, err := s.DB.Beginx()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var req models.InfoChangeRequest
	query := s.Converter(`
		SELECT req_id, stu_id, name, gender, phone_number, wish
		FROM requests_student
		WHERE req_id = ?
	`)
	err = tx.Get(&req, query, reqID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to fetch info change request: %w", err)
	}

	deleted, err := s.deleteRequest(tx, "requests_student", reqID)
	if err != nil {
		return false, err
	}
	if !deleted {
		return false, nil
	}

	update := s.Converter(`
		UPDATE students
		SET gender = ?, phone_number = ?, wish = ?
		WHERE id = ?
	`)
	res, err := tx.Exec(update, req.Gender, req.PhoneNumber, req.Wish, req.StudentID)
	if err != nil {
		return false, fmt.Errorf("failed to apply info change: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return false, fmt.Errorf("student %d: %w", req.StudentID, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit info change: %w", err)
	}
	return true, nil
}

func (s *BaseStore) RejectScoreRevision(reqID string) (bool, error) {
	return s.reject("requests_teacher", reqID)
}

func (s *BaseStore) RejectInfoChange(reqID string) (bool, error) {
	return s.reject("requests_student", reqID)
}

func (s *BaseStore) reject(table, reqID string) (bool, error) {
	res, err := s.DB.Exec(s.Converter(
		fmt.Sprintf(`DELETE FROM %s WHERE req_id = ?`, table),
	), reqID)
	if err != nil {
		return false, fmt.Errorf("failed to reject request: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check delete result: %w", err)
	}
	return affected > 0, nil
}

func (s *BaseStore) deleteRequest(tx *sqlx.Tx, table, reqID string) (bool, error) {
	res, err := tx.Exec(s.Converter(
		fmt.Sprintf(`DELETE FROM %s WHERE req_id = ?`, table),
	), reqID)
	if err != nil {
		return false, fmt.Errorf("failed to delete request: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check delete result: %w", err)
	}
	return affected > 0, nil
}
