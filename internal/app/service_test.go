package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tillhanna/lingon/internal/models"
	"github.com/tillhanna/lingon/internal/store"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Close() error {
	return nil
}

func (m *MockStore) ApplyMigrations(dir string) error {
	return nil
}

func (m *MockStore) GetStudent(id int64) (*models.StudentRecord, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StudentRecord), args.Error(1)
}

func (m *MockStore) GetTeacher(id int64) (*models.TeacherRecord, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TeacherRecord), args.Error(1)
}

func (m *MockStore) ListStudentsByCourse(courseID string) ([]models.StudentRecord, error) {
	args := m.Called(courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.StudentRecord), args.Error(1)
}

func (m *MockStore) SetScore(studentID int64, slot models.ScoreSlot, newScore int) error {
	args := m.Called(studentID, slot, newScore)
	return args.Error(0)
}

func (m *MockStore) CreateScoreRevision(req *models.ScoreRevisionRequest) error {
	args := m.Called(req)
	return args.Error(0)
}

func (m *MockStore) CreateInfoChange(req *models.InfoChangeRequest) error {
	args := m.Called(req)
	return args.Error(0)
}

func (m *MockStore) ListScoreRevisions() ([]models.ScoreRevisionRequest, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ScoreRevisionRequest), args.Error(1)
}

func (m *MockStore) ListInfoChanges() ([]models.InfoChangeRequest, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.InfoChangeRequest), args.Error(1)
}

func (m *MockStore) ApproveScoreRevision(reqID string) (bool, error) {
	args := m.Called(reqID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) ApproveInfoChange(reqID string) (bool, error) {
	args := m.Called(reqID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) RejectScoreRevision(reqID string) (bool, error) {
	args := m.Called(reqID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) RejectInfoChange(reqID string) (bool, error) {
	args := m.Called(reqID)
	return args.Bool(0), args.Error(1)
}

// fakeSessions keeps sessions in a map so service tests run without redis.
type fakeSessions struct {
	next     int
	sessions map[string]models.Identity
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]models.Identity{}}
}

func (f *fakeSessions) Create(_ context.Context, ident models.Identity) (string, error) {
	f.next++
	token := fmt.Sprintf("sk-test-%d", f.next)
	f.sessions[token] = ident
	return token, nil
}

func (f *fakeSessions) Resolve(_ context.Context, token string) (*models.Identity, error) {
	ident, ok := f.sessions[token]
	if !ok {
		return nil, ErrUnauthenticated
	}
	return &ident, nil
}

func (f *fakeSessions) Close() error { return nil }

func testConfig() *Config {
	cfg := &Config{}
	cfg.Server.Port = ":0"
	cfg.Auth.TokenHeader = "Authorization"
	cfg.Admin.Name = "admin"
	cfg.Admin.Password = "admin"
	return cfg
}

func newTestService(st store.RecordStore) *Service {
	return &Service{
		Config:   testConfig(),
		Store:    st,
		Sessions: newFakeSessions(),
	}
}

func cred(t *testing.T, raw string) models.Credential {
	t.Helper()
	var c models.Credential
	require.NoError(t, json.Unmarshal([]byte(raw), &c))
	return c
}

func TestLoginStudent(t *testing.T) {
	student := &models.StudentRecord{
		ID:       1,
		Name:     "Ann Larsson",
		Password: 111,
		Course1:  "CS101",
		Score1:   60,
	}

	t.Run("correct password", func(t *testing.T) {
		ms := new(MockStore)
		ms.On("GetStudent", int64(1)).Return(student, nil)
		svc := newTestService(ms)

		result, err := svc.Login(context.Background(), models.RoleStudent, 1, "", cred(t, `111`))
		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
		require.NotNil(t, result.Student)
		assert.Equal(t, "Ann Larsson", result.Student.Name)
		assert.Nil(t, result.Pending)

		ident, err := svc.Sessions.Resolve(context.Background(), result.Token)
		require.NoError(t, err)
		assert.Equal(t, models.Identity{ID: 1, Role: models.RoleStudent}, *ident)
	})

	t.Run("wrong password", func(t *testing.T) {
		ms := new(MockStore)
		ms.On("GetStudent", int64(1)).Return(student, nil)
		svc := newTestService(ms)

		_, err := svc.Login(context.Background(), models.RoleStudent, 1, "", cred(t, `112`))
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("non-integer password", func(t *testing.T) {
		ms := new(MockStore)
		ms.On("GetStudent", int64(1)).Return(student, nil)
		svc := newTestService(ms)

		_, err := svc.Login(context.Background(), models.RoleStudent, 1, "", cred(t, `"letmein"`))
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown id", func(t *testing.T) {
		ms := new(MockStore)
		ms.On("GetStudent", int64(42)).Return(nil, nil)
		svc := newTestService(ms)

		_, err := svc.Login(context.Background(), models.RoleStudent, 42, "", cred(t, `111`))
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestLoginTeacher(t *testing.T) {
	teacher := &models.TeacherRecord{
		ID:         100,
		Name:       "Dr Ek",
		Password:   1000,
		CourseNum1: "CS101",
	}

	ms := new(MockStore)
	ms.On("GetTeacher", int64(100)).Return(teacher, nil)
	svc := newTestService(ms)

	result, err := svc.Login(context.Background(), models.RoleTeacher, 100, "", cred(t, `1000`))
	require.NoError(t, err)
	require.NotNil(t, result.Teacher)
	assert.Equal(t, "CS101", result.Teacher.CourseNum1)
	assert.Nil(t, result.Student)
}

func TestLoginAdmin(t *testing.T) {
	pendingTeacher := []models.ScoreRevisionRequest{
		{ReqID: "r1", StudentID: 1, Option: models.Slot1, NewScore: 95},
	}
	pendingStudent := []models.InfoChangeRequest{
		{ReqID: "c1", StudentID: 2, PhoneNumber: "070-999"},
	}

	t.Run("login returns the review queue", func(t *testing.T) {
		ms := new(MockStore)
		ms.On("ListInfoChanges").Return(pendingStudent, nil)
		ms.On("ListScoreRevisions").Return(pendingTeacher, nil)
		svc := newTestService(ms)

		result, err := svc.Login(context.Background(), models.RoleAdmin, 0, "admin", cred(t, `"admin"`))
		require.NoError(t, err)
		require.NotNil(t, result.Pending)
		assert.Equal(t, pendingStudent, result.Pending.Students)
		assert.Equal(t, pendingTeacher, result.Pending.Teachers)
	})

	t.Run("wrong admin password", func(t *testing.T) {
		svc := newTestService(new(MockStore))

		_, err := svc.Login(context.Background(), models.RoleAdmin, 0, "admin", cred(t, `"nope"`))
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong admin name", func(t *testing.T) {
		svc := newTestService(new(MockStore))

		_, err := svc.Login(context.Background(), models.RoleAdmin, 0, "root", cred(t, `"admin"`))
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestAuthenticate(t *testing.T) {
	svc := newTestService(new(MockStore))
	token, err := svc.Sessions.Create(context.Background(), models.Identity{ID: 7, Role: models.RoleTeacher})
	require.NoError(t, err)

	t.Run("valid bearer token", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/get_course", nil)
		r.Header.Set("Authorization", "Bearer "+token)

		ident, err := svc.Authenticate(r)
		require.NoError(t, err)
		assert.Equal(t, int64(7), ident.ID)
		assert.Equal(t, models.RoleTeacher, ident.Role)
	})

	t.Run("missing header", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/get_course", nil)
		_, err := svc.Authenticate(r)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("unknown token", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/get_course", nil)
		r.Header.Set("Authorization", "Bearer sk-test-bogus")
		_, err := svc.Authenticate(r)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestCourseRosterSlotPrecedence(t *testing.T) {
	students := []models.StudentRecord{
		{ID: 1, Name: "Ann", Class: 3, Course1: "CS101", Course2: "MA201", Score1: 60, Score2: 70, AbleToRevise1: true},
		{ID: 2, Name: "Bo", Class: 3, Course1: "MA201", Course2: "CS101", Score1: 55, Score2: 65, AbleToRevise2: true},
		// enrolled in CS101 in both slots: slot 1 must win
		{ID: 3, Name: "Cleo", Class: 4, Course1: "CS101", Course2: "CS101", Score1: 80, Score2: 85, AbleToRevise2: true},
	}

	ms := new(MockStore)
	ms.On("ListStudentsByCourse", "CS101").Return(students, nil)
	svc := newTestService(ms)

	roster, err := svc.CourseRoster("CS101")
	require.NoError(t, err)
	require.Len(t, roster, 3)

	assert.Equal(t, models.RosterEntry{ID: 1, Name: "Ann", Class: 3, Score: 60, Able: true}, roster[0])
	assert.Equal(t, models.RosterEntry{ID: 2, Name: "Bo", Class: 3, Score: 65, Able: true}, roster[1])
	assert.Equal(t, models.RosterEntry{ID: 3, Name: "Cleo", Class: 4, Score: 80, Able: false}, roster[2])
}

func TestInsertScores(t *testing.T) {
	t.Run("all entries applied in order", func(t *testing.T) {
		ms := new(MockStore)
		ms.On("SetScore", int64(1), models.Slot1, 90).Return(nil).Once()
		ms.On("SetScore", int64(2), models.Slot2, 80).Return(nil).Once()
		svc := newTestService(ms)

		err := svc.InsertScores([]models.ScoreInsert{
			{StudentID: 1, Option: models.Slot1, NewScore: 90},
			{StudentID: 2, Option: models.Slot2, NewScore: 80},
		})
		require.NoError(t, err)
		ms.AssertExpectations(t)
	})

	t.Run("first failure aborts and is named", func(t *testing.T) {
		ms := new(MockStore)
		ms.On("SetScore", int64(1), models.Slot1, 90).Return(nil).Once()
		ms.On("SetScore", int64(42), models.Slot1, 70).
			Return(fmt.Errorf("student 42: %w", store.ErrNotFound)).Once()
		svc := newTestService(ms)

		err := svc.InsertScores([]models.ScoreInsert{
			{StudentID: 1, Option: models.Slot1, NewScore: 90},
			{StudentID: 42, Option: models.Slot1, NewScore: 70},
			{StudentID: 2, Option: models.Slot2, NewScore: 80},
		})
		require.Error(t, err)

		var insErr *ScoreInsertError
		require.ErrorAs(t, err, &insErr)
		assert.Equal(t, 1, insErr.Index)
		assert.Equal(t, int64(42), insErr.StudentID)
		assert.ErrorIs(t, err, store.ErrNotFound)

		// the third entry must never reach the store
		ms.AssertNumberOfCalls(t, "SetScore", 2)
	})

	t.Run("invalid slot rejected before the store", func(t *testing.T) {
		ms := new(MockStore)
		svc := newTestService(ms)

		err := svc.InsertScores([]models.ScoreInsert{
			{StudentID: 1, Option: models.ScoreSlot("score9"), NewScore: 90},
		})
		require.Error(t, err)

		var insErr *ScoreInsertError
		require.ErrorAs(t, err, &insErr)
		assert.Equal(t, 0, insErr.Index)
		ms.AssertNotCalled(t, "SetScore", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAdjudicateDispatch(t *testing.T) {
	cases := []struct {
		name    string
		kind    models.RequestKind
		outcome models.Outcome
		call    string
	}{
		{"approve revision", models.KindScoreRevision, models.OutcomeApprove, "ApproveScoreRevision"},
		{"cancel revision", models.KindScoreRevision, models.OutcomeCancel, "RejectScoreRevision"},
		{"approve info change", models.KindInfoChange, models.OutcomeApprove, "ApproveInfoChange"},
		{"cancel info change", models.KindInfoChange, models.OutcomeCancel, "RejectInfoChange"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ms := new(MockStore)
			ms.On(tc.call, "r1").Return(true, nil).Once()
			svc := newTestService(ms)

			existed, err := svc.Adjudicate("r1", tc.kind, tc.outcome)
			require.NoError(t, err)
			assert.True(t, existed)
			ms.AssertExpectations(t)
		})
	}

	t.Run("missing request is a no-op", func(t *testing.T) {
		ms := new(MockStore)
		ms.On("ApproveScoreRevision", "gone").Return(false, nil).Once()
		svc := newTestService(ms)

		existed, err := svc.Adjudicate("gone", models.KindScoreRevision, models.OutcomeApprove)
		require.NoError(t, err)
		assert.False(t, existed)
	})
}
