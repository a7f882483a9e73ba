package models

// StudentRecord is an authoritative row in the students table. Passwords
// are integers, matching the legacy data; gender is the legacy integer
// code, not interpreted by the service.
type StudentRecord struct {
	ID            int64  `db:"id" json:"id"`
	Name          string `db:"name" json:"name"`
	Class         int    `db:"class" json:"class"`
	Password      int64  `db:"password" json:"-"`
	Course1       string `db:"course1" json:"course1"`
	Course2       string `db:"course2" json:"course2"`
	Score1        int    `db:"score1" json:"score1"`
	Score2        int    `db:"score2" json:"score2"`
	PhoneNumber   string `db:"phone_number" json:"phone_number"`
	Gender        int    `db:"gender" json:"gender"`
	Wish          string `db:"wish" json:"wish"`
	AbleToRevise1 bool   `db:"able_to_revise1" json:"able_to_revise1"`
	AbleToRevise2 bool   `db:"able_to_revise2" json:"able_to_revise2"`
}

// TeacherRecord is an authoritative row in the teachers table.
type TeacherRecord struct {
	ID         int64  `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	CourseName string `db:"course_name" json:"course_name"`
	Password   int64  `db:"password" json:"-"`
	CourseNum1 string `db:"course_num1" json:"course_num1"`
	CourseNum2 string `db:"course_num2" json:"course_num2"`
}

// StudentProfile is the login projection for a student: the full academic
// profile minus the password.
type StudentProfile struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Class       int    `json:"class"`
	Course1     string `json:"course1"`
	Course2     string `json:"course2"`
	Score1      int    `json:"score1"`
	Score2      int    `json:"score2"`
	PhoneNumber string `json:"phone_number"`
	Gender      int    `json:"gender"`
	Wish        string `json:"wish"`
}

// TeacherProfile is the login projection for a teacher: course assignments.
type TeacherProfile struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CourseName string `json:"course_name"`
	CourseNum1 string `json:"course_num1"`
	CourseNum2 string `json:"course_num2"`
}

func (s *StudentRecord) Profile() StudentProfile {
	return StudentProfile{
		ID:          s.ID,
		Name:        s.Name,
		Class:       s.Class,
		Course1:     s.Course1,
		Course2:     s.Course2,
		Score1:      s.Score1,
		Score2:      s.Score2,
		PhoneNumber: s.PhoneNumber,
		Gender:      s.Gender,
		Wish:        s.Wish,
	}
}

func (t *TeacherRecord) Profile() TeacherProfile {
	return TeacherProfile{
		ID:         t.ID,
		Name:       t.Name,
		CourseName: t.CourseName,
		CourseNum1: t.CourseNum1,
		CourseNum2: t.CourseNum2,
	}
}

// RosterEntry is one student in a course roster: only the score and
// eligibility flag of the slot that matched the queried course. When both
// slots carry the course, slot 1 wins.
type RosterEntry struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Class int    `json:"class"`
	Score int    `json:"score"`
	Able  bool   `json:"able"`
}
