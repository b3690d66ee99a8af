package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/noah-isme/gradestats-sync/internal/external/statsapi"
	"github.com/noah-isme/gradestats-sync/internal/models"
	appErrors "github.com/noah-isme/gradestats-sync/pkg/errors"
)

type courseStore interface {
	FindByCode(ctx context.Context, code string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
}

type descriptiveResolver interface {
	Resolve(ctx context.Context, code string, rng TeachingRange, courseRows []statsapi.RawRow) (*models.CourseData, error)
}

// CourseService assembles course records from the statistics rows and the
// course pages and writes them by code.
type CourseService struct {
	store         courseStore
	descriptive   descriptiveResolver
	institutionID int
	logger        *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(store courseStore, descriptive descriptiveResolver, institutionID int, logger *zap.Logger) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{store: store, descriptive: descriptive, institutionID: institutionID, logger: logger}
}

// BuildCourseData resolves the full write payload of a course. It returns nil
// when there is nothing to write.
func (s *CourseService) BuildCourseData(ctx context.Context, code string, courseRows, gradeRows []statsapi.RawRow, units models.OrgUnits) (*models.CourseData, error) {
	rng := ResolveTeachingRange(courseRows, gradeRows)

	data, err := s.descriptive.Resolve(ctx, code, rng, courseRows)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	if len(courseRows) > 0 {
		last := courseRows[len(courseRows)-1]
		data.FacultyID, data.DepartmentID = s.ResolveOrgUnits(units, last.DepartmentCode())
		from, to := rng.From, rng.To
		data.TaughtFrom, data.TaughtTo = &from, &to
	}
	return data, nil
}

// ResolveOrgUnits looks up the faculty and department of a department code.
// A department without a matching faculty lends its own faculty.
func (s *CourseService) ResolveOrgUnits(units models.OrgUnits, departmentCode string) (facultyID, departmentID *string) {
	if departmentCode == "" {
		return nil, nil
	}
	nsdCode := strconv.Itoa(s.institutionID) + departmentCode

	var department *models.Department
	for i := range units.Departments {
		if units.Departments[i].NSDCode == nsdCode {
			department = &units.Departments[i]
			break
		}
	}
	for i := range units.Faculties {
		if units.Faculties[i].NSDCode == nsdCode {
			id := units.Faculties[i].ID
			facultyID = &id
			break
		}
	}

	if department != nil {
		id := department.ID
		departmentID = &id
		if facultyID == nil && department.FacultyID != nil {
			inherited := *department.FacultyID
			facultyID = &inherited
		}
	}
	return facultyID, departmentID
}

// CreateOrUpdate writes a course by code. Existing courses keep their stored
// value wherever the payload carries an empty string or a nil reference.
func (s *CourseService) CreateOrUpdate(ctx context.Context, data models.CourseData) (*models.Course, error) {
	existing, err := s.store.FindByCode(ctx, data.Code)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if existing == nil {
		course := newCourse(data)
		s.logger.Info("creating course", zap.String("course", data.Code))
		if err := s.store.Create(ctx, course); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
		}
		return course, nil
	}

	mergeCourseData(existing, data)
	s.logger.Info("updating course", zap.String("course", data.Code))
	if err := s.store.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to update course %s", data.Code))
	}
	return existing, nil
}

func newCourse(data models.CourseData) *models.Course {
	course := &models.Course{}
	mergeCourseData(course, data)
	course.Code = data.Code
	return course
}

func mergeCourseData(course *models.Course, data models.CourseData) {
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setString(&course.NorwegianName, data.NorwegianName)
	setString(&course.EnglishName, data.EnglishName)
	setString(&course.Content, data.Content)
	setString(&course.LearningForm, data.LearningForm)
	setString(&course.LearningGoal, data.LearningGoal)
	setString(&course.ExamType, data.ExamType)
	setString(&course.GradeType, data.GradeType)
	setString(&course.Place, data.Place)

	course.Credit = data.Credit
	course.StudyLevel = data.StudyLevel
	course.TaughtInSpring = data.TaughtInSpring
	course.TaughtInAutumn = data.TaughtInAutumn
	course.TaughtInEnglish = data.TaughtInEnglish
	course.HasHadDigitalExam = data.HasHadDigitalExam

	if data.TaughtFrom != nil {
		course.TaughtFrom = *data.TaughtFrom
	}
	if data.TaughtTo != nil {
		course.TaughtTo = *data.TaughtTo
	}
	if data.FacultyID != nil {
		course.FacultyID = data.FacultyID
	}
	if data.DepartmentID != nil {
		course.DepartmentID = data.DepartmentID
	}
}
