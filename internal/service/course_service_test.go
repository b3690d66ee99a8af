package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradestats-sync/internal/external/statsapi"
	"github.com/noah-isme/gradestats-sync/internal/models"
)

type mockCourseStore struct {
	courses map[string]*models.Course
	created []string
	updated []string
}

func newMockCourseStore() *mockCourseStore {
	return &mockCourseStore{courses: make(map[string]*models.Course)}
}

func (m *mockCourseStore) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	course, ok := m.courses[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *course
	return &copied, nil
}

func (m *mockCourseStore) Create(ctx context.Context, course *models.Course) error {
	course.ID = "id-" + course.Code
	m.courses[course.Code] = course
	m.created = append(m.created, course.Code)
	return nil
}

func (m *mockCourseStore) Update(ctx context.Context, course *models.Course) error {
	m.courses[course.Code] = course
	m.updated = append(m.updated, course.Code)
	return nil
}

type stubDescriptive struct {
	data *models.CourseData
	rng  TeachingRange
}

func (s *stubDescriptive) Resolve(ctx context.Context, code string, rng TeachingRange, courseRows []statsapi.RawRow) (*models.CourseData, error) {
	s.rng = rng
	if s.data == nil {
		return nil, nil
	}
	copied := *s.data
	copied.Code = code
	return &copied, nil
}

func strPtr(s string) *string { return &s }

func testOrgUnits() models.OrgUnits {
	return models.OrgUnits{
		Faculties: []models.Faculty{{ID: "fac-ie", NSDCode: "1150630000"}},
		Departments: []models.Department{
			{ID: "dep-idi", NSDCode: "1150633000", FacultyID: strPtr("fac-ie")},
			{ID: "dep-fac", NSDCode: "1150630000", FacultyID: strPtr("fac-other")},
		},
	}
}

func TestResolveOrgUnitsInheritsFaculty(t *testing.T) {
	svc := NewCourseService(newMockCourseStore(), &stubDescriptive{}, 1150, nil)

	facultyID, departmentID := svc.ResolveOrgUnits(testOrgUnits(), "633000")
	require.NotNil(t, facultyID)
	require.NotNil(t, departmentID)
	assert.Equal(t, "fac-ie", *facultyID)
	assert.Equal(t, "dep-idi", *departmentID)
}

func TestResolveOrgUnitsPrefersFacultyMatch(t *testing.T) {
	svc := NewCourseService(newMockCourseStore(), &stubDescriptive{}, 1150, nil)

	facultyID, departmentID := svc.ResolveOrgUnits(testOrgUnits(), "630000")
	assert.Equal(t, "fac-ie", *facultyID)
	assert.Equal(t, "dep-fac", *departmentID)
}

func TestResolveOrgUnitsUnknownCode(t *testing.T) {
	svc := NewCourseService(newMockCourseStore(), &stubDescriptive{}, 1150, nil)

	facultyID, departmentID := svc.ResolveOrgUnits(testOrgUnits(), "999999")
	assert.Nil(t, facultyID)
	assert.Nil(t, departmentID)

	facultyID, departmentID = svc.ResolveOrgUnits(testOrgUnits(), "")
	assert.Nil(t, facultyID)
	assert.Nil(t, departmentID)
}

func TestBuildCourseDataWithCourseRows(t *testing.T) {
	desc := &stubDescriptive{data: &models.CourseData{NorwegianName: "Algoritmer"}}
	svc := NewCourseService(newMockCourseStore(), desc, 1150, nil)
	courseRows := []statsapi.RawRow{
		{statsapi.FieldYear: "2008", statsapi.FieldStatus: "1", statsapi.FieldDepartment: "633000"},
		{statsapi.FieldYear: "2016", statsapi.FieldStatus: "3", statsapi.FieldDepartment: "633000"},
	}

	data, err := svc.BuildCourseData(context.Background(), "TDT4120", courseRows, nil, testOrgUnits())
	require.NoError(t, err)
	require.NotNil(t, data)
	require.NotNil(t, data.TaughtFrom)
	require.NotNil(t, data.TaughtTo)
	assert.Equal(t, 2008, *data.TaughtFrom)
	assert.Equal(t, 2015, *data.TaughtTo)
	assert.Equal(t, TeachingRange{From: 2008, To: 2015}, desc.rng)
	assert.Equal(t, "dep-idi", *data.DepartmentID)
}

func TestBuildCourseDataWithoutCourseRowsLeavesRangeUnset(t *testing.T) {
	desc := &stubDescriptive{data: &models.CourseData{NorwegianName: "Algoritmer"}}
	svc := NewCourseService(newMockCourseStore(), desc, 1150, nil)

	data, err := svc.BuildCourseData(context.Background(), "TDT4120", nil, []statsapi.RawRow{gradeRow("2019", "1", "A", 1)}, testOrgUnits())
	require.NoError(t, err)
	require.NotNil(t, data)
	assert.Nil(t, data.TaughtFrom)
	assert.Nil(t, data.TaughtTo)
	assert.Nil(t, data.FacultyID)
	assert.Equal(t, 2019, desc.rng.From)
}

func TestBuildCourseDataNoData(t *testing.T) {
	svc := NewCourseService(newMockCourseStore(), &stubDescriptive{}, 1150, nil)

	data, err := svc.BuildCourseData(context.Background(), "TDT4120", nil, nil, models.OrgUnits{})
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestCreateOrUpdateCreates(t *testing.T) {
	store := newMockCourseStore()
	svc := NewCourseService(store, &stubDescriptive{}, 1150, nil)

	course, err := svc.CreateOrUpdate(context.Background(), models.CourseData{Code: "TDT4120", NorwegianName: "Algoritmer", Credit: 7.5})
	require.NoError(t, err)
	assert.Equal(t, "id-TDT4120", course.ID)
	assert.Equal(t, []string{"TDT4120"}, store.created)
}

func TestCreateOrUpdateKeepsEnrichedFields(t *testing.T) {
	store := newMockCourseStore()
	store.courses["TDT4120"] = &models.Course{
		ID:            "course-1",
		Code:          "TDT4120",
		NorwegianName: "Algoritmer og datastrukturer",
		EnglishName:   "Algorithms and Data Structures",
		Content:       "Analyse av algoritmer.",
		TaughtFrom:    2005,
		FacultyID:     strPtr("fac-ie"),
		Average:       3.1,
	}
	svc := NewCourseService(store, &stubDescriptive{}, 1150, nil)

	course, err := svc.CreateOrUpdate(context.Background(), models.CourseData{
		Code:          "TDT4120",
		NorwegianName: "Algoritmer",
		Credit:        7.5,
		StudyLevel:    100,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"TDT4120"}, store.updated)
	assert.Equal(t, "Algoritmer", course.NorwegianName)
	assert.Equal(t, "Algorithms and Data Structures", course.EnglishName)
	assert.Equal(t, "Analyse av algoritmer.", course.Content)
	assert.Equal(t, 2005, course.TaughtFrom)
	assert.Equal(t, "fac-ie", *course.FacultyID)
	assert.Equal(t, 7.5, course.Credit)
	assert.Equal(t, 3.1, course.Average)
}
