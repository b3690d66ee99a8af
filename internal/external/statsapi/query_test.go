package statsapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradestats-sync/internal/models"
)

func TestBuildQueryDocument(t *testing.T) {
	q := BuildQuery(TableGrades, []string{FieldCourseCode}, []string{FieldYear},
		[]Filter{InstitutionFilter(1150), CourseFilter("TDT4120"), SemesterFilter(models.SemesterAutumn)}, 25)

	raw, err := json.Marshal(q)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.EqualValues(t, 308, doc["tabell_id"])
	assert.EqualValues(t, 1, doc["api_versjon"])
	assert.Equal(t, "N", doc["statuslinje"])
	assert.Equal(t, "J", doc["kodetekst"])
	assert.Equal(t, ".", doc["desimal_separator"])
	assert.Equal(t, "25", doc["begrensning"])
	assert.Equal(t, []any{"*"}, doc["variabler"])

	filters := doc["filter"].([]any)
	require.Len(t, filters, 3)
	course := filters[1].(map[string]any)
	assert.Equal(t, "Emnekode", course["variabel"])
	sel := course["selection"].(map[string]any)
	assert.Equal(t, "like", sel["filter"])
	assert.Equal(t, []any{"TDT4120-%"}, sel["values"])
	assert.Equal(t, []any{""}, sel["exclude"])

	semester := filters[2].(map[string]any)["selection"].(map[string]any)
	assert.Equal(t, []any{"3"}, semester["values"])
}

func TestBuildQueryWithoutLimit(t *testing.T) {
	raw, err := json.Marshal(BuildQuery(TableCourses, nil, nil, []Filter{TaskFilter()}, 0))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	_, hasLimit := doc["begrensning"]
	assert.False(t, hasLimit)
	assert.Equal(t, []any{}, doc["groupBy"])

	task := doc["filter"].([]any)[0].(map[string]any)["selection"].(map[string]any)
	assert.Equal(t, "all", task["filter"])
	assert.Equal(t, []any{"1", "2"}, task["exclude"])
}
