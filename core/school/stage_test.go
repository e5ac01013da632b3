package school

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageOf(t *testing.T) {
	tests := []struct {
		course string
		want   Stage
	}{
		{"INF 3 AÑOS", StageInfant},
		{"inf 5 años", StageInfant},
		{"3 AÑOS B", StageInfant},
		{"1º PRIMARIA", StageFirst},
		{"2º PRIMARIA", StageFirst},
		{"3º PRIMARIA", StageSecond},
		{"4º PRIMARIA", StageSecond},
		{"5º PRIMARIA", StageThird},
		{"6º PRIMARIA", StageThird},
		{"AULA TEA", StageNeutral},
		{"", StageNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.course, func(t *testing.T) {
			assert.Equal(t, tt.want, StageOf(tt.course))
		})
	}
}

func TestCourseLabel(t *testing.T) {
	assert.Equal(t, "1º PRIMARIA A", Course{Name: "1º PRIMARIA", Section: "A"}.Label())
	assert.Equal(t, "1º PRIMARIA", Course{Name: "1º PRIMARIA"}.Label())
}

func TestLoadStudent(t *testing.T) {
	_, err := LoadStudent("", "Ana", "c1", false, false)
	assert.Error(t, err)
	_, err = LoadStudent("s1", "  ", "c1", false, false)
	assert.Error(t, err)
	_, err = LoadStudent("s1", "Ana", "", false, false)
	assert.Error(t, err)
	s, err := LoadStudent("s1", "Ana", "c1", true, false)
	assert.NoError(t, err)
	assert.True(t, s.SupportProgram)
}
