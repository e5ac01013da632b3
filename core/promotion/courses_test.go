package promotion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNext(t *testing.T) {
	tests := []struct {
		course   string
		wantNext string
		wantOk   bool
	}{
		{"INF 3 AÑOS", "INF 4 AÑOS", true},
		{"inf 5 años", "1º PRIMARIA", true},
		{"  5º PRIMARIA ", "6º PRIMARIA", true},
		{"6º PRIMARIA", "", false},
		{"AULA TEA", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.course, func(t *testing.T) {
			next, ok := Next(tt.course)
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.wantNext, next)
		})
	}
	assert.True(t, IsFinal("6º primaria"))
	assert.False(t, IsFinal("5º PRIMARIA"))
}

func TestPlanDecisions(t *testing.T) {
	plan := Plan{Entries: []Entry{
		{Student: studentWithID("s1"), Decision: Promote},
		{Student: studentWithID("s2"), Decision: Promote},
	}}

	assert.NoError(t, plan.Repeat("s1"))
	d, ok := plan.Decision("s1")
	assert.True(t, ok)
	assert.Equal(t, Repeat, d)

	// repeat-review: flip back
	assert.NoError(t, plan.Promote("s1"))
	d, _ = plan.Decision("s1")
	assert.Equal(t, Promote, d)

	err := plan.Repeat("unknown")
	assert.Error(t, err)
	assert.False(t, plan.Promotable("unknown"))

	assert.Empty(t, plan.Unresolved())
	assert.NoError(t, plan.Set("s2", Unresolved))
	assert.Equal(t, []string{"s2"}, plan.Unresolved())
	assert.Error(t, plan.Set("s2", Decision(42)))
}

func TestDecisionText(t *testing.T) {
	var d Decision
	assert.NoError(t, d.UnmarshalText([]byte("repeat")))
	assert.Equal(t, Repeat, d)
	assert.Error(t, d.UnmarshalText([]byte("skip")))
	b, err := Promote.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "promote", string(b))
}

func TestNewLogEntry(t *testing.T) {
	batch := civilDate(2024, 6, 21)
	tests := []struct {
		name                 string
		student, origin, dst string
		wantErr              bool
	}{
		{"valid", "s1", "c1", "c2", false},
		{"missing student", "", "c1", "c2", true},
		{"missing origin", "s1", "", "c2", true},
		{"same course", "s1", "c1", "c1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLogEntry("", tt.student, tt.origin, tt.dst, batch)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}
