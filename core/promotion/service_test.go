package promotion_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/comedor/core"
	"github.com/trezcool/comedor/core/promotion"
	"github.com/trezcool/comedor/core/school"
	"github.com/trezcool/comedor/storage/database/sqlx"
	"github.com/trezcool/comedor/tests"
)

type fixture struct {
	db      *sqlx.DB
	conf    *core.Config
	schools school.Repository
	svc     promotion.Service

	inf3, inf4, p5, p6, aula school.Course
}

func setup(t *testing.T) *fixture {
	db, conf := testutil.PrepareDB(t)
	testutil.FreezeTime(t, time.Date(2024, 6, 21, 10, 0, 0, 0, time.UTC))

	f := &fixture{db: db, conf: conf, schools: sqlxrepos.NewSchoolRepository(db)}
	f.svc = promotion.NewService(db, sqlxrepos.NewPromotionRepository(db), f.schools, conf, testutil.NopLogger{})
	f.inf3 = testutil.CreateCourse(t, f.schools, "INF 3 AÑOS", "", 1)
	f.inf4 = testutil.CreateCourse(t, f.schools, "INF 4 AÑOS", "", 2)
	f.p5 = testutil.CreateCourse(t, f.schools, "5º PRIMARIA", "", 8)
	f.p6 = testutil.CreateCourse(t, f.schools, "6º PRIMARIA", "", 9)
	f.aula = testutil.CreateCourse(t, f.schools, "AULA TEA", "", 10)
	return f
}

func (f *fixture) courseOf(t *testing.T, studentID string) string {
	s, err := f.schools.GetStudent(context.Background(), studentID)
	require.NoError(t, err)
	return s.CourseID
}

func (f *fixture) applyAll(t *testing.T, repeat ...string) promotion.Result {
	ctx := context.Background()
	plan, err := f.svc.BuildPlan(ctx)
	require.NoError(t, err)
	for _, id := range repeat {
		require.NoError(t, plan.Repeat(id))
	}
	res, err := f.svc.Apply(ctx, plan, true)
	require.NoError(t, err)
	return res
}

func TestBuildPlan(t *testing.T) {
	f := setup(t)
	ana := testutil.CreateStudent(t, f.schools, "Ana", f.inf3.ID, false, false)
	leo := testutil.CreateStudent(t, f.schools, "Leo", f.p5.ID, false, false)
	tom := testutil.CreateStudent(t, f.schools, "Tom", f.p6.ID, false, false)
	eva := testutil.CreateStudent(t, f.schools, "Eva", f.aula.ID, false, false)
	// INF 4 AÑOS -> INF 5 AÑOS, which does not exist
	noa := testutil.CreateStudent(t, f.schools, "Noa", f.inf4.ID, false, false)

	plan, err := f.svc.BuildPlan(context.Background())
	require.NoError(t, err)

	assert.Len(t, plan.Entries, 2)
	for _, id := range []string{ana.ID, leo.ID} {
		d, ok := plan.Decision(id)
		assert.True(t, ok)
		assert.Equal(t, promotion.Promote, d)
	}
	assert.Equal(t, f.inf4.ID, plan.Entries[0].Destination.ID)
	assert.Equal(t, f.p6.ID, plan.Entries[1].Destination.ID)

	reasons := make(map[string]promotion.ExclusionReason)
	for _, ex := range plan.Excluded {
		reasons[ex.Student.ID] = ex.Reason
	}
	assert.Equal(t, map[string]promotion.ExclusionReason{
		tom.ID: promotion.ReasonFinalCourse,
		eva.ID: promotion.ReasonNoSuccessor,
		noa.ID: promotion.ReasonMissingCourse,
	}, reasons)

	// unmapped students can never be toggled
	for _, id := range []string{tom.ID, eva.ID, noa.ID} {
		assert.False(t, plan.Promotable(id))
		assert.True(t, errors.Is(plan.Repeat(id), promotion.ErrNotPromotable))
	}
}

func TestBuildPlan_prefersSameSection(t *testing.T) {
	f := setup(t)
	inf3b := testutil.CreateCourse(t, f.schools, "INF 3 AÑOS", "B", 1)
	inf4b := testutil.CreateCourse(t, f.schools, "INF 4 AÑOS", "B", 2)
	s := testutil.CreateStudent(t, f.schools, "Ana", inf3b.ID, false, false)

	plan, err := f.svc.BuildPlan(context.Background())
	require.NoError(t, err)
	require.True(t, plan.Promotable(s.ID))
	for _, e := range plan.Entries {
		if e.Student.ID == s.ID {
			assert.Equal(t, inf4b.ID, e.Destination.ID)
		}
	}
}

func TestApply(t *testing.T) {
	ctx := context.Background()

	t.Run("without confirmation nothing is written", func(t *testing.T) {
		f := setup(t)
		s := testutil.CreateStudent(t, f.schools, "Ana", f.inf3.ID, false, false)
		plan, err := f.svc.BuildPlan(ctx)
		require.NoError(t, err)

		_, err = f.svc.Apply(ctx, plan, false)
		assert.Equal(t, promotion.ErrNotConfirmed, err)
		assert.Equal(t, f.inf3.ID, f.courseOf(t, s.ID))

		batches, err := f.svc.Log(ctx)
		require.NoError(t, err)
		assert.Empty(t, batches)
	})

	t.Run("unresolved plans are rejected", func(t *testing.T) {
		f := setup(t)
		s := testutil.CreateStudent(t, f.schools, "Ana", f.inf3.ID, false, false)
		plan, err := f.svc.BuildPlan(ctx)
		require.NoError(t, err)
		require.NoError(t, plan.Set(s.ID, promotion.Unresolved))

		_, err = f.svc.Apply(ctx, plan, true)
		assert.Equal(t, promotion.ErrUnresolved, errors.Cause(err).(*core.ValidationError).Err)
		assert.Equal(t, f.inf3.ID, f.courseOf(t, s.ID))
	})

	t.Run("every mapped student moves and is logged once", func(t *testing.T) {
		f := setup(t)
		ana := testutil.CreateStudent(t, f.schools, "Ana", f.inf3.ID, false, false)
		leo := testutil.CreateStudent(t, f.schools, "Leo", f.p5.ID, false, false)

		res := f.applyAll(t)
		assert.Equal(t, f.conf.Today(), res.Batch)
		assert.Len(t, res.Promoted, 2)
		assert.Equal(t, f.inf4.ID, f.courseOf(t, ana.ID))
		assert.Equal(t, f.p6.ID, f.courseOf(t, leo.ID))

		batches, err := f.svc.Log(ctx)
		require.NoError(t, err)
		require.Len(t, batches, 1)
		require.Len(t, batches[0].Entries, 2)
		for _, e := range batches[0].Entries {
			assert.Equal(t, res.Batch, e.BatchDate)
			switch e.StudentID {
			case ana.ID:
				assert.Equal(t, f.inf3.ID, e.OriginCourseID)
				assert.Equal(t, f.inf4.ID, e.DestinationCourseID)
			case leo.ID:
				assert.Equal(t, f.p5.ID, e.OriginCourseID)
				assert.Equal(t, f.p6.ID, e.DestinationCourseID)
			default:
				t.Errorf("unexpected log entry for %s", e.StudentID)
			}
		}
	})

	t.Run("repeating students keep their course and are not logged", func(t *testing.T) {
		f := setup(t)
		ana := testutil.CreateStudent(t, f.schools, "Ana", f.inf3.ID, false, false)
		leo := testutil.CreateStudent(t, f.schools, "Leo", f.inf3.ID, false, false)

		res := f.applyAll(t, leo.ID)
		assert.Equal(t, 1, res.Repeated)
		assert.Equal(t, f.inf4.ID, f.courseOf(t, ana.ID))
		assert.Equal(t, f.inf3.ID, f.courseOf(t, leo.ID))

		batches, err := f.svc.Log(ctx)
		require.NoError(t, err)
		require.Len(t, batches, 1)
		require.Len(t, batches[0].Entries, 1)
		assert.Equal(t, ana.ID, batches[0].Entries[0].StudentID)
	})

	t.Run("students deleted after planning are reported", func(t *testing.T) {
		f := setup(t)
		ana := testutil.CreateStudent(t, f.schools, "Ana", f.inf3.ID, false, false)
		plan, err := f.svc.BuildPlan(ctx)
		require.NoError(t, err)
		require.NoError(t, f.schools.DeleteStudent(ctx, ana.ID))

		res, err := f.svc.Apply(ctx, plan, true)
		require.NoError(t, err)
		assert.Empty(t, res.Promoted)
		assert.Equal(t, []string{ana.ID}, res.Missing)
	})
}

func TestUndo(t *testing.T) {
	ctx := context.Background()

	t.Run("empty log", func(t *testing.T) {
		f := setup(t)
		_, err := f.svc.Undo(ctx)
		assert.Equal(t, promotion.ErrNothingToUndo, err)
	})

	t.Run("single batch is fully reverted", func(t *testing.T) {
		f := setup(t)
		ana := testutil.CreateStudent(t, f.schools, "Ana", f.inf3.ID, false, false)
		leo := testutil.CreateStudent(t, f.schools, "Leo", f.p5.ID, false, false)
		f.applyAll(t)

		res, err := f.svc.Undo(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Restored)
		assert.Equal(t, f.inf3.ID, f.courseOf(t, ana.ID))
		assert.Equal(t, f.p5.ID, f.courseOf(t, leo.ID))

		batches, err := f.svc.Log(ctx)
		require.NoError(t, err)
		assert.Empty(t, batches)

		_, err = f.svc.Undo(ctx)
		assert.Equal(t, promotion.ErrNothingToUndo, err)
	})

	t.Run("only the latest batch is reverted", func(t *testing.T) {
		f := setup(t)
		ana := testutil.CreateStudent(t, f.schools, "Ana", f.inf3.ID, false, false)
		first := f.applyAll(t)

		testutil.FreezeTime(t, time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC))
		leo := testutil.CreateStudent(t, f.schools, "Leo", f.p5.ID, false, false)
		second := f.applyAll(t)
		require.NotEqual(t, first.Batch, second.Batch)
		// ana is in INF 4 AÑOS now, whose successor does not exist
		assert.Len(t, second.Promoted, 1)

		res, err := f.svc.Undo(ctx)
		require.NoError(t, err)
		assert.Equal(t, second.Batch, res.Batch)
		assert.Equal(t, f.p5.ID, f.courseOf(t, leo.ID))
		assert.Equal(t, f.inf4.ID, f.courseOf(t, ana.ID))

		batches, err := f.svc.Log(ctx)
		require.NoError(t, err)
		require.Len(t, batches, 1)
		assert.Equal(t, first.Batch, batches[0].Date)
	})

	t.Run("deleted origin course leaves the student in place", func(t *testing.T) {
		f := setup(t)
		ana := testutil.CreateStudent(t, f.schools, "Ana", f.inf3.ID, false, false)
		leo := testutil.CreateStudent(t, f.schools, "Leo", f.p5.ID, false, false)
		f.applyAll(t)
		// INF 3 AÑOS is empty after the batch
		require.NoError(t, school.NewService(f.schools).DeleteCourse(ctx, f.inf3.ID))

		res, err := f.svc.Undo(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Restored)
		assert.Equal(t, []string{ana.ID}, res.Stranded)
		assert.Empty(t, res.Missing)
		assert.Equal(t, f.inf4.ID, f.courseOf(t, ana.ID))
		assert.Equal(t, f.p5.ID, f.courseOf(t, leo.ID))

		batches, err := f.svc.Log(ctx)
		require.NoError(t, err)
		assert.Empty(t, batches)

		_, err = f.svc.Undo(ctx)
		assert.Equal(t, promotion.ErrNothingToUndo, err)
	})

	t.Run("same-day applies merge into one undo unit", func(t *testing.T) {
		f := setup(t)
		ana := testutil.CreateStudent(t, f.schools, "Ana", f.inf3.ID, false, false)
		leo := testutil.CreateStudent(t, f.schools, "Leo", f.p5.ID, false, false)
		f.applyAll(t, leo.ID)
		f.applyAll(t) // ana cannot move further, leo moves now

		res, err := f.svc.Undo(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Restored)
		assert.Equal(t, f.inf3.ID, f.courseOf(t, ana.ID))
		assert.Equal(t, f.p5.ID, f.courseOf(t, leo.ID))
	})
}
