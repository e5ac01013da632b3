package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/comedor/core"
	"github.com/trezcool/comedor/core/school"
	"github.com/trezcool/comedor/core/user"
	"github.com/trezcool/comedor/storage/database"
)

// PrepareDB opens a migrated sqlite database in the test's temp dir.
// The returned Config points to it.
func PrepareDB(t *testing.T) (*sqlx.DB, *core.Config) {
	t.Helper()

	conf := core.NewTestConfig(filepath.Join(t.TempDir(), "comedor.db"))
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db, "up"); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db, conf
}

// FreezeTime makes core.NowFunc return now until the test ends.
func FreezeTime(t *testing.T, now time.Time) {
	t.Helper()
	orig := core.NowFunc
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = orig })
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(t *testing.T, repo school.Repository, name, section string, order int) school.Course {
	t.Helper()
	c, err := repo.CreateCourse(context.Background(), school.Course{Name: name, Section: section, Order: order})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}

func CreateStudent(t *testing.T, repo school.Repository, name, courseID string, supportProgram, supportOnly bool) school.Student {
	t.Helper()
	s, err := repo.CreateStudent(context.Background(), school.Student{
		Name:           name,
		CourseID:       courseID,
		SupportProgram: supportProgram,
		SupportOnly:    supportOnly,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}

// NopLogger discards everything.
type NopLogger struct{}

var _ core.Logger = NopLogger{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}
