package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-sales-api/internal/models"
	appErrors "github.com/noah-isme/course-sales-api/pkg/errors"
)

func newEnrollmentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func courseRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "title", "author", "start_date", "price", "created_at", "updated_at"}).
		AddRow("c1", "Go Basics", "Author", now, 250, now, now)
}

func expectCourseLock(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, author, start_date, price, created_at, updated_at FROM courses WHERE id = $1 FOR UPDATE")).
		WithArgs("c1").
		WillReturnRows(courseRows())
}

func TestEnrollmentStoreWithinCourseCommits(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	store := NewEnrollmentStore(db)

	mock.ExpectBegin()
	expectCourseLock(mock)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM subscriptions WHERE user_id = $1 AND course_id = $2 LIMIT 1")).
		WithArgs("u1", "c1").
		WillReturnError(sqlmock.ErrCancelled)
	mock.ExpectRollback()

	// Independent run to show the happy path commits.
	mock.ExpectBegin()
	expectCourseLock(mock)
	mock.ExpectExec("INSERT INTO subscriptions").
		WithArgs(sqlmock.AnyArg(), "u1", "c1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithinCourse(context.Background(), "c1", func(tx EnrollmentTx, course *models.Course) error {
		_, err := tx.SubscriptionExists(context.Background(), "u1", "c1")
		return err
	})
	require.Error(t, err)

	err = store.WithinCourse(context.Background(), "c1", func(tx EnrollmentTx, course *models.Course) error {
		assert.Equal(t, "c1", course.ID)
		assert.Equal(t, 250, course.Price)
		return tx.CreateSubscription(context.Background(), &models.Subscription{UserID: "u1", CourseID: "c1"})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentStoreCourseNotFound(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	store := NewEnrollmentStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, title, author").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := store.WithinCourse(context.Background(), "missing", func(tx EnrollmentTx, course *models.Course) error {
		t.Fatal("callback must not run for missing course")
		return nil
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrCourseNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentStoreCallbackErrorRollsBack(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	store := NewEnrollmentStore(db)

	mock.ExpectBegin()
	expectCourseLock(mock)
	mock.ExpectRollback()

	err := store.WithinCourse(context.Background(), "c1", func(tx EnrollmentTx, course *models.Course) error {
		return appErrors.ErrInsufficientFunds
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrInsufficientFunds))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentTxDebitBalance(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	store := NewEnrollmentStore(db)

	mock.ExpectBegin()
	expectCourseLock(mock)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE balances SET bonus_count = bonus_count - $2")).
		WithArgs("u1", 250, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"bonus_count"}).AddRow(750))
	mock.ExpectCommit()

	err := store.WithinCourse(context.Background(), "c1", func(tx EnrollmentTx, course *models.Course) error {
		remaining, err := tx.DebitBalance(context.Background(), "u1", 250)
		require.NoError(t, err)
		assert.Equal(t, 750, remaining)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentTxDebitBalanceInsufficient(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	store := NewEnrollmentStore(db)

	mock.ExpectBegin()
	expectCourseLock(mock)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE balances SET bonus_count = bonus_count - $2")).
		WithArgs("u1", 250, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"bonus_count"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT bonus_count FROM balances WHERE user_id = $1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"bonus_count"}).AddRow(100))
	mock.ExpectRollback()

	err := store.WithinCourse(context.Background(), "c1", func(tx EnrollmentTx, course *models.Course) error {
		_, err := tx.DebitBalance(context.Background(), "u1", 250)
		return err
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrInsufficientFunds))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentTxCreateSubscriptionDuplicate(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	store := NewEnrollmentStore(db)

	mock.ExpectBegin()
	expectCourseLock(mock)
	mock.ExpectExec("INSERT INTO subscriptions").
		WithArgs(sqlmock.AnyArg(), "u1", "c1", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: pgUniqueViolation})
	mock.ExpectRollback()

	err := store.WithinCourse(context.Background(), "c1", func(tx EnrollmentTx, course *models.Course) error {
		return tx.CreateSubscription(context.Background(), &models.Subscription{UserID: "u1", CourseID: "c1"})
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateSubscription))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentTxGroupsByOccupancy(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	store := NewEnrollmentStore(db)

	now := time.Now()
	mock.ExpectBegin()
	expectCourseLock(mock)
	mock.ExpectQuery("SELECT g.id, g.course_id, g.position, g.created_at, COUNT").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "position", "created_at", "member_count"}).
			AddRow("g2", "c1", 2, now, 3).
			AddRow("g1", "c1", 1, now, 5))
	mock.ExpectCommit()

	err := store.WithinCourse(context.Background(), "c1", func(tx EnrollmentTx, course *models.Course) error {
		groups, err := tx.GroupsByOccupancy(context.Background(), "c1")
		require.NoError(t, err)
		require.Len(t, groups, 2)
		assert.Equal(t, "g2", groups[0].ID)
		assert.Equal(t, 3, groups[0].MemberCount)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslatePGSerializationFailure(t *testing.T) {
	err := translatePG(&pq.Error{Code: pgSerializationFailure}, "debit balance")
	assert.True(t, appErrors.Is(err, appErrors.ErrStoreUnavailable))
}
