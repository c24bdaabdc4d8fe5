package store

import (
	"context"
	"database/sql/driver"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	kioskdb "visitor-kiosk-backend/internal/db"
	"visitor-kiosk-backend/internal/model"
)

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

// newSQLiteDB opens a migrated file database private to the test.
func newSQLiteDB(t *testing.T) *gorm.DB {
	dsn := filepath.Join(t.TempDir(), "kiosk.db") + "?_busy_timeout=5000"
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, kioskdb.Migrate(gormDB))
	return gormDB
}

func seedHost(t *testing.T, db *gorm.DB, name, email, dept string) model.Host {
	host := model.Host{FullName: name, Email: email, Department: dept}
	require.NoError(t, db.Create(&host).Error)
	return host
}

func strPtr(s string) *string { return &s }

func TestGormStore_CloseVisit_LostRace(t *testing.T) {
	testCases := []struct {
		name             string
		mockExpectations func(mock sqlmock.Sqlmock)
		expectedErr      error
	}{
		{
			name: "Visit closed by a concurrent request",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "visits" SET`)).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id","status" FROM "visits"`)).
					WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(7, "checked_out"))
				mock.ExpectRollback()
			},
			expectedErr: ErrAlreadyClosed,
		},
		{
			name: "Visit does not exist",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "visits" SET`)).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id","status" FROM "visits"`)).
					WillReturnRows(sqlmock.NewRows([]string{"id", "status"}))
				mock.ExpectRollback()
			},
			expectedErr: ErrNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newMockDB(t)
			store := NewGormStore(gormDB)

			tc.mockExpectations(mock)

			_, err := store.CloseVisit(context.Background(), 7, time.Now().UTC())
			assert.ErrorIs(t, err, tc.expectedErr)

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormStore_CountActiveVisits_SQL(t *testing.T) {
	gormDB, mock := newMockDB(t)
	store := NewGormStore(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "visits" WHERE status = $1`)).
		WithArgs("checked_in").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := store.CountActiveVisits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_UpsertSubscription_SQL(t *testing.T) {
	gormDB, mock := newMockDB(t)
	store := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "push_subscriptions"`)).
		WithArgs("https://push.example/abc", int64(1), "key", "secret", Any{}).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := store.UpsertSubscription(context.Background(), model.PushSubscription{
		Endpoint: "https://push.example/abc",
		HostID:   1,
		P256DH:   "key",
		Auth:     "secret",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_CheckIn(t *testing.T) {
	db := newSQLiteDB(t)
	store := NewGormStore(db)
	ctx := context.Background()
	host := seedHost(t, db, "Budi Santoso", "budi.santoso@company.com", "Information Technology")
	now := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)

	t.Run("creates visitor and visit", func(t *testing.T) {
		visit, err := store.CheckIn(ctx, CheckInParams{
			FullName: "Dana Lee",
			Company:  strPtr("Acme"),
			Phone:    "555-0101",
			HostID:   host.ID,
			Purpose:  strPtr("Interview"),
			Now:      now,
		})
		require.NoError(t, err)

		assert.NotZero(t, visit.ID)
		assert.Equal(t, model.StatusCheckedIn, visit.Status)
		assert.Nil(t, visit.CheckOutAt)
		assert.True(t, visit.CheckInAt.Equal(now))
		require.NotNil(t, visit.Visitor)
		assert.Equal(t, "Dana Lee", visit.Visitor.FullName)
		require.NotNil(t, visit.Host)
		assert.Equal(t, "Budi Santoso", visit.Host.FullName)
	})

	t.Run("repeat phone reuses visitor without overwriting identity", func(t *testing.T) {
		first, err := store.CheckIn(ctx, CheckInParams{FullName: "Sam Park", Phone: "555-0303", HostID: host.ID, Now: now})
		require.NoError(t, err)
		second, err := store.CheckIn(ctx, CheckInParams{
			FullName: "Samuel Park",
			Company:  strPtr("Other Co"),
			Phone:    "555-0303",
			HostID:   host.ID,
			Now:      now.Add(time.Hour),
		})
		require.NoError(t, err)

		assert.Equal(t, first.VisitorID, second.VisitorID)
		assert.NotEqual(t, first.ID, second.ID)
		assert.Equal(t, "Sam Park", second.Visitor.FullName)
		assert.Nil(t, second.Visitor.Company)

		var count int64
		require.NoError(t, db.Model(&model.Visitor{}).Where("phone = ?", "555-0303").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("unknown host", func(t *testing.T) {
		_, err := store.CheckIn(ctx, CheckInParams{FullName: "Nobody", Phone: "555-0404", HostID: 9999, Now: now})
		assert.ErrorIs(t, err, ErrNotFound)

		var count int64
		require.NoError(t, db.Model(&model.Visitor{}).Where("phone = ?", "555-0404").Count(&count).Error)
		assert.Zero(t, count, "no visitor is created for a rejected check-in")
	})
}

func TestGormStore_CheckIn_ConcurrentSamePhone(t *testing.T) {
	db := newSQLiteDB(t)
	store := NewGormStore(db)
	host := seedHost(t, db, "Siti Nurhaliza", "siti.nurhaliza@company.com", "Human Resources")
	now := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)

	names := []string{"Alex Kim", "Alexandra Kim", "A. Kim", "Alex K."}
	visits := make([]model.Visit, len(names))
	errs := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			visits[i], errs[i] = store.CheckIn(context.Background(), CheckInParams{
				FullName: name, Phone: "555-0202", HostID: host.ID, Now: now,
			})
		}(i, name)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	var visitors []model.Visitor
	require.NoError(t, db.Where("phone = ?", "555-0202").Find(&visitors).Error)
	require.Len(t, visitors, 1)
	assert.Contains(t, names, visitors[0].FullName)
	for _, v := range visits {
		assert.Equal(t, visitors[0].ID, v.VisitorID)
	}
}

func TestGormStore_CloseVisit(t *testing.T) {
	db := newSQLiteDB(t)
	store := NewGormStore(db)
	ctx := context.Background()
	host := seedHost(t, db, "Ahmad Rahman", "ahmad.rahman@company.com", "Finance")
	now := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)

	visit, err := store.CheckIn(ctx, CheckInParams{FullName: "Dana Lee", Phone: "555-0101", HostID: host.ID, Now: now})
	require.NoError(t, err)

	closedAt := now.Add(45 * time.Minute)
	closed, err := store.CloseVisit(ctx, visit.ID, closedAt)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCheckedOut, closed.Status)
	require.NotNil(t, closed.CheckOutAt)
	assert.True(t, closed.CheckOutAt.Equal(closedAt))

	_, err = store.CloseVisit(ctx, visit.ID, closedAt.Add(time.Hour))
	assert.ErrorIs(t, err, ErrAlreadyClosed)

	reloaded, err := store.GetVisit(ctx, visit.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.CheckOutAt.Equal(closedAt), "second close must not move check_out_at")

	_, err = store.CloseVisit(ctx, 424242, closedAt)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetActiveVisit(ctx, visit.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_CloseVisit_Concurrent(t *testing.T) {
	db := newSQLiteDB(t)
	store := NewGormStore(db)
	ctx := context.Background()
	host := seedHost(t, db, "Ahmad Rahman", "ahmad.rahman@company.com", "Finance")

	visit, err := store.CheckIn(ctx, CheckInParams{FullName: "Dana Lee", Phone: "555-0101", HostID: host.ID, Now: time.Now().UTC()})
	require.NoError(t, err)

	const callers = 5
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.CloseVisit(ctx, visit.ID, time.Now().UTC())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, closed int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, ErrAlreadyClosed):
			closed++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, closed)
}

func TestGormStore_ListActiveVisits(t *testing.T) {
	db := newSQLiteDB(t)
	store := NewGormStore(db)
	ctx := context.Background()
	host := seedHost(t, db, "Budi Santoso", "budi.santoso@company.com", "Information Technology")
	base := time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC)

	var ids []int64
	for i, phone := range []string{"555-1001", "555-1002", "555-1003"} {
		v, err := store.CheckIn(ctx, CheckInParams{FullName: "Guest", Phone: phone, HostID: host.ID, Now: base.Add(time.Duration(i) * time.Minute)})
		require.NoError(t, err)
		ids = append(ids, v.ID)
	}
	_, err := store.CloseVisit(ctx, ids[1], base.Add(time.Hour))
	require.NoError(t, err)

	active, err := store.ListActiveVisits(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, ids[2], active[0].ID)
	assert.Equal(t, ids[0], active[1].ID)
	for _, v := range active {
		assert.Equal(t, model.StatusCheckedIn, v.Status)
		assert.NotNil(t, v.Visitor)
		assert.NotNil(t, v.Host)
	}
}

func TestGormStore_UpsertPhoto(t *testing.T) {
	db := newSQLiteDB(t)
	store := NewGormStore(db)
	ctx := context.Background()
	host := seedHost(t, db, "Budi Santoso", "budi.santoso@company.com", "Information Technology")
	now := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)

	visit, err := store.CheckIn(ctx, CheckInParams{FullName: "Dana Lee", Phone: "555-0101", HostID: host.ID, Now: now})
	require.NoError(t, err)

	prev, err := store.UpsertPhoto(ctx, visit, "visitors/first.jpg", now)
	require.NoError(t, err)
	assert.Empty(t, prev)

	prev, err = store.UpsertPhoto(ctx, visit, "visitors/second.jpg", now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "visitors/first.jpg", prev)

	var photos []model.Photo
	require.NoError(t, db.Where("visit_id = ?", visit.ID).Find(&photos).Error)
	require.Len(t, photos, 1)
	assert.Equal(t, "visitors/second.jpg", photos[0].FilePath)

	var visitor model.Visitor
	require.NoError(t, db.First(&visitor, visit.VisitorID).Error)
	require.NotNil(t, visitor.PhotoPath)
	assert.Equal(t, "visitors/second.jpg", *visitor.PhotoPath)

	loaded, err := store.GetVisit(ctx, visit.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Photo)
	assert.Equal(t, "visitors/second.jpg", loaded.Photo.FilePath)
}

func TestGormStore_Reports(t *testing.T) {
	db := newSQLiteDB(t)
	store := NewGormStore(db)
	ctx := context.Background()
	host := seedHost(t, db, "Budi Santoso", "budi.santoso@company.com", "Information Technology")
	day := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

	yesterday, err := store.CheckIn(ctx, CheckInParams{FullName: "A", Phone: "1", HostID: host.ID, Now: day.Add(-2 * time.Hour)})
	require.NoError(t, err)
	morning, err := store.CheckIn(ctx, CheckInParams{FullName: "B", Phone: "2", HostID: host.ID, Now: day.Add(9 * time.Hour)})
	require.NoError(t, err)
	_, err = store.CheckIn(ctx, CheckInParams{FullName: "C", Phone: "3", HostID: host.ID, Now: day.Add(10 * time.Hour)})
	require.NoError(t, err)
	_, err = store.CloseVisit(ctx, yesterday.ID, day.Add(-time.Hour))
	require.NoError(t, err)
	_, err = store.CloseVisit(ctx, morning.ID, day.Add(9*time.Hour+30*time.Minute))
	require.NoError(t, err)

	n, err := store.CountCheckInsBetween(ctx, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	active, err := store.CountActiveVisits(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), active)

	closed, err := store.ListClosedVisits(ctx)
	require.NoError(t, err)
	assert.Len(t, closed, 2)
	for _, v := range closed {
		assert.NotNil(t, v.CheckOutAt)
	}

	recent, err := store.ListRecentVisits(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "C", recent[0].Visitor.FullName)
	assert.Equal(t, "B", recent[1].Visitor.FullName)

	_, err = store.CheckIn(ctx, CheckInParams{FullName: "D", Phone: "4", HostID: host.ID, Now: day.AddDate(0, 0, 1).Add(time.Hour)})
	require.NoError(t, err)

	since, err := store.ListVisitsBetween(ctx, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, since, 2, "check-ins after the window are excluded")
	assert.True(t, since[0].CheckInAt.Before(since[1].CheckInAt))
	assert.Equal(t, "Information Technology", since[0].Host.Department)
}

func TestGormStore_Hosts(t *testing.T) {
	db := newSQLiteDB(t)
	store := NewGormStore(db)
	ctx := context.Background()

	require.NoError(t, store.CreateHost(ctx, &model.Host{FullName: "Zed Host", Email: "zed@company.com", Department: "Ops"}))
	require.NoError(t, store.CreateHost(ctx, &model.Host{FullName: "Amy Host", Email: "amy@company.com", Department: "Sales"}))

	err := store.CreateHost(ctx, &model.Host{FullName: "Amy Again", Email: "amy@company.com"})
	assert.ErrorIs(t, err, ErrDuplicate)

	hosts, err := store.ListHosts(ctx)
	require.NoError(t, err)
	require.Len(t, hosts, 2)
	assert.Equal(t, "Amy Host", hosts[0].FullName)

	got, err := store.GetHost(ctx, hosts[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "zed@company.com", got.Email)

	_, err = store.GetHost(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_CreateHost_LostEmailRace(t *testing.T) {
	db := newSQLiteDB(t)
	store := NewGormStore(db)

	// Another writer takes the email between the existence check and the insert.
	raced := false
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:host_email_race", func(tx *gorm.DB) {
		if raced || tx.Statement.Table != "hosts" {
			return
		}
		raced = true
		now := time.Now().UTC()
		tx.Session(&gorm.Session{NewDB: true}).Exec(
			"INSERT INTO hosts (full_name, email, department, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
			"Amy Host", "amy@company.com", "Sales", now, now,
		)
	}))

	err := store.CreateHost(context.Background(), &model.Host{FullName: "Amy Again", Email: "amy@company.com", Department: "Sales"})
	assert.True(t, raced)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestGormStore_CreateHost_PostgresUniqueViolation(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewGormStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "hosts" WHERE email = $1`)).
		WithArgs("amy@company.com").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "hosts"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := store.CreateHost(context.Background(), &model.Host{FullName: "Amy Again", Email: "amy@company.com", Department: "Sales"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_Subscriptions(t *testing.T) {
	db := newSQLiteDB(t)
	store := NewGormStore(db)
	ctx := context.Background()
	host := seedHost(t, db, "Budi Santoso", "budi.santoso@company.com", "Information Technology")
	other := seedHost(t, db, "Siti Nurhaliza", "siti.nurhaliza@company.com", "Human Resources")

	sub := model.PushSubscription{Endpoint: "https://push.example/1", HostID: host.ID, P256DH: "k1", Auth: "a1"}
	require.NoError(t, store.UpsertSubscription(ctx, sub))

	sub.HostID = other.ID
	sub.P256DH = "k2"
	require.NoError(t, store.UpsertSubscription(ctx, sub))

	subs, err := store.ListHostSubscriptions(ctx, host.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)

	subs, err = store.ListHostSubscriptions(ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "k2", subs[0].P256DH)

	require.NoError(t, store.DeleteSubscription(ctx, sub.Endpoint))
	require.NoError(t, store.DeleteSubscription(ctx, "https://push.example/unknown"))

	subs, err = store.ListHostSubscriptions(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}
