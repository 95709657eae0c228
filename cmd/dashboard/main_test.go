package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidsacademy/school-hub/internal/application/query"
	"github.com/kidsacademy/school-hub/internal/domain/shared"
	"github.com/kidsacademy/school-hub/pkg/retry"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-viewer", "usr-owner", "-month", "2024-04"})
	require.NoError(t, err)
	assert.Equal(t, "usr-owner", opts.viewerID)
	assert.Equal(t, "2024-04", opts.month)

	_, err = parseFlags(nil)
	assert.Error(t, err)

	opts, err = parseFlags([]string{"-viewer", "usr-owner", "-mark-paid", "pay-001", "-reference", "KASPI-2001"})
	require.NoError(t, err)
	assert.Equal(t, "pay-001", opts.markPaid)
	assert.Equal(t, "KASPI-2001", opts.reference)

	_, err = parseFlags([]string{"-viewer", "usr-owner", "-reference", "KASPI-2001"})
	assert.Error(t, err)
}

func TestBuildQuery(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)

	q, err := buildQuery(options{viewerID: "v", today: "2024-03-15", month: "2024-04", day: "2024-04-12"}, loc)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-15", q.Now.Format("2006-01-02"))
	assert.Equal(t, loc, q.Now.Location())
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, loc), q.Month)
	require.NotNil(t, q.Selected)
	assert.Equal(t, time.Date(2024, 4, 12, 0, 0, 0, 0, loc), *q.Selected)

	_, err = buildQuery(options{viewerID: "v", month: "April"}, loc)
	assert.Error(t, err)
	_, err = buildQuery(options{viewerID: "v", day: "12/04/2024"}, loc)
	assert.Error(t, err)
}

func TestRun_ComposesFromFixtures(t *testing.T) {
	t.Setenv("APP_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("FIXTURES_LATENCY", "0")

	var out bytes.Buffer
	err := run(context.Background(), []string{"-viewer", "usr-parent-1", "-today", "2024-03-15"}, &out)
	require.NoError(t, err)

	var vm query.DashboardViewModel
	require.NoError(t, json.Unmarshal(out.Bytes(), &vm))
	assert.Equal(t, "usr-parent-1", vm.ViewerID)
	assert.Equal(t, "2024-03-15", vm.Today)
	assert.Equal(t, "2024-03", vm.Calendar.Month)
	assert.Len(t, vm.Calendar.Cells, 42)
	require.NotNil(t, vm.Parent)
	require.NotNil(t, vm.Parent.Child)
	assert.Equal(t, "stu-001", vm.Parent.Child.ID)
	assert.Nil(t, vm.Teacher)
	assert.Nil(t, vm.Owner)
}

func fixtureEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("FIXTURES_LATENCY", "0")
}

func TestRun_MarkPaidBeforeComposing(t *testing.T) {
	fixtureEnv(t)

	var before, after bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-viewer", "usr-owner", "-today", "2024-03-15"}, &before))
	require.NoError(t, run(context.Background(), []string{
		"-viewer", "usr-owner", "-today", "2024-03-15",
		"-mark-paid", "pay-001", "-reference", "KASPI-2001",
	}, &after))

	var was, now query.DashboardViewModel
	require.NoError(t, json.Unmarshal(before.Bytes(), &was))
	require.NoError(t, json.Unmarshal(after.Bytes(), &now))
	require.NotNil(t, was.Owner)
	require.NotNil(t, now.Owner)

	assert.Equal(t, was.Owner.Payments.TotalDueAmount-45000, now.Owner.Payments.TotalDueAmount)
	assert.Equal(t, was.Owner.Payments.PaidCount+1, now.Owner.Payments.PaidCount)
	assert.Equal(t, was.Owner.Payments.DueCount-1, now.Owner.Payments.DueCount)
}

func TestRun_MarkPaidNeedsOwner(t *testing.T) {
	fixtureEnv(t)

	err := run(context.Background(), []string{"-viewer", "usr-parent-1", "-mark-paid", "pay-001"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-mark-paid")
	assert.True(t, shared.IsForbidden(err))
}

func TestRun_UnknownViewer(t *testing.T) {
	t.Setenv("APP_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("APP_ENV", "development")
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ENABLED", "false")

	err := run(context.Background(), []string{"-viewer", "nobody"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestClassifyLoadError(t *testing.T) {
	assert.NoError(t, classifyLoadError(nil, false))

	refused := errors.New("connection refused")
	assert.Same(t, refused, classifyLoadError(refused, false))

	missing := fmt.Errorf("load students: %w", &pgconn.PgError{Code: "42P01"})
	err := classifyLoadError(missing, false)
	assert.True(t, retry.IsPermanent(err))
	assert.Contains(t, err.Error(), "DB_MIGRATE=true")

	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))

	err = classifyLoadError(missing, true)
	assert.True(t, retry.IsPermanent(err))
	assert.Contains(t, err.Error(), "after migration")
}
