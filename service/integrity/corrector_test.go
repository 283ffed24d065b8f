package integrity

import (
	"context"
	"errors"
	"testing"
	"time"

	"integrity-service/service/models"
	"integrity-service/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 存储汇总 (10, 100.00)，明细合计 (12, 115.00)
func seedMismatch(f *testutil.TestDataFactory) *models.Event {
	event := f.CreateEvent(testutil.WithEventTotals(10, 100))
	f.CreateTicketSale(event.ID, testutil.WithSaleAmount(4, 40))
	f.CreateTicketSale(event.ID, testutil.WithSaleAmount(4, 40))
	f.CreateTicketSale(event.ID, testutil.WithSaleAmount(4, 35))
	return event
}

func TestAutoCorrect_ConvergesAndIsIdempotent(t *testing.T) {
	env := newTestEnv(nil)
	defer env.tdb.Close()
	ctx := context.Background()
	event := seedMismatch(env.factory)

	run, err := env.svc.RunCheck(ctx, RuleEventTotalsMismatch, event.ID)
	require.NoError(t, err)
	require.Len(t, run.Issues, 1)
	assert.Equal(t, []string{event.ID}, run.Issues[0].AffectedRecords)

	corrected, err := env.svc.AutoCorrect(ctx, run.ID, []string{RuleEventTotalsMismatch})
	require.NoError(t, err)
	assert.Equal(t, 1, corrected)

	var stored models.Event
	require.NoError(t, env.tdb.DB.First(&stored, "id = ?", event.ID).Error)
	assert.Equal(t, int64(12), stored.TotalTicketsSold)
	assert.InDelta(t, 115.0, stored.TotalGrossSales, 0.001)

	rerun, err := env.svc.RunCheck(ctx, RuleEventTotalsMismatch, event.ID)
	require.NoError(t, err)
	assert.Empty(t, rerun.Issues)
	assert.Equal(t, models.CheckStatusPassed, rerun.Status)

	corrected, err = env.svc.AutoCorrect(ctx, run.ID, []string{RuleEventTotalsMismatch})
	require.NoError(t, err)
	assert.Equal(t, 0, corrected)

	records, err := env.svc.GetCorrectionHistory(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, record := range records {
		assert.NotEmpty(t, record.BackupID)
		assert.Equal(t, event.ID, record.Scope)
		assert.Equal(t, []string{RuleEventTotalsMismatch}, []string(record.IssueTypes))
	}

	var backups int64
	env.tdb.DB.Model(&models.DataBackup{}).Count(&backups)
	assert.Equal(t, int64(2), backups)

	var logs int64
	env.tdb.DB.Model(&models.DataOperationLog{}).Where("operation = ?", models.OperationAutoCorrection).Count(&logs)
	assert.Equal(t, int64(2), logs)
}

func TestAutoCorrect_PlatformTotals(t *testing.T) {
	env := newTestEnv(nil)
	defer env.tdb.Close()
	ctx := context.Background()

	event := env.factory.CreateEvent(testutil.WithEventTotals(2, 25))
	tp := env.factory.CreateTicketPlatform(event.ID, "eventbrite", testutil.WithPlatformTotals(0, 0))
	env.factory.CreateTicketSale(event.ID, testutil.WithPlatformOrder("eventbrite", "E-1"), testutil.WithSaleAmount(2, 25))

	run, err := env.svc.RunCheck(ctx, "", event.ID)
	require.NoError(t, err)
	assert.Contains(t, issueTypes(run.Issues), RulePlatformTotalsMismatch)

	corrected, err := env.svc.AutoCorrect(ctx, run.ID, []string{RulePlatformTotalsMismatch, RuleNegativeAmounts})
	require.NoError(t, err)
	assert.Equal(t, 1, corrected)

	var stored models.TicketPlatform
	require.NoError(t, env.tdb.DB.First(&stored, "id = ?", tp.ID).Error)
	assert.Equal(t, int64(2), stored.TicketsSold)
	assert.InDelta(t, 25.0, stored.GrossSales, 0.001)
}

func TestAutoCorrect_FailedTypeDoesNotBlockOthers(t *testing.T) {
	adapter := &fakeAdapter{fail: map[string]error{}}
	env := newTestEnv(adapter)
	defer env.tdb.Close()
	adapter.inner = NewGormQueryAdapter(env.tdb.DB)
	ctx := context.Background()

	fixed := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	env.svc.now = func() time.Time { return fixed }

	event := seedMismatch(env.factory)
	tp := env.factory.CreateTicketPlatform(event.ID, "humanitix", testutil.WithPlatformTotals(0, 0))

	run, err := env.svc.RunCheck(ctx, "", event.ID)
	require.NoError(t, err)
	require.Contains(t, issueTypes(run.Issues), RuleEventTotalsMismatch)
	require.Contains(t, issueTypes(run.Issues), RulePlatformTotalsMismatch)

	adapter.fail[RulePlatformTotalsMismatch] = errors.New("connection reset")

	corrected, err := env.svc.AutoCorrect(ctx, run.ID, []string{RuleEventTotalsMismatch, RulePlatformTotalsMismatch})
	require.NoError(t, err)
	assert.Equal(t, 1, corrected, "只统计修正成功的问题类型")

	var storedEvent models.Event
	require.NoError(t, env.tdb.DB.First(&storedEvent, "id = ?", event.ID).Error)
	assert.Equal(t, int64(12), storedEvent.TotalTicketsSold)
	assert.InDelta(t, 115.0, storedEvent.TotalGrossSales, 0.001)
	assert.True(t, fixed.Equal(storedEvent.UpdatedAt), "修正时间与修正记录使用同一时钟")

	var storedPlatform models.TicketPlatform
	require.NoError(t, env.tdb.DB.First(&storedPlatform, "id = ?", tp.ID).Error)
	assert.Equal(t, int64(0), storedPlatform.TicketsSold)

	records, err := env.svc.GetCorrectionHistory(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].CorrectedCount)
	assert.NotEmpty(t, records[0].BackupID)
	assert.Equal(t, []string{RuleEventTotalsMismatch, RulePlatformTotalsMismatch}, []string(records[0].IssueTypes))
	assert.True(t, fixed.Equal(records[0].Timestamp))
}

func TestAutoCorrect_BackupFailurePreventsMutation(t *testing.T) {
	env := newTestEnv(nil)
	defer env.tdb.Close()
	ctx := context.Background()
	event := seedMismatch(env.factory)

	run, err := env.svc.RunCheck(ctx, RuleEventTotalsMismatch, event.ID)
	require.NoError(t, err)

	require.NoError(t, env.tdb.DB.Migrator().DropTable(&models.DataBackup{}))

	corrected, err := env.svc.AutoCorrect(ctx, run.ID, []string{RuleEventTotalsMismatch})
	var berr *BackupPrerequisiteError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, event.ID, berr.Scope)
	assert.Equal(t, 0, corrected)

	var records int64
	env.tdb.DB.Model(&models.CorrectionRecord{}).Count(&records)
	assert.Equal(t, int64(0), records)

	var stored models.Event
	require.NoError(t, env.tdb.DB.First(&stored, "id = ?", event.ID).Error)
	assert.Equal(t, int64(10), stored.TotalTicketsSold)
	assert.InDelta(t, 100.0, stored.TotalGrossSales, 0.001)
}

func TestAutoCorrect_ScopeLocked(t *testing.T) {
	env := newTestEnv(nil)
	defer env.tdb.Close()
	ctx := context.Background()
	event := seedMismatch(env.factory)

	run, err := env.svc.RunCheck(ctx, RuleEventTotalsMismatch, event.ID)
	require.NoError(t, err)

	token, locked, err := env.lock.TryLock(ctx, correctionLockPrefix+event.ID, time.Minute)
	require.NoError(t, err)
	require.True(t, locked)

	_, err = env.svc.AutoCorrect(ctx, run.ID, []string{RuleEventTotalsMismatch})
	assert.ErrorIs(t, err, ErrCorrectionInProgress)

	require.NoError(t, env.lock.Unlock(ctx, correctionLockPrefix+event.ID, token))
	corrected, err := env.svc.AutoCorrect(ctx, run.ID, []string{RuleEventTotalsMismatch})
	require.NoError(t, err)
	assert.Equal(t, 1, corrected)
}

func TestAutoCorrect_UnsupportedTypesStillRecorded(t *testing.T) {
	env := newTestEnv(nil)
	defer env.tdb.Close()
	ctx := context.Background()

	run, err := env.svc.RunCheck(ctx, RuleNegativeAmounts, "")
	require.NoError(t, err)

	corrected, err := env.svc.AutoCorrect(ctx, run.ID, []string{RuleNegativeAmounts, RuleNegativeAmounts})
	require.NoError(t, err)
	assert.Equal(t, 0, corrected)

	records, err := env.svc.GetCorrectionHistory(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 0, records[0].CorrectedCount)
	assert.Equal(t, "all", records[0].Scope)
	assert.Equal(t, []string{RuleNegativeAmounts}, []string(records[0].IssueTypes))
}

func TestAutoCorrect_CheckRunNotFound(t *testing.T) {
	env := newTestEnv(nil)
	defer env.tdb.Close()

	_, err := env.svc.AutoCorrect(context.Background(), "missing", []string{RuleEventTotalsMismatch})
	assert.ErrorIs(t, err, ErrCheckRunNotFound)
}

func TestIsCorrectable(t *testing.T) {
	assert.True(t, IsCorrectable(RuleEventTotalsMismatch))
	assert.True(t, IsCorrectable(RulePlatformTotalsMismatch))
	assert.False(t, IsCorrectable(RuleOrphanedTicketSales))
	assert.False(t, IsCorrectable(IssueTypeRuleExecutionError))
}
