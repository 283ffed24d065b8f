package integrity

import (
	"errors"
	"fmt"
)

var (
	ErrRuleNotFound         = errors.New("规则不存在")
	ErrCheckRunNotFound     = errors.New("检查记录不存在")
	ErrBackupNotFound       = errors.New("备份不存在")
	ErrCorrectionInProgress = errors.New("该范围的自动修正正在进行中")
)

// QueryExecutionError 规则查询执行失败，超时也归为此类
type QueryExecutionError struct {
	RuleID  string
	Timeout bool
	Cause   error
}

func (e *QueryExecutionError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("规则 %s 查询超时: %v", e.RuleID, e.Cause)
	}
	return fmt.Sprintf("规则 %s 查询失败: %v", e.RuleID, e.Cause)
}

func (e *QueryExecutionError) Unwrap() error { return e.Cause }

// PersistenceError 检查记录、备份或修正记录写入失败
type PersistenceError struct {
	Op    string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("持久化失败 [%s]: %v", e.Op, e.Cause)
}

func (e *PersistenceError) Unwrap() error { return e.Cause }

// CorrectionError 单个问题类型的自动修正失败
type CorrectionError struct {
	IssueType string
	Cause     error
}

func (e *CorrectionError) Error() string {
	return fmt.Sprintf("自动修正 %s 失败: %v", e.IssueType, e.Cause)
}

func (e *CorrectionError) Unwrap() error { return e.Cause }

// BackupPrerequisiteError 修正前置备份创建失败，该范围不做任何修正
type BackupPrerequisiteError struct {
	Scope string
	Cause error
}

func (e *BackupPrerequisiteError) Error() string {
	return fmt.Sprintf("范围 %s 备份失败，已取消自动修正: %v", e.Scope, e.Cause)
}

func (e *BackupPrerequisiteError) Unwrap() error { return e.Cause }
