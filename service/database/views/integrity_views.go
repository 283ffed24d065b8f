package views

// View 视图定义
type View struct {
	Name      string
	DropSQL   string
	CreateSQL string
}

var IntegrityViews = []View{
	// 每个范围最近一次检查
	{
		Name:    "integrity_latest_checks",
		DropSQL: `DROP VIEW IF EXISTS integrity_latest_checks`,
		CreateSQL: `
		CREATE VIEW integrity_latest_checks AS
		SELECT
			c.id,
			c.scope,
			c.check_type,
			c.status,
			c.rules_executed,
			c.duration_ms,
			c.run_at
		FROM data_integrity_checks c
		WHERE c.run_at = (
			SELECT MAX(c2.run_at) FROM data_integrity_checks c2 WHERE c2.scope = c.scope
		)`,
	},

	// 修正记录及其前置备份，来源：integrity_corrections + data_backups
	{
		Name:    "integrity_correction_audit",
		DropSQL: `DROP VIEW IF EXISTS integrity_correction_audit`,
		CreateSQL: `
		CREATE VIEW integrity_correction_audit AS
		SELECT
			ic.id,
			ic.check_run_id,
			ic.scope,
			ic.corrected_count,
			ic.timestamp AS corrected_at,
			b.id AS backup_id,
			b.backup_type,
			b.row_count AS backup_row_count,
			b.created_at AS backup_created_at
		FROM integrity_corrections ic
		LEFT JOIN data_backups b ON b.id = ic.backup_id`,
	},
}
