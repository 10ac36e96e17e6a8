package config

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var ErrReadOnlyBranch = errors.New("branch databases are read-only")

// ReadOnlyGuardPlugin rejects every write before it reaches the driver.
//
// Create/Update/Delete and Exec are always refused. Raw statements run through
// Row/Query must start with a read keyword.
type ReadOnlyGuardPlugin struct{}

func NewReadOnlyGuardPlugin() *ReadOnlyGuardPlugin { return &ReadOnlyGuardPlugin{} }

func (p *ReadOnlyGuardPlugin) Name() string { return "read_only_guard" }

func (p *ReadOnlyGuardPlugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Create().Before("gorm:create").Register("read_only_guard:create", rejectWrite); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("read_only_guard:update", rejectWrite); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("read_only_guard:delete", rejectWrite); err != nil {
		return err
	}
	// Raw is what db.Exec goes through.
	if err := db.Callback().Raw().Before("gorm:raw").Register("read_only_guard:raw", rejectWrite); err != nil {
		return err
	}
	if err := db.Callback().Row().Before("gorm:row").Register("read_only_guard:row", rejectNonRead); err != nil {
		return err
	}
	if err := db.Callback().Query().Before("gorm:query").Register("read_only_guard:query", rejectNonRead); err != nil {
		return err
	}
	return nil
}

func rejectWrite(db *gorm.DB) {
	if db == nil || db.Statement == nil {
		return
	}
	_ = db.AddError(ErrReadOnlyBranch)
}

func rejectNonRead(db *gorm.DB) {
	if db == nil || db.Statement == nil {
		return
	}
	// built lazily by gorm:query for model queries, which are always SELECTs
	sql := db.Statement.SQL.String()
	if strings.TrimSpace(sql) == "" {
		return
	}
	if !IsReadStatement(sql) {
		_ = db.AddError(ErrReadOnlyBranch)
	}
}

var readKeywords = []string{"SELECT", "WITH", "SHOW", "DESCRIBE", "DESC", "EXPLAIN"}

// IsReadStatement reports whether sql starts with a read-only keyword.
// Multiple statements are refused.
func IsReadStatement(sql string) bool {
	s := strings.TrimSpace(sql)
	s = strings.TrimRight(s, "; \t\r\n")
	if strings.Contains(s, ";") {
		return false
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return false
	}
	first := strings.ToUpper(strings.TrimLeft(fields[0], "("))
	for _, kw := range readKeywords {
		if first == kw {
			return true
		}
	}
	return false
}
