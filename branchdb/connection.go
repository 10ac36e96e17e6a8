package branchdb

import (
	"context"
	"errors"

	"github.com/mmdatafocus/maintcost_backend/models"
	"gorm.io/gorm"
)

var ErrNilConnection = errors.New("branch connection is not open")

// ConnectionFactory opens one dedicated connection to a branch database.
type ConnectionFactory interface {
	Open(ctx context.Context, branch models.BranchConfig) (Conn, error)
}

// Conn is a single branch connection, owned by one execution.
type Conn interface {
	Query(ctx context.Context, sql string, args ...any) ([]models.Row, error)
	Close() error
}

// GormConn runs raw queries on a gorm handle and scans every row into a models.Row.
type GormConn struct {
	db *gorm.DB
}

func NewGormConn(db *gorm.DB) *GormConn {
	return &GormConn{db: db}
}

func (c *GormConn) Query(ctx context.Context, sql string, args ...any) ([]models.Row, error) {
	if c == nil || c.db == nil {
		return nil, ErrNilConnection
	}
	rows, err := c.db.WithContext(ctx).Raw(sql, args...).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []models.Row{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(models.Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GormConn) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
