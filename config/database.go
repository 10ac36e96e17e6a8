package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/mmdatafocus/maintcost_backend/branchdb"
	"github.com/mmdatafocus/maintcost_backend/models"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func init() {
	// Load env from .env
	godotenv.Load()
}

// BranchConnector opens one dedicated, single-connection gorm handle per call.
// It implements branchdb.ConnectionFactory.
type BranchConnector struct {
	logger *logrus.Logger
}

func NewBranchConnector(logger *logrus.Logger) *BranchConnector {
	if logger == nil {
		logger = GetLogger()
	}
	return &BranchConnector{logger: logger}
}

// BranchDSN builds the driver DSN with connect and read timeouts.
//
// When Host is "/cloudsql/<CONNECTION_NAME>" the connection goes through the
// Cloud SQL Auth Proxy unix socket.
func BranchDSN(branch models.BranchConfig) string {
	cfg := gomysql.NewConfig()
	cfg.User = branch.User
	cfg.Passwd = branch.Password
	cfg.DBName = branch.Database
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", branch.Host, branch.Port)
	if strings.HasPrefix(branch.Host, "/cloudsql/") {
		cfg.Net = "unix"
		cfg.Addr = branch.Host
	}
	cfg.Timeout = timeoutOr(branch.ConnectTimeout, branchdb.DefaultConnectTimeout)
	cfg.ReadTimeout = timeoutOr(branch.QueryTimeout, branchdb.DefaultQueryTimeout)
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

func (c *BranchConnector) Open(ctx context.Context, branch models.BranchConfig) (branchdb.Conn, error) {
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       BranchDSN(branch),
		SkipInitializeWithVersion: true,
	}), initConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	if err := InstallBranchPlugins(db, branch); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return branchdb.NewGormConn(db), nil
}

// InstallBranchPlugins adds tracing and the read-only guard to a branch handle.
func InstallBranchPlugins(db *gorm.DB, branch models.BranchConfig) error {
	if err := db.Use(otelgorm.NewPlugin(otelgorm.WithDBName(branch.Database))); err != nil {
		log.Printf("branch %s connected but failed to install otelgorm plugin: %v", branch.Code, err)
	}
	if err := db.Use(NewReadOnlyGuardPlugin()); err != nil {
		return fmt.Errorf("install read-only guard on %s: %w", branch.Code, err)
	}
	return nil
}

func timeoutOr(d time.Duration, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

// InitConfig Initialize Config
func initConfig() *gorm.Config {
	return &gorm.Config{
		Logger:                 initLog(),
		NamingStrategy:         initNamingStrategy(),
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	}
}

// InitLog Connection Log Configuration
func initLog() logger.Interface {
	level := logger.Error
	if v, _ := strconv.ParseBool(os.Getenv("GORM_DEBUG")); v {
		level = logger.Info
	}
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			Colorful:      false,
			LogLevel:      level,
			SlowThreshold: time.Second,
		},
	)
}

// InitNamingStrategy Init NamingStrategy
func initNamingStrategy() *schema.NamingStrategy {
	return &schema.NamingStrategy{
		SingularTable: false,
		TablePrefix:   "",
	}
}
