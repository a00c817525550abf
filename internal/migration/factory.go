package migration

import (
	"fmt"

	appconfig "github.com/BaSui01/scripturerag/config"
)

// DefaultMigrationsTable 版本表名，避免与宿主库中其他应用的 schema_migrations 冲突
const DefaultMigrationsTable = "sr_schema_migrations"

// NewMigratorFromConfig 根据应用配置创建迁移器（仅 snapshot.backend=database 时有意义）
func NewMigratorFromConfig(cfg *appconfig.Config) (*DefaultMigrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	return NewMigratorFromDatabaseConfig(cfg.Database)
}

// NewMigratorFromDatabaseConfig 根据数据库配置创建迁移器
func NewMigratorFromDatabaseConfig(dbCfg appconfig.DatabaseConfig) (*DefaultMigrator, error) {
	dbType, err := ParseDatabaseType(dbCfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("invalid database type: %w", err)
	}

	return NewMigrator(&Config{
		DatabaseType: dbType,
		DatabaseURL:  DatabaseURLFromConfig(dbType, dbCfg),
		TableName:    DefaultMigrationsTable,
	})
}

// DatabaseURLFromConfig 按方言把数据库配置转成 golang-migrate 使用的连接串
func DatabaseURLFromConfig(dbType DatabaseType, dbCfg appconfig.DatabaseConfig) string {
	switch dbType {
	case DatabaseTypePostgres:
		return BuildDatabaseURL(dbType, dbCfg.Host, dbCfg.Port, dbCfg.Name, dbCfg.User, dbCfg.Password, dbCfg.SSLMode)
	case DatabaseTypeMySQL:
		return BuildDatabaseURL(dbType, dbCfg.Host, dbCfg.Port, dbCfg.Name, dbCfg.User, dbCfg.Password, "")
	case DatabaseTypeSQLite:
		// sqlite 的 Name 即文件路径
		return BuildDatabaseURL(dbType, "", 0, dbCfg.Name, "", "", "")
	default:
		return ""
	}
}

// NewMigratorFromURL 由类型字符串和连接串创建迁移器
func NewMigratorFromURL(dbType, dbURL string) (*DefaultMigrator, error) {
	dt, err := ParseDatabaseType(dbType)
	if err != nil {
		return nil, err
	}

	return NewMigrator(&Config{
		DatabaseType: dt,
		DatabaseURL:  dbURL,
		TableName:    DefaultMigrationsTable,
	})
}
