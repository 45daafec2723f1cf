/*
 * @Description: 数据库连接管理 (支持多种数据库)
 * @Author: photox
 * @Date: 2025-10-04 10:09:46
 * @LastEditTime: 2025-10-21 16:00:31
 * @LastEditors: photox
 */
package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/photox-team/photox-app/pkg/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DBType 规范化配置中的数据库类型，未配置时使用 sqlite
func DBType(cfg *config.Config) string {
	switch t := cfg.GetString(config.KeyDBType); t {
	case "", "sqlite", "sqlite3":
		return "sqlite"
	default:
		return t
	}
}

// Dialect 把数据库类型映射为 ent 方言名
func Dialect(dbType string) (string, error) {
	switch dbType {
	case "mysql":
		return dialect.MySQL, nil
	case "postgres":
		return dialect.Postgres, nil
	case "sqlite", "sqlite3":
		return dialect.SQLite, nil
	default:
		return "", fmt.Errorf("不支持的数据库方言: %s", dbType)
	}
}

// SQLiteDSN 生成开启外键约束的 SQLite 连接串，事务一开始就获取写锁，
// 并发的读改写事务按 busy_timeout 排队而不是在升级锁时失败
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate", path)
}

// NewSQLDB 创建并返回一个标准的 *sql.DB 连接池
func NewSQLDB(cfg *config.Config) (*sql.DB, error) {
	driver := DBType(cfg)

	var dsn string
	var driverName string

	dbUser := cfg.GetString(config.KeyDBUser)
	dbPass := cfg.GetString(config.KeyDBPassword)
	dbHost := cfg.GetString(config.KeyDBHost)
	dbPort := cfg.GetString(config.KeyDBPort)
	dbName := cfg.GetString(config.KeyDBName)

	switch driver {
	case "mysql":
		driverName = "mysql"
		if dbUser == "" || dbHost == "" || dbPort == "" || dbName == "" {
			return nil, fmt.Errorf("MySQL 连接参数不完整 (需要 User, Host, Port, Name)")
		}
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			dbUser, dbPass, dbHost, dbPort, dbName)
	case "postgres":
		driverName = "postgres"
		if dbUser == "" || dbHost == "" || dbPort == "" || dbName == "" {
			return nil, fmt.Errorf("PostgreSQL 连接参数不完整 (需要 User, Host, Port, Name)")
		}
		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			dbHost, dbPort, dbUser, dbPass, dbName)
	case "sqlite":
		driverName = "sqlite3"

		dataDir := "./data"
		if err := os.MkdirAll(dataDir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("无法创建 data 目录: %w", err)
		}
		finalDbName := dbName
		if finalDbName == "" {
			finalDbName = "photox.db"
		}
		finalPath := filepath.Join(dataDir, finalDbName)
		log.Printf("【提示】SQLite 数据库路径: %s\n", finalPath)
		dsn = SQLiteDSN(finalPath)
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s (支持: mysql, postgres, sqlite)", driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("打开 sql.DB 连接失败 (驱动: %s): %w", driverName, err)
	}

	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(100)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("无法 Ping 通数据库 (驱动: %s): %w", driverName, err)
	}

	log.Printf("✅ %s 数据库连接池创建成功！\n", driver)
	return db, nil
}

// NewDriver 用已有连接池创建 ent 的方言驱动，Debug 开启时打印 SQL
func NewDriver(db *sql.DB, dbType string, debug bool) (dialect.Driver, error) {
	name, err := Dialect(dbType)
	if err != nil {
		return nil, err
	}
	var drv dialect.Driver = entsql.OpenDB(name, db)
	if debug {
		drv = dialect.Debug(drv)
		log.Println("【数据库】Debug模式已开启，将打印所有执行的SQL语句。")
	}
	return drv, nil
}
