package repository

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"auction-engine/internal/models"
)

var sqliteSeq atomic.Int64

// openTestDB opens a private in-memory sqlite database with the schema migrated
func openTestDB(t *testing.T) *GormRepo {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, sqliteSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	repo := NewGormRepo(db)
	require.NoError(t, repo.Migrate(context.Background()))
	return repo
}

func TestGormRepo_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) (AuctionDB, func(models.User)) {
		repo := openTestDB(t)
		return repo, func(u models.User) {
			require.NoError(t, repo.AddUser(context.Background(), u))
		}
	})
}

func TestMySQLOptions_DSN(t *testing.T) {
	t.Parallel()

	dsn := MySQLOptions{User: "auction", Password: "secret", Addr: "127.0.0.1:3306", Database: "auctions"}.DSN()
	require.True(t, strings.HasPrefix(dsn, "auction:secret@tcp(127.0.0.1:3306)/auctions?"))
	require.Contains(t, dsn, "parseTime=true")
	require.Contains(t, dsn, "charset=utf8mb4")
}
