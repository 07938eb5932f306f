package postgresdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/gauss-network/gauss-wallet/internal/core/domain"
	"github.com/gauss-network/gauss-wallet/internal/core/ports"
	"github.com/gauss-network/gauss-wallet/internal/infrastructure/storage/db/events"
	"github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	log "github.com/sirupsen/logrus"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const (
	insecureDataSourceTemplate = "postgresql://%s:%s@%s:%d/%s?sslmode=disable"
	eventsBufferSize           = 10
	resetQuery                 = "TRUNCATE TABLE wallet_info"
)

type repoManager struct {
	pgxPool          *pgxpool.Pool
	walletRepository *walletRepositoryPg
	broker           *events.Broker
}

// NewRepoManager connects to the db described by dbConfig and applies any
// pending migration.
func NewRepoManager(dbConfig DbConfig) (ports.RepoManager, error) {
	dataSource := insecureDataSourceStr(dbConfig)

	pgxPool, err := connect(dataSource)
	if err != nil {
		return nil, err
	}

	if err = migrateDb(dataSource, dbConfig.MigrationSourceURL); err != nil {
		pgxPool.Close()
		return nil, err
	}

	broker := events.NewBroker("postgres wallet repository", eventsBufferSize)
	return &repoManager{
		pgxPool:          pgxPool,
		walletRepository: newWalletRepositoryPg(pgxPool, broker),
		broker:           broker,
	}, nil
}

// DbConfig holds the connection params of the postgres db. MigrationSourceURL
// is a golang-migrate source url, like file://path/to/migrations.
type DbConfig struct {
	DbUser             string
	DbPassword         string
	DbHost             string
	DbPort             int
	DbName             string
	MigrationSourceURL string
}

func (rm *repoManager) WalletInfoRepository() domain.WalletInfoRepository {
	return rm.walletRepository
}

func (rm *repoManager) RegisterHandlerForWalletEvent(
	eventType domain.WalletEventType, handler ports.WalletEventHandler,
) {
	rm.broker.Register(eventType, handler)
}

func (rm *repoManager) Reset() {
	if _, err := rm.pgxPool.Exec(
		context.Background(), resetQuery,
	); err != nil {
		log.Warnf("postgres: failed to reset: %s", err)
	}
}

func (rm *repoManager) Close() {
	rm.broker.Close()
	rm.pgxPool.Close()
}

func connect(dataSource string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.Connect(context.Background(), dataSource)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return pool, nil
}

// migrateDb applies every migration found at sourceUrl not yet applied.
func migrateDb(dataSource, sourceUrl string) error {
	m, err := migrate.New(sourceUrl, dataSource)
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrating db: %w", err)
	}
	return nil
}

func insecureDataSourceStr(dbConfig DbConfig) string {
	return fmt.Sprintf(
		insecureDataSourceTemplate,
		dbConfig.DbUser, dbConfig.DbPassword, dbConfig.DbHost, dbConfig.DbPort,
		dbConfig.DbName,
	)
}
