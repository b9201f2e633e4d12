package credstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/crypto"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/domain"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/logging"
)

// SQLStore is the reference Repository implementation over sqlx.
type SQLStore struct {
	db     *sqlx.DB
	master crypto.MasterKey
	log    logging.Logger
	newID  func() string
}

// Open opens (and migrates) a SQLStore against driverName/dsn. Pass
// "sqlite" with an in-memory or file DSN for local/dev/test use.
func Open(driverName, dsn string, master crypto.MasterKey, log logging.Logger, newID func() string) (*SQLStore, error) {
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	if log == nil {
		log = logging.Noop()
	}
	return &SQLStore{db: db, master: master, log: log, newID: newID}, nil
}

func (s *SQLStore) EncryptionKey() []byte { return []byte(s.master) }

// mapDBError converts a SQL error into the domain error vocabulary:
// sql.ErrNoRows becomes RowNotFound, a UNIQUE violation on the alias
// prefix becomes PrefixExists, and any other error is wrapped as
// BadRequest. It does not log.
func (s *SQLStore) mapDBError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return rowNotFound(what)
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") && strings.Contains(err.Error(), "prefix") {
		return domain.New(domain.KindPrefixExists, "alias prefix already exists")
	}
	return domain.Wrap(domain.KindBadRequest, "storage error: "+what, err)
}

func now() int64 { return time.Now().Unix() }

func unixToTime(u int64) time.Time { return time.Unix(u, 0).UTC() }
