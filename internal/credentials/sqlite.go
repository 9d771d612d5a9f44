package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/qbotlabs/twitchkit/internal/helix"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const databaseRequestTimeout = 3 * time.Second

var tracer = otel.Tracer("github.com/qbotlabs/twitchkit/internal/credentials")

type credentialsCipher interface {
	Encrypt(credentials helix.Credentials) (string, error)
	Decrypt(base64Payload string) (helix.Credentials, error)
}

// SQLiteStorage keeps one encrypted credential row per channel.
type SQLiteStorage struct {
	db     *sql.DB
	cipher credentialsCipher
	logger *zap.Logger
}

// NewSQLiteStorage opens the database, optionally with user authentication,
// and makes sure the credentials table exists.
func NewSQLiteStorage(ctx context.Context, dataSourceName, username, password string, cipher credentialsCipher, logger *zap.Logger) (*SQLiteStorage, error) {
	if username != "" {
		dataSourceName = fmt.Sprintf("%s?_auth&_auth_user=%s&_auth_pass=%s&_auth_crypt=SHA384", dataSourceName, username, password)
	}

	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, errors.Join(errors.New("failed to open the database"), err)
	}

	ctx, cancel := context.WithTimeout(ctx, databaseRequestTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Join(errors.New("failed to reach the database"), err)
	}

	schema := "CREATE TABLE IF NOT EXISTS credentials (channel_name TEXT PRIMARY KEY, details TEXT NOT NULL);"
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, errors.Join(errors.New("failed to create the credentials table"), err)
	}

	return &SQLiteStorage{
		db:     db,
		cipher: cipher,
		logger: logger.Named("credentials"),
	}, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Load decrypts the credentials saved for the channel. ErrNotFound is
// returned, when the channel has no row yet.
func (s *SQLiteStorage) Load(ctx context.Context, channelName string) (helix.Credentials, error) {
	query := "SELECT details FROM credentials WHERE channel_name = ?;"

	ctx, span := tracer.Start(ctx, "load")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, databaseRequestTimeout)
	defer cancel()

	span.AddEvent("executing the query")
	row := s.db.QueryRowContext(ctx, query, channelName)

	var details string

	err := row.Scan(&details)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Ok, "no credentials were saved for the channel")
		return helix.Credentials{}, ErrNotFound
	}
	if err != nil {
		errMsg := "failed to copy the result to a struct"
		span.SetStatus(codes.Error, errMsg)
		span.RecordError(err)
		return helix.Credentials{}, errors.Join(errors.New(errMsg), err)
	}

	span.AddEvent("decrypting the credentials")
	credentials, err := s.cipher.Decrypt(details)
	if err != nil {
		errMsg := "failed to decrypt the credentials"
		span.SetStatus(codes.Error, errMsg)
		span.RecordError(err)
		return helix.Credentials{}, errors.Join(errors.New(errMsg), err)
	}

	span.SetStatus(codes.Ok, "successfully loaded the credentials")
	return credentials, nil
}

// Save encrypts the credentials and upserts them as the channel's row, so a
// refreshed token pair overwrites the stale one.
func (s *SQLiteStorage) Save(ctx context.Context, credentials helix.Credentials, channelName string) error {
	query := "INSERT INTO credentials (channel_name, details) VALUES (?, ?) ON CONFLICT (channel_name) DO UPDATE SET details = excluded.details;"

	ctx, span := tracer.Start(ctx, "save")
	defer span.End()

	span.AddEvent("encrypting the credentials")
	details, err := s.cipher.Encrypt(credentials)
	if err != nil {
		errMsg := "failed to encrypt the credentials"
		span.SetStatus(codes.Error, errMsg)
		span.RecordError(err)
		return errors.Join(errors.New(errMsg), err)
	}

	ctx, cancel := context.WithTimeout(ctx, databaseRequestTimeout)
	defer cancel()

	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		errMsg := "failed to create a prepared statement"
		span.SetStatus(codes.Error, errMsg)
		span.RecordError(err)
		return errors.Join(errors.New(errMsg), err)
	}
	defer stmt.Close()

	span.AddEvent("writing the credentials to the database")
	res, err := stmt.ExecContext(ctx, channelName, details)
	if err != nil {
		errMsg := "failed to execute a prepared statement"
		span.SetStatus(codes.Error, errMsg)
		span.RecordError(err)
		return errors.Join(errors.New(errMsg), err)
	}

	if rows, err := res.RowsAffected(); err != nil || rows == 0 {
		errMsg := "failed to write the credentials to the database"
		span.SetStatus(codes.Error, errMsg)
		span.RecordError(err)
		return errors.Join(errors.New(errMsg), err)
	}

	span.SetStatus(codes.Ok, "successfully saved the credentials")
	return nil
}
