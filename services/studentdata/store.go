package studentdata

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

type StoreConfig struct {
	// path of a local sqlite database file, created if missing
	File string `json:"file"`
	// url of a remote libsql database, takes precedence over File
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func (config StoreConfig) OpenDB() (*sql.DB, error) {
	if config.Url != "" {
		url := config.Url
		if config.AuthToken != "" {
			url = fmt.Sprintf("%s?authToken=%s", url, config.AuthToken)
		}
		return sql.Open("libsql", url)
	}
	if config.File == "" {
		return nil, fmt.Errorf("a database path was not specified")
	}

	_, statErr := os.Stat(config.File)
	if os.IsNotExist(statErr) {
		f, err := os.Create(config.File)
		if err != nil {
			return nil, err
		}
		f.Close()
	}

	db, err := sql.Open("sqlite", config.File)
	if err != nil {
		return nil, err
	}
	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	return db, nil
}

// ErrNoSnapshot is returned by PullLatest when no snapshot has been
// stored yet for the user.
var ErrNoSnapshot = errors.New("no snapshot stored for user")

// Store persists graph snapshots so later runs can diff against them.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	_, err := db.Exec(schema)
	if err != nil {
		return Store{}, err
	}
	return Store{db: db}, nil
}

func (s Store) Push(ctx context.Context, user string, at time.Time, graph Graph) error {
	ctx, span := tracer.Start(ctx, "store:Push")
	defer span.End()

	span.SetAttributes(attribute.String("user", user))

	serialized, err := json.Marshal(graph)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to serialize graph")
		return err
	}

	_, err = s.db.ExecContext(
		ctx,
		"INSERT INTO snapshot (user, time, graph) VALUES (?, ?, ?)",
		user, at.Unix(), string(serialized),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to insert snapshot row")
		return err
	}
	return nil
}

// PullLatest returns the most recent snapshot for the user and the
// time it was taken.
func (s Store) PullLatest(ctx context.Context, user string) (Graph, time.Time, error) {
	ctx, span := tracer.Start(ctx, "store:PullLatest")
	defer span.End()

	span.SetAttributes(attribute.String("user", user))

	row := s.db.QueryRowContext(
		ctx,
		"SELECT time, graph FROM snapshot WHERE user = ? ORDER BY time DESC LIMIT 1",
		user,
	)

	var unix int64
	var serialized string
	err := row.Scan(&unix, &serialized)
	if errors.Is(err, sql.ErrNoRows) {
		return Graph{}, time.Time{}, ErrNoSnapshot
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query latest snapshot")
		return Graph{}, time.Time{}, err
	}

	var graph Graph
	err = json.Unmarshal([]byte(serialized), &graph)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to deserialize graph")
		return Graph{}, time.Time{}, err
	}

	return graph, time.Unix(unix, 0), nil
}
