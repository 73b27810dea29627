// Package mongostore implements backfill.Store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/starford/schemafill/internal/backfill"
)

// Config holds the connection settings.
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// Store opens MongoDB connections bound to one database.
type Store struct {
	uri      string
	database string
	timeout  time.Duration
	logger   *slog.Logger
}

// New validates cfg and returns a Store. When cfg.Database is empty the
// database named in the connection string path is used.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cs, err := connstring.ParseAndValidate(cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("mongostore: parse uri: %w", err)
	}
	db := cfg.Database
	if db == "" {
		db = cs.Database
	}
	if db == "" {
		return nil, errors.New("mongostore: no database given and none in the connection string")
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Store{uri: cfg.URI, database: db, timeout: timeout, logger: logger}, nil
}

// Database returns the database the store is bound to.
func (s *Store) Database() string { return s.database }

// Connect implements backfill.Store. The connection is verified with a
// ping before it is returned.
func (s *Store) Connect(ctx context.Context) (backfill.Conn, error) {
	opts := options.Client().
		ApplyURI(s.uri).
		SetConnectTimeout(s.timeout).
		SetServerSelectionTimeout(s.timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}
	s.logger.Debug("mongostore: connected", slog.String("database", s.database))
	return &conn{client: client, db: client.Database(s.database)}, nil
}

type conn struct {
	client *mongo.Client
	db     *mongo.Database
}

// Probe lists the indexes of collection. MongoDB reports NamespaceNotFound
// for a collection that does not exist.
func (c *conn) Probe(ctx context.Context, collection string) error {
	cur, err := c.db.Collection(collection).Indexes().List(ctx)
	if err != nil {
		return fmt.Errorf("mongostore: list indexes of %s: %w", collection, err)
	}
	return cur.Close(ctx)
}

func (c *conn) Scan(ctx context.Context, collection string, fn func(backfill.Document) error) error {
	cur, err := c.db.Collection(collection).Find(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("mongostore: find: %w", err)
	}
	defer cur.Close(context.WithoutCancel(ctx))

	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return fmt.Errorf("mongostore: decode: %w", err)
		}
		if err := fn(normalize(raw)); err != nil {
			return err
		}
	}
	return cur.Err()
}

func (c *conn) Apply(ctx context.Context, collection string, updates []backfill.Update) (int64, error) {
	coll := c.db.Collection(collection)
	switch len(updates) {
	case 0:
		return 0, nil
	case 1:
		u := updates[0]
		res, err := coll.UpdateOne(ctx, bson.D{{Key: backfill.IDField, Value: u.ID}}, setDoc(u.Set))
		if err != nil {
			return 0, fmt.Errorf("mongostore: update %v: %w", u.ID, err)
		}
		return res.ModifiedCount, nil
	}

	writes := make([]mongo.WriteModel, 0, len(updates))
	for _, u := range updates {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: backfill.IDField, Value: u.ID}}).
			SetUpdate(setDoc(u.Set)))
	}
	res, err := coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true))
	if err != nil {
		var modified int64
		if res != nil {
			modified = res.ModifiedCount
		}
		return modified, fmt.Errorf("mongostore: bulk update: %w", err)
	}
	return res.ModifiedCount, nil
}

func (c *conn) Close(ctx context.Context) error {
	if err := c.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongostore: disconnect: %w", err)
	}
	return nil
}

func setDoc(set map[string]any) bson.D {
	fields := make(bson.D, 0, len(set))
	for k, v := range set {
		fields = append(fields, bson.E{Key: k, Value: v})
	}
	return bson.D{{Key: "$set", Value: fields}}
}

// normalize maps BSON undefined values to nil so the engine treats them
// like missing fields.
func normalize(raw bson.M) backfill.Document {
	doc := make(backfill.Document, len(raw))
	for k, v := range raw {
		if _, ok := v.(primitive.Undefined); ok {
			v = nil
		}
		doc[k] = v
	}
	return doc
}
