package conversationrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/janhq/support-chat/internal/domain/chat"
	"github.com/janhq/support-chat/internal/domain/conversation"
	"github.com/janhq/support-chat/internal/infrastructure/metrics"
	"github.com/janhq/support-chat/internal/utils/platformerrors"
)

var conversationsBucket = []byte("conversations")

// BoltRepository keeps documents in a single-file BoltDB, keyed by identity.
type BoltRepository struct {
	db *bolt.DB
}

var _ conversation.Repository = (*BoltRepository)(nil)

// OpenBoltRepository opens (or creates) the database file at path.
func OpenBoltRepository(path string) (*BoltRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create bolt directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(conversationsBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bolt bucket: %w", err)
	}
	return &BoltRepository{db: db}, nil
}

func (repo *BoltRepository) Find(ctx context.Context, identity string) (doc *chat.Document, err error) {
	defer func() { metrics.RecordDocstoreOp("bolt", "find", ignoreNotFound(err)) }()

	var raw []byte
	err = repo.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(conversationsBucket).Get([]byte(identity)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to read conversation document", err, "2da3eed9-dec3-4fe8-a1e7-2af7c1e86764")
	}
	if raw == nil {
		return nil, conversation.ErrNotFound
	}

	doc = &chat.Document{}
	if err = json.Unmarshal(raw, doc); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "stored conversation document is corrupt", err, "8f84624c-76a4-4b09-bac4-f91f4edc83a9")
	}
	if doc.Messages == nil {
		doc.Messages = chat.Conversation{}
	}
	return doc, nil
}

func (repo *BoltRepository) Save(ctx context.Context, identity string, doc *chat.Document) (err error) {
	defer func() { metrics.RecordDocstoreOp("bolt", "save", err) }()

	raw, err := json.Marshal(doc)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeValidation, "failed to encode conversation document", err, "07eb0894-959b-4732-8fda-2a301faf3a92")
	}
	err = repo.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(conversationsBucket).Put([]byte(identity), raw)
	})
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to write conversation document", err, "fb61931e-0aac-4451-8f96-7d4beee78aaa")
	}
	return nil
}

func (repo *BoltRepository) Close() error {
	return repo.db.Close()
}
