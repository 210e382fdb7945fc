package conversationrepo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/janhq/support-chat/internal/domain/chat"
	"github.com/janhq/support-chat/internal/domain/conversation"
	"github.com/janhq/support-chat/internal/infrastructure/database/dbschema"
	"github.com/janhq/support-chat/internal/infrastructure/metrics"
	"github.com/janhq/support-chat/internal/utils/platformerrors"
)

// GormRepository implements conversation.Repository on PostgreSQL.
type GormRepository struct {
	db *gorm.DB
}

var _ conversation.Repository = (*GormRepository)(nil)

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (repo *GormRepository) Find(ctx context.Context, identity string) (doc *chat.Document, err error) {
	defer func() { metrics.RecordDocstoreOp("postgres", "find", ignoreNotFound(err)) }()

	var entity dbschema.ConversationDocument
	err = repo.db.WithContext(ctx).
		Where("identity = ?", identity).
		First(&entity).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, conversation.ErrNotFound
	}
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to find conversation document", err, "cc387838-d73b-45c7-ad5e-679f83a87f56")
	}

	doc, err = entity.EtoD()
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "stored conversation document is corrupt", err, "09531710-55aa-49ed-bfcd-974ff4fb4f92")
	}
	return doc, nil
}

// Save upserts the document; an existing row is overwritten.
func (repo *GormRepository) Save(ctx context.Context, identity string, doc *chat.Document) (err error) {
	defer func() { metrics.RecordDocstoreOp("postgres", "save", err) }()

	entity, err := dbschema.NewSchemaConversationDocument(identity, doc)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeValidation, "failed to encode conversation document", err, "ce106483-e7b6-4a5b-a71a-2175d246bee4")
	}

	err = repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "identity"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"messages":   entity.Messages,
				"updated_at": gorm.Expr("NOW()"),
			}),
		}).
		Create(entity).
		Error
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError, "failed to upsert conversation document", err, "1b205b8c-185e-46e4-a406-fa67e3aad43e")
	}
	return nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, conversation.ErrNotFound) {
		return nil
	}
	return err
}
