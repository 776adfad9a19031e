package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	contractsmq "artfolio/contracts/mq"
	"artfolio/internal/model"
	"artfolio/pkg/otel"
	"artfolio/pkg/outbox"
	"artfolio/pkg/trace"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ProjectRepository 把每个用户的项目存成 JSONB 文档，写操作与 outbox 事件同事务提交
type ProjectRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	feed   *ChangeFeed
	logger *zap.Logger
}

func NewProjectRepository(db *pgxpool.Pool, outboxRepo *outbox.Repository, feed *ChangeFeed, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{
		db:     db,
		outbox: outboxRepo,
		feed:   feed,
		logger: logger,
	}
}

// LoadAll 按创建时间返回用户的全部项目
func (r *ProjectRepository) LoadAll(ctx context.Context, uid string) ([]model.Project, error) {
	query := `
        SELECT id, document
        FROM projects
        WHERE uid = $1
        ORDER BY created_date ASC, id ASC
    `
	projects := []model.Project{}

	err := otel.Query(ctx, "select", "projects", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, uid)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var id string
			var raw []byte
			if err := rows.Scan(&id, &raw); err != nil {
				return err
			}
			p, err := decodeProject(id, raw)
			if err != nil {
				return err
			}
			projects = append(projects, p)
		}
		return rows.Err()
	})
	if err != nil {
		r.logger.Error("Failed to load projects", zap.String("uid", uid), zap.Error(err))
		return nil, err
	}
	return projects, nil
}

// Create 写入新项目，id 由调用方分配
func (r *ProjectRepository) Create(ctx context.Context, uid string, p model.Project) error {
	doc, err := json.Marshal(p.Document())
	if err != nil {
		return err
	}

	query := `
        INSERT INTO projects (id, uid, created_date, document, updated_at)
        VALUES ($1, $2, $3, $4, NOW())
    `
	err = r.inTx(ctx, "insert", func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, query, p.ID, uid, p.Date, doc); err != nil {
			return err
		}
		snapshot := p.Clone()
		return r.insertEvent(ctx, tx, contractsmq.RoutingKeyProjectCreated, uid, p.ID, &snapshot)
	})
	if err != nil {
		r.logger.Error("Failed to create project", zap.String("uid", uid), zap.String("project_id", p.ID), zap.Error(err))
		return err
	}

	r.notify(ctx, uid, p.ID)
	return nil
}

// Upsert 合并写入：顶层字段覆盖，未出现的字段保留
func (r *ProjectRepository) Upsert(ctx context.Context, uid, projectID string, doc model.ProjectDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO projects (id, uid, created_date, document, updated_at)
        VALUES ($1, $2, $3, $4, NOW())
        ON CONFLICT (uid, id) DO UPDATE
        SET document = projects.document || EXCLUDED.document,
            updated_at = NOW()
        RETURNING document
    `
	err = r.inTx(ctx, "upsert", func(ctx context.Context, tx pgx.Tx) error {
		var merged []byte
		if err := tx.QueryRow(ctx, query, projectID, uid, doc.Date, raw).Scan(&merged); err != nil {
			return err
		}
		p, err := decodeProject(projectID, merged)
		if err != nil {
			return err
		}
		return r.insertEvent(ctx, tx, contractsmq.RoutingKeyProjectSaved, uid, projectID, &p)
	})
	if err != nil {
		r.logger.Error("Failed to upsert project", zap.String("uid", uid), zap.String("project_id", projectID), zap.Error(err))
		return err
	}

	r.notify(ctx, uid, projectID)
	return nil
}

// Delete 硬删除，幂等；文档已不存在时不写事件
func (r *ProjectRepository) Delete(ctx context.Context, uid, projectID string) error {
	query := `DELETE FROM projects WHERE uid = $1 AND id = $2`

	deleted := false
	err := r.inTx(ctx, "delete", func(ctx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, uid, projectID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		deleted = true
		return r.insertEvent(ctx, tx, contractsmq.RoutingKeyProjectDeleted, uid, projectID, nil)
	})
	if err != nil {
		r.logger.Warn("Failed to delete project", zap.String("uid", uid), zap.String("project_id", projectID), zap.Error(err))
		return err
	}
	if !deleted {
		r.logger.Info("Project already deleted", zap.String("uid", uid), zap.String("project_id", projectID))
		return nil
	}

	r.notify(ctx, uid, projectID)
	return nil
}

// Subscribe 每次变更后推送完整集合
func (r *ProjectRepository) Subscribe(ctx context.Context, uid string) (<-chan []model.Project, error) {
	if r.feed == nil {
		return nil, fmt.Errorf("change feed not configured")
	}
	return r.feed.Subscribe(ctx, uid, r.LoadAll)
}

func (r *ProjectRepository) inTx(ctx context.Context, operation string, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return otel.Query(ctx, operation, "projects", func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		if err := fn(ctx, tx); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
}

func (r *ProjectRepository) insertEvent(ctx context.Context, tx pgx.Tx, routingKey, uid, projectID string, p *model.Project) error {
	payload := contractsmq.ProjectChangedPayload{
		EventID:    uuid.NewString(),
		UID:        uid,
		ProjectID:  projectID,
		Project:    p,
		OccurredAt: time.Now().UTC(),
		TraceID:    trace.FromContext(ctx),
	}
	return outbox.InsertEventInTx(ctx, tx, r.outbox, contractsmq.AggregateTypeProject, projectID, routingKey, payload)
}

func (r *ProjectRepository) notify(ctx context.Context, uid, projectID string) {
	if r.feed == nil {
		return
	}
	if err := r.feed.Notify(ctx, uid, projectID); err != nil {
		r.logger.Warn("Failed to publish change notice", zap.String("uid", uid), zap.Error(err))
	}
}

func decodeProject(id string, raw []byte) (model.Project, error) {
	var doc model.ProjectDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return model.Project{}, fmt.Errorf("decode project %s: %w", id, err)
	}
	return model.FromDocument(id, doc), nil
}
