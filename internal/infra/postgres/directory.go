package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"classroom-quiz-service/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type classModel struct {
	bun.BaseModel `bun:"table:classes,alias:c"`

	ID           string `bun:"id,pk"`
	Title        string `bun:"title"`
	InstructorID string `bun:"instructor_id"`
}

type classStudentModel struct {
	bun.BaseModel `bun:"table:class_students,alias:cs"`

	ClassID   string `bun:"class_id,pk"`
	StudentID string `bun:"student_id,pk"`
}

type userModel struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID     string `bun:"id,pk"`
	Name   string `bun:"name"`
	Email  string `bun:"email"`
	Avatar string `bun:"avatar"`
	Role   string `bun:"role"`
}

// OpenBun opens a bun handle on the pgdriver connector.
func OpenBun(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// Directory reads class rosters and user profiles from Postgres.
type Directory struct {
	db *bun.DB
}

func NewDirectory(db *bun.DB) *Directory {
	return &Directory{db: db}
}

func (d *Directory) GetClass(ctx context.Context, classID string) (domain.Class, error) {
	var class classModel
	err := d.db.NewSelect().Model(&class).Where("c.id = ?", classID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Class{}, domain.ErrClassNotFound
	}
	if err != nil {
		return domain.Class{}, fmt.Errorf("load class: %w", err)
	}

	var members []classStudentModel
	err = d.db.NewSelect().Model(&members).Where("cs.class_id = ?", classID).OrderExpr("cs.student_id").Scan(ctx)
	if err != nil {
		return domain.Class{}, fmt.Errorf("load class roster: %w", err)
	}
	students := make([]string, 0, len(members))
	for _, m := range members {
		students = append(students, m.StudentID)
	}
	return domain.Class{
		ID:           class.ID,
		Title:        class.Title,
		InstructorID: class.InstructorID,
		StudentIDs:   students,
	}, nil
}

// GetUsers returns the known users among ids; unknown ids are omitted.
func (d *Directory) GetUsers(ctx context.Context, ids []string) (map[string]domain.User, error) {
	out := make(map[string]domain.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []userModel
	if err := d.db.NewSelect().Model(&users).Where("u.id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for _, u := range users {
		out[u.ID] = domain.User{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar, Role: domain.Role(u.Role)}
	}
	return out, nil
}

// PutClass upserts a class and replaces its roster.
func (d *Directory) PutClass(ctx context.Context, class domain.Class) error {
	return d.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		model := classModel{ID: class.ID, Title: class.Title, InstructorID: class.InstructorID}
		_, err := tx.NewInsert().Model(&model).
			On("CONFLICT (id) DO UPDATE").
			Set("title = EXCLUDED.title").
			Set("instructor_id = EXCLUDED.instructor_id").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("upsert class: %w", err)
		}
		if _, err := tx.NewDelete().Model((*classStudentModel)(nil)).Where("class_id = ?", class.ID).Exec(ctx); err != nil {
			return fmt.Errorf("clear roster: %w", err)
		}
		if len(class.StudentIDs) == 0 {
			return nil
		}
		members := make([]classStudentModel, 0, len(class.StudentIDs))
		for _, id := range class.StudentIDs {
			members = append(members, classStudentModel{ClassID: class.ID, StudentID: id})
		}
		if _, err := tx.NewInsert().Model(&members).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
			return fmt.Errorf("insert roster: %w", err)
		}
		return nil
	})
}

// PutUser upserts a user profile.
func (d *Directory) PutUser(ctx context.Context, user domain.User) error {
	model := userModel{ID: user.ID, Name: user.Name, Email: user.Email, Avatar: user.Avatar, Role: string(user.Role)}
	_, err := d.db.NewInsert().Model(&model).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("email = EXCLUDED.email").
		Set("avatar = EXCLUDED.avatar").
		Set("role = EXCLUDED.role").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}
