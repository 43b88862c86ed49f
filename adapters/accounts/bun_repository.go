package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/panyu/myblog/core"
	"github.com/panyu/myblog/ports"
)

// accountModel is the users table row
type accountModel struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            int64      `bun:"id,pk,autoincrement"`
	Username      string     `bun:"username,notnull,unique"`
	Password      string     `bun:"password,notnull"`
	Nickname      string     `bun:"nickname"`
	Email         string     `bun:"email,notnull,unique"`
	Avatar        string     `bun:"avatar"`
	Role          int        `bun:"role,notnull"`
	Status        int        `bun:"status,notnull"`
	LastLoginTime *time.Time `bun:"last_login_time"`
	LastLoginIP   string     `bun:"last_login_ip"`
	CreatedAt     time.Time  `bun:"create_time,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time  `bun:"update_time,nullzero,notnull,default:current_timestamp"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero"`
}

func (m *accountModel) toCore() *core.Account {
	return &core.Account{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.Password,
		Nickname:     m.Nickname,
		Email:        m.Email,
		Avatar:       m.Avatar,
		Role:         core.Role(m.Role),
		Status:       core.AccountStatus(m.Status),
		LastLoginAt:  m.LastLoginTime,
		LastLoginIP:  m.LastLoginIP,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func fromCore(a *core.Account) *accountModel {
	return &accountModel{
		ID:            a.ID,
		Username:      a.Username,
		Password:      a.PasswordHash,
		Nickname:      a.Nickname,
		Email:         a.Email,
		Avatar:        a.Avatar,
		Role:          int(a.Role),
		Status:        int(a.Status),
		LastLoginTime: a.LastLoginAt,
		LastLoginIP:   a.LastLoginIP,
	}
}

// Open connects to a sqlite database at dsn
func Open(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// BunRepository implements AccountRepository with bun
type BunRepository struct {
	db bun.IDB
}

// NewBunRepository creates a new repository
func NewBunRepository(db bun.IDB) *BunRepository {
	return &BunRepository{db: db}
}

var _ ports.AccountRepository = (*BunRepository)(nil)

// CreateSchema creates the users table when missing
func (r *BunRepository) CreateSchema(ctx context.Context) error {
	_, err := r.db.NewCreateTable().
		Model((*accountModel)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	return nil
}

func (r *BunRepository) FindByID(ctx context.Context, id int64) (*core.Account, error) {
	return r.findOne(ctx, "usr.id = ?", id)
}

func (r *BunRepository) FindByUsername(ctx context.Context, username string) (*core.Account, error) {
	return r.findOne(ctx, "usr.username = ?", username)
}

func (r *BunRepository) FindByEmail(ctx context.Context, email string) (*core.Account, error) {
	return r.findOne(ctx, "lower(usr.email) = lower(?)", email)
}

func (r *BunRepository) findOne(ctx context.Context, where string, arg any) (*core.Account, error) {
	m := new(accountModel)
	err := r.db.NewSelect().
		Model(m).
		Where(where, arg).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return m.toCore(), nil
}

func (r *BunRepository) Create(ctx context.Context, account *core.Account) error {
	m := fromCore(account)
	if _, err := r.db.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	account.ID = m.ID
	account.CreatedAt = m.CreatedAt
	account.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *BunRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := r.db.NewUpdate().
		Model((*accountModel)(nil)).
		Set("password = ?", passwordHash).
		Set("update_time = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return requireRow(res)
}

func (r *BunRepository) RecordLogin(ctx context.Context, id int64, at time.Time, ip string) error {
	res, err := r.db.NewUpdate().
		Model((*accountModel)(nil)).
		Set("last_login_time = ?", at).
		Set("last_login_ip = ?", ip).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrAccountNotFound
	}
	return nil
}
