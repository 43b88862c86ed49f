package ports

import (
	"context"
	"time"

	"github.com/panyu/myblog/core"
)

// AccountRepository is the user-record collaborator. Lookups return
// core.ErrAccountNotFound when nothing matches.
type AccountRepository interface {
	FindByID(ctx context.Context, id int64) (*core.Account, error)
	FindByUsername(ctx context.Context, username string) (*core.Account, error)
	FindByEmail(ctx context.Context, email string) (*core.Account, error)
	Create(ctx context.Context, account *core.Account) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	RecordLogin(ctx context.Context, id int64, at time.Time, ip string) error
}
