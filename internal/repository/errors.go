package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrRejected 表示数据本身被数据库拒绝（数据异常或违反约束），原样重试不会成功
var ErrRejected = errors.New("数据被数据库拒绝")

// rejected 把数据异常（22）和完整性约束（23）类的错误包装为 ErrRejected，其余错误原样返回
func rejected(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 {
		switch pgErr.Code[:2] {
		case "22", "23":
			return fmt.Errorf("%w: %w", ErrRejected, err)
		}
	}
	return err
}
