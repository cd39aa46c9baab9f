package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

func (s *DB) updateManyToMany(ctx context.Context, tableName, parentKey, childKey string, parentID int, children []int) error {
	return s.InTransaction(ctx, func(tx *DB) error {
		// Naively delete all associations, then add them back
		if _, err := tx.conn.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = $1", tableName, parentKey), parentID); err != nil {
			return err
		}

		rows := make([][]any, 0, len(children))
		for _, childID := range children {
			rows = append(rows, []any{parentID, childID})
		}

		if _, err := tx.conn.CopyFrom(ctx, pgx.Identifier{tableName}, []string{parentKey, childKey}, pgx.CopyFromRows(rows)); err != nil {
			slog.WarnContext(ctx, "Could not rebuild association table", slog.Any("err", err), slog.String("table", tableName))
			return err
		}

		return nil
	})
}
