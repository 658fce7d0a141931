package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/stevelr/kv-assets/internal/journal"
	"github.com/stevelr/kv-assets/internal/util"
)

func defaultJournalPath() string {
	return filepath.Join(util.ConfigDir, "journal.sqlite")
}

// ShowLog writes the most recent journal entries to w, newest first.
func ShowLog(ctx context.Context, w io.Writer, limit int) error {
	j, err := journal.Open(ctx, defaultJournalPath())
	if err != nil {
		return err
	}
	defer j.Close()

	rows, err := j.Recent(ctx, limit)
	if err != nil {
		return err
	}
	for _, row := range rows {
		status := "ok"
		if !row.OK {
			status = "failed: " + row.Detail
		}
		_, err = fmt.Fprintf(w, "%s  %-6s  %s  %s\n",
			row.CreatedAt.Format(time.RFC3339), row.Op, row.Key, status)
		if err != nil {
			return err
		}
	}
	return nil
}
