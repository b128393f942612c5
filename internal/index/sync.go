package index

import (
	"log/slog"

	"github.com/starford/tutordocs/internal/checksum"
	"github.com/starford/tutordocs/internal/parser"
	"github.com/starford/tutordocs/internal/storage"
)

// Sync walks the content directory and brings the index up to date:
//   - new/changed pages are parsed and upserted
//   - pages removed from disk are deleted from the index
func Sync(db PageIndex, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List()
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Key] = struct{}{}

		if checksums[m.Key] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Key)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("page", m.Key), slog.String("error", err.Error()))
			continue
		}
		if err := IndexPage(db, m.Key, data); err != nil {
			logger.Warn("sync: index failed", slog.String("page", m.Key), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("page", m.Key))
		}
	}

	for k := range checksums {
		if _, ok := disk[k]; !ok {
			if err := db.DeletePage(k); err != nil {
				logger.Warn("sync: delete failed", slog.String("page", k), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("page", k))
			}
		}
	}

	return nil
}

// IndexPage parses data and upserts it into the index under key.
func IndexPage(db PageIndex, key string, data []byte) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	return db.UpsertPage(PageRow{
		Key:      key,
		Title:    res.Title,
		Summary:  res.Summary,
		Checksum: checksum.Sum(data),
	}, res.Body)
}
