// Package archive keeps pipeline transcripts in the object store.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/shelfchat/shelfchat/internal/observability"
	"github.com/shelfchat/shelfchat/internal/pipeline"
	"github.com/shelfchat/shelfchat/internal/storage"
)

const DefaultListLimit = 20

type Archive struct {
	objects storage.ObjectStore
	prefix  string
	logger  *slog.Logger
}

var _ pipeline.Archiver = (*Archive)(nil)

func New(objects storage.ObjectStore, prefix string, logger *slog.Logger) (*Archive, error) {
	if objects == nil {
		return nil, fmt.Errorf("object store is required")
	}
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = "transcripts"
	}
	if logger == nil {
		logger = observability.DiscardLogger()
	}
	return &Archive{objects: objects, prefix: prefix, logger: logger}, nil
}

func (a *Archive) Archive(ctx context.Context, run pipeline.Run) error {
	key, err := storage.BuildTranscriptPath(a.prefix, run.ID, run.StartedAt)
	if err != nil {
		return err
	}
	body, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	info, err := a.objects.Put(ctx, key, bytes.NewReader(body), int64(len(body)), storage.PutOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("store transcript: %w", err)
	}
	a.logger.DebugContext(ctx, "transcript archived", slog.String("run_id", run.ID), slog.String("key", info.Key))
	return nil
}

// List returns up to limit transcripts, newest first.
func (a *Archive) List(ctx context.Context, limit int) ([]pipeline.Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	infos, err := a.objects.List(ctx, a.prefix+"/")
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	sort.SliceStable(infos, func(i, j int) bool {
		if !infos[i].LastModified.Equal(infos[j].LastModified) {
			return infos[i].LastModified.After(infos[j].LastModified)
		}
		return infos[i].Key > infos[j].Key
	})
	if len(infos) > limit {
		infos = infos[:limit]
	}

	runs := make([]pipeline.Run, 0, len(infos))
	for _, info := range infos {
		run, err := a.read(ctx, info.Key)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// Get finds the transcript of run id. It returns storage.ErrObjectNotFound
// when no such run was archived.
func (a *Archive) Get(ctx context.Context, id string) (pipeline.Run, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, "/\\") {
		return pipeline.Run{}, storage.ErrObjectNotFound
	}
	infos, err := a.objects.List(ctx, a.prefix+"/")
	if err != nil {
		return pipeline.Run{}, fmt.Errorf("list transcripts: %w", err)
	}
	for _, info := range infos {
		if strings.HasSuffix(info.Key, "/"+id+".json") {
			return a.read(ctx, info.Key)
		}
	}
	return pipeline.Run{}, storage.ErrObjectNotFound
}

func (a *Archive) read(ctx context.Context, key string) (pipeline.Run, error) {
	reader, err := a.objects.Get(ctx, key)
	if err != nil {
		return pipeline.Run{}, fmt.Errorf("read transcript %q: %w", key, err)
	}
	defer func() { _ = reader.Close() }()

	var run pipeline.Run
	if err := json.NewDecoder(reader).Decode(&run); err != nil {
		return pipeline.Run{}, fmt.Errorf("decode transcript %q: %w", key, err)
	}
	return run, nil
}
