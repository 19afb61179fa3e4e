package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"medrag/internal/domain"
)

const (
	sideDataTTL       = time.Hour
	sideDataCacheSize = 256
	sideDataKeyPrefix = "sidedata:"
)

// SideDataEnricher resolves per-document tables and image captions.
// Resolution order: process-local LRU, external cache, blob store. Blob
// failures degrade to an empty facet and never fail the pipeline.
type SideDataEnricher struct {
	local      *expirable.LRU[string, domain.SideData]
	cache      domain.Cache
	blobs      domain.BlobStore
	blobPrefix string
	log        *slog.Logger
}

// NewSideDataEnricher wires the two cache layers in front of the blob store.
func NewSideDataEnricher(extCache domain.Cache, blobs domain.BlobStore, blobPrefix string, log *slog.Logger) *SideDataEnricher {
	return &SideDataEnricher{
		local:      expirable.NewLRU[string, domain.SideData](sideDataCacheSize, nil, sideDataTTL),
		cache:      extCache,
		blobs:      blobs,
		blobPrefix: blobPrefix,
		log:        log,
	}
}

// Fetch returns the side data for a document. Concurrent requests for
// the same uncached document may both hit the blob store; the duplicate
// write is idempotent.
func (e *SideDataEnricher) Fetch(ctx context.Context, documentID string) domain.SideData {
	if side, ok := e.local.Get(documentID); ok {
		return side
	}

	key := sideDataKeyPrefix + documentID
	if data, ok := e.cache.Get(ctx, key); ok {
		if side, err := domain.DecodeSideData(data); err == nil {
			e.local.Add(documentID, *side)
			return *side
		}
	}

	side := domain.SideData{
		Tables: e.fetchTables(ctx, documentID),
		Images: e.fetchImages(ctx, documentID),
	}

	e.local.Add(documentID, side)
	if data, err := domain.EncodeJSON(side); err == nil {
		e.cache.Set(ctx, key, data, sideDataTTL)
	}
	return side
}

func (e *SideDataEnricher) fetchTables(ctx context.Context, documentID string) []domain.TableRecord {
	key := fmt.Sprintf("%s/%s/tables.json", e.blobPrefix, documentID)
	data, err := e.blobs.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrObjectNotFound) {
			e.log.Warn("could not fetch tables",
				slog.String("document_id", documentID),
				slog.String("error", err.Error()),
			)
		}
		return []domain.TableRecord{}
	}

	// The extraction stage writes either a bare array or a wrapper object.
	var tables []domain.TableRecord
	if err := json.Unmarshal(data, &tables); err == nil {
		return tables
	}

	var wrapper struct {
		Tables []domain.TableRecord `json:"tables"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		e.log.Warn("malformed tables object",
			slog.String("document_id", documentID),
			slog.String("error", err.Error()),
		)
		return []domain.TableRecord{}
	}
	if wrapper.Tables == nil {
		return []domain.TableRecord{}
	}
	return wrapper.Tables
}

func (e *SideDataEnricher) fetchImages(ctx context.Context, documentID string) []domain.ImageCaption {
	key := fmt.Sprintf("%s/%s/images.json", e.blobPrefix, documentID)
	data, err := e.blobs.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrObjectNotFound) {
			e.log.Warn("could not fetch image captions",
				slog.String("document_id", documentID),
				slog.String("error", err.Error()),
			)
		}
		return []domain.ImageCaption{}
	}

	var wrapper struct {
		Images []domain.ImageCaption `json:"images"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		e.log.Warn("malformed images object",
			slog.String("document_id", documentID),
			slog.String("error", err.Error()),
		)
		return []domain.ImageCaption{}
	}
	if wrapper.Images == nil {
		return []domain.ImageCaption{}
	}
	return wrapper.Images
}
