package document

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/healthmate-sync/internal/application/queue"
	"github.com/healthmate-sync/internal/application/syncengine"
	"github.com/healthmate-sync/internal/domain"
	"github.com/healthmate-sync/internal/pkg/id"
	"github.com/healthmate-sync/internal/pkg/validate"
)

type RecordStore interface {
	Create(ctx context.Context, collectionPath string, record map[string]any) (string, error)
	Update(ctx context.Context, path string, partial map[string]any) error
	Delete(ctx context.Context, path string) error
}

// ObjectStore holds document blobs.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType, fileName string) (string, error)
	Delete(ctx context.Context, key string) error
}

type Gate interface {
	IsOnline(ctx context.Context) bool
}

type Service interface {
	Upload(ctx context.Context, profileID string, req domain.UploadDocumentRequest) (*domain.Document, domain.Outcome, error)
	Update(ctx context.Context, profileID, documentID string, req domain.UpdateDocumentRequest) (domain.Outcome, error)
	Delete(ctx context.Context, profileID, documentID string) (domain.Outcome, error)

	ApplyNow(ctx context.Context, profileID string, p CreatePayload) error
	ApplyUpdateNow(ctx context.Context, profileID string, p UpdatePayload) error
	ApplyDeleteNow(ctx context.Context, profileID string, p DeletePayload) error

	Apply(ctx context.Context, entry domain.QueueEntry) error
}

type service struct {
	store    RecordStore
	objects  ObjectStore
	queue    *queue.Queue
	gate     Gate
	dispatch syncengine.Dispatch
}

func NewService(store RecordStore, objects ObjectStore, q *queue.Queue, gate Gate) Service {
	s := &service{store: store, objects: objects, queue: q, gate: gate}
	s.dispatch = syncengine.Dispatch{
		Create: s.applyCreateEntry,
		Update: s.applyUpdateEntry,
		Delete: s.applyDeleteEntry,
	}
	return s
}

// ObjectKey returns the blob key of a document.
func ObjectKey(profileID, documentID string) string {
	return fmt.Sprintf("documents/%s/%s", profileID, documentID)
}

func (s *service) Upload(ctx context.Context, profileID string, req domain.UploadDocumentRequest) (*domain.Document, domain.Outcome, error) {
	if err := validate.Struct(req); err != nil {
		return nil, "", err
	}
	decoded, err := base64.StdEncoding.DecodeString(req.Base64)
	if err != nil {
		return nil, "", fmt.Errorf("decode base64: %w", domain.ErrBadRequest)
	}
	safeName := sanitizeFilename(req.FileName)
	sum := sha256.Sum256(decoded)
	docID := id.New()
	d := &domain.Document{
		DocumentID:  docID,
		ProfileID:   profileID,
		FileName:    safeName,
		ContentType: contentTypeFromName(safeName),
		Size:        int64(len(decoded)),
		Object:      ObjectKey(profileID, docID),
		Hash:        hex.EncodeToString(sum[:]),
		Category:    req.Category,
		Notes:       req.Notes,
	}
	p := CreatePayload{
		RecordID:    d.DocumentID,
		FileName:    d.FileName,
		ContentType: d.ContentType,
		Size:        d.Size,
		Hash:        d.Hash,
		Category:    d.Category,
		Notes:       d.Notes,
		Base64:      req.Base64,
	}
	outcome := s.write(ctx, profileID, p.RecordID, domain.OpCreate, p, func() error {
		return s.ApplyNow(ctx, profileID, p)
	})
	return d, outcome, nil
}

func (s *service) Update(ctx context.Context, profileID, documentID string, req domain.UpdateDocumentRequest) (domain.Outcome, error) {
	if err := validate.Struct(req); err != nil {
		return "", err
	}
	if req.FileName != nil {
		safe := sanitizeFilename(*req.FileName)
		req.FileName = &safe
	}
	p := UpdatePayload{RecordID: documentID, Fields: req}

	var notFound error
	outcome := s.write(ctx, profileID, p.RecordID, domain.OpUpdate, p, func() error {
		err := s.ApplyUpdateNow(ctx, profileID, p)
		if errors.Is(err, domain.ErrNotFound) {
			notFound = err
			return nil
		}
		return err
	})
	if notFound != nil {
		return "", notFound
	}
	return outcome, nil
}

func (s *service) Delete(ctx context.Context, profileID, documentID string) (domain.Outcome, error) {
	if documentID == "" {
		return "", fmt.Errorf("document id required: %w", domain.ErrBadRequest)
	}
	p := DeletePayload{RecordID: documentID}
	return s.write(ctx, profileID, p.RecordID, domain.OpDelete, p, func() error {
		return s.ApplyDeleteNow(ctx, profileID, p)
	}), nil
}

func (s *service) write(ctx context.Context, profileID, recordID string, op domain.Operation, payload any, now func() error) domain.Outcome {
	switch {
	case s.queue.HasPending(ctx, profileID, recordID):
		slog.Debug("document has queued mutations, queueing behind them", "op", op, "record_id", recordID)
	case s.gate.IsOnline(ctx):
		err := now()
		if err == nil {
			return domain.OutcomeApplied
		}
		slog.Warn("immediate document write failed, queueing", "op", op, "profile_id", profileID, "err", err)
	}
	entry, res := s.queue.Enqueue(ctx, profileID, op, payload)
	if res != domain.Persisted {
		slog.Error("document mutation not persisted", "op", op, "profile_id", profileID, "entry_id", entry.EntryID)
	}
	return domain.OutcomeQueued
}

// ApplyNow uploads the blob, then creates the record pointing at it. Both
// writes are keyed by the document id, so a retry overwrites.
func (s *service) ApplyNow(ctx context.Context, profileID string, p CreatePayload) error {
	if p.RecordID == "" {
		return fmt.Errorf("create payload has no record id: %w", domain.ErrBadRequest)
	}
	data, err := base64.StdEncoding.DecodeString(p.Base64)
	if err != nil {
		return fmt.Errorf("decode base64: %w", domain.ErrBadRequest)
	}
	key := ObjectKey(profileID, p.RecordID)
	if _, err := s.objects.Upload(ctx, key, bytes.NewReader(data), p.ContentType, p.FileName); err != nil {
		return err
	}
	_, err = s.store.Create(ctx, domain.CollectionPath(profileID, domain.CollectionDocuments), p.record(key))
	return err
}

func (s *service) ApplyUpdateNow(ctx context.Context, profileID string, p UpdatePayload) error {
	if p.RecordID == "" {
		return fmt.Errorf("update payload has no record id: %w", domain.ErrBadRequest)
	}
	return s.store.Update(ctx, domain.RecordPath(profileID, domain.CollectionDocuments, p.RecordID), p.fields())
}

// ApplyDeleteNow removes the record, then the blob. A failed blob delete
// leaves an orphaned blob, never a dangling record.
func (s *service) ApplyDeleteNow(ctx context.Context, profileID string, p DeletePayload) error {
	if p.RecordID == "" {
		return fmt.Errorf("delete payload has no record id: %w", domain.ErrBadRequest)
	}
	if err := s.store.Delete(ctx, domain.RecordPath(profileID, domain.CollectionDocuments, p.RecordID)); err != nil {
		return err
	}
	return s.objects.Delete(ctx, ObjectKey(profileID, p.RecordID))
}

func (s *service) Apply(ctx context.Context, entry domain.QueueEntry) error {
	return s.dispatch.Apply(ctx, entry)
}

func (s *service) applyCreateEntry(ctx context.Context, entry domain.QueueEntry) error {
	var p CreatePayload
	if err := json.Unmarshal(entry.Payload, &p); err != nil {
		return fmt.Errorf("decode create payload %s: %w", entry.EntryID, err)
	}
	return s.ApplyNow(ctx, entry.ProfileID, p)
}

func (s *service) applyUpdateEntry(ctx context.Context, entry domain.QueueEntry) error {
	var p UpdatePayload
	if err := json.Unmarshal(entry.Payload, &p); err != nil {
		return fmt.Errorf("decode update payload %s: %w", entry.EntryID, err)
	}
	return s.ApplyUpdateNow(ctx, entry.ProfileID, p)
}

func (s *service) applyDeleteEntry(ctx context.Context, entry domain.QueueEntry) error {
	var p DeletePayload
	if err := json.Unmarshal(entry.Payload, &p); err != nil {
		return fmt.Errorf("decode delete payload %s: %w", entry.EntryID, err)
	}
	return s.ApplyDeleteNow(ctx, entry.ProfileID, p)
}

func contentTypeFromName(filename string) string {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".heic"):
		return "image/heic"
	case strings.HasSuffix(lower, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(lower, ".dcm"):
		return "application/dicom"
	default:
		return "application/octet-stream"
	}
}

// sanitizeFilename keeps the base name and replaces anything outside
// [A-Za-z0-9._-] so the name is safe as an object download name.
func sanitizeFilename(name string) string {
	name = path.Base(name)
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if result := b.String(); result != "" && result != "." {
		return result
	}
	return "_"
}
