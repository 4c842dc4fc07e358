package document

import "github.com/healthmate-sync/internal/domain"

// CreatePayload carries the blob itself so an offline upload can be replayed.
type CreatePayload struct {
	RecordID    string `json:"record_id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Hash        string `json:"hash"`
	Category    string `json:"category,omitempty"`
	Notes       string `json:"notes,omitempty"`
	Base64      string `json:"base64"`
}

type UpdatePayload struct {
	RecordID string                       `json:"record_id"`
	Fields   domain.UpdateDocumentRequest `json:"fields"`
}

type DeletePayload struct {
	RecordID string `json:"record_id"`
}

func (p CreatePayload) record(objectKey string) map[string]any {
	return map[string]any{
		"record_id":    p.RecordID,
		"file_name":    p.FileName,
		"content_type": p.ContentType,
		"size":         p.Size,
		"object":       objectKey,
		"hash":         p.Hash,
		"category":     p.Category,
		"notes":        p.Notes,
		"uploaded_at":  domain.ServerTimestamp,
		"updated_at":   domain.ServerTimestamp,
	}
}

func (p UpdatePayload) fields() map[string]any {
	out := map[string]any{"updated_at": domain.ServerTimestamp}
	if p.Fields.FileName != nil {
		out["file_name"] = *p.Fields.FileName
	}
	if p.Fields.Category != nil {
		out["category"] = *p.Fields.Category
	}
	if p.Fields.Notes != nil {
		out["notes"] = *p.Fields.Notes
	}
	return out
}
