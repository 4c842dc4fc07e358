package domain

// Document is the remote record of the documents collection. The blob lives
// in the object store under Object.
type Document struct {
	DocumentID  string `json:"id" dynamodbav:"record_id"`
	ProfileID   string `json:"profile_id" dynamodbav:"profile_id"`
	FileName    string `json:"file_name" dynamodbav:"file_name"`
	ContentType string `json:"content_type" dynamodbav:"content_type"`
	Size        int64  `json:"size" dynamodbav:"size"`
	Object      string `json:"object" dynamodbav:"object"`
	Hash        string `json:"hash" dynamodbav:"hash"`
	Category    string `json:"category,omitempty" dynamodbav:"category"`
	Notes       string `json:"notes,omitempty" dynamodbav:"notes"`
}

type UploadDocumentRequest struct {
	FileName string `json:"file_name" validate:"required"`
	Base64   string `json:"base64" validate:"required,base64"`
	Category string `json:"category" validate:"omitempty,oneof=prescription lab_report imaging insurance other"`
	Notes    string `json:"notes"`
}

type UpdateDocumentRequest struct {
	FileName *string `json:"file_name"`
	Category *string `json:"category" validate:"omitempty,oneof=prescription lab_report imaging insurance other"`
	Notes    *string `json:"notes"`
}
