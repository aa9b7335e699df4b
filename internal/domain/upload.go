package domain

// UploadStatus tracks the multipart session state machine:
// INITIALIZED -> ACCEPTING_PARTS (repeatable) -> FINALIZING -> {FINALIZED | ABORTED}.
// The authoritative part list lives in the object store; this type exists
// so the API layer can report where a session is in its lifecycle.
type UploadStatus string

const (
	UploadInitialized    UploadStatus = "INITIALIZED"
	UploadAcceptingParts UploadStatus = "ACCEPTING_PARTS"
	UploadFinalizing     UploadStatus = "FINALIZING"
	UploadFinalized      UploadStatus = "FINALIZED"
	UploadAborted        UploadStatus = "ABORTED"
)

// UploadPart is one recorded part of a multipart session. Parts may arrive
// in any order; they are sorted strictly by PartNumber before finalize.
type UploadPart struct {
	PartNumber int32  `json:"partNumber"`
	ETag       string `json:"eTag"`
}

// UploadSession describes one in-flight multipart upload.
type UploadSession struct {
	UploadID  string       `json:"uploadId"`
	ObjectKey string       `json:"key"`
	Parts     []UploadPart `json:"parts,omitempty"`
	Status    UploadStatus `json:"status"`
}
