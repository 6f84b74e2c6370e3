package service

import (
	"context"
	"io"
)

// EvidenceStorage stores transfer proofs and dispute evidence.
type EvidenceStorage interface {
	UploadFile(ctx context.Context, file io.Reader, fileType, folder string, isPublic bool) (string, error)
	GenerateSignedUploadURL(ctx context.Context, fileType, folder string) (string, string, error)
}
