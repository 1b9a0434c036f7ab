package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"securedoc/internal/config"
	"securedoc/internal/model"
	"securedoc/internal/repository"
	"securedoc/internal/stamp"
	"securedoc/internal/storage"
)

var (
	ErrIDRequired   = errors.New("id is required")
	ErrNotFound     = errors.New("document not found")
	ErrExpired      = errors.New("document link expired")
	ErrNoFiles      = errors.New("no files uploaded")
	ErrTooManyFiles = errors.New("too many files")
	ErrShopRequired = errors.New("shop id is required for shop mode")
	ErrShopUnknown  = errors.New("shop does not exist")
	ErrNotOwner     = errors.New("not the document owner")
)

// Share modes: a public link or direct delivery to a registered shop.
const (
	ModeLink = "LINK"
	ModeShop = "SHOP"
)

// UploadFile is one file in an upload request.
type UploadFile struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
}

// UploadInput carries the sharing parameters common to all files in one
// upload. Identity is explicit input; nothing is read from ambient state.
type UploadInput struct {
	OwnerID        string
	OwnerEmail     string
	AllowedAction  model.AllowedAction
	ExpiresIn      int // minutes; 0 falls back to the configured default
	Mode           string
	ShopID         string
	SenderName     string
	WatermarkStyle model.WatermarkStyle
}

// UploadResult is the service-level DTO for a completed upload.
type UploadResult struct {
	Documents []model.Document `json:"files"`
	Link      string           `json:"link,omitempty"`
	Message   string           `json:"message,omitempty"`
}

// DocumentService defines the use cases for sharing and viewing documents.
type DocumentService interface {
	// Upload stores each file's bytes in object storage and creates its
	// metadata record with a fresh secure identifier and expiry. Storage is
	// rolled back for a file whose DB save fails.
	Upload(ctx context.Context, files []UploadFile, in UploadInput) (*UploadResult, error)

	// View returns the document's metadata for a viewing attempt. An
	// unknown identifier maps to ErrNotFound, an expired one to ErrExpired.
	View(ctx context.Context, secureID string) (*model.Document, error)

	// Render returns the watermarked raster copy of the document, the only
	// form in which document pixels are served. Fails with stamp.ErrRender
	// when the source cannot be decoded; there is no unmarked fallback.
	Render(ctx context.Context, secureID string) ([]byte, error)

	// Verify appends a visit record (viewer name + identity snapshot) to the
	// document's access log.
	Verify(ctx context.Context, secureID, name, snapshot string) error

	// OwnerLogs returns the sender's documents with access logs, newest first.
	OwnerLogs(ctx context.Context, ownerID string) ([]model.Document, error)

	// SourceURL returns a short-lived presigned URL for the original bytes.
	// Only the owning sender may fetch the unmarked original.
	SourceURL(ctx context.Context, secureID, ownerID string) (string, error)
}

type documentService struct {
	store storage.Storage
	repo  repository.DocumentRepository
	shops repository.ShopRepository
	cfg   config.SecurityConfig
	base  string // share link base URL
	now   func() time.Time
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, shops repository.ShopRepository, cfg config.SecurityConfig, shareBase string) DocumentService {
	return &documentService{
		store: store,
		repo:  repo,
		shops: shops,
		cfg:   cfg,
		base:  shareBase,
		now:   time.Now,
	}
}

func (s *documentService) Upload(ctx context.Context, files []UploadFile, in UploadInput) (*UploadResult, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if s.cfg.MaxUploadFiles > 0 && len(files) > s.cfg.MaxUploadFiles {
		return nil, ErrTooManyFiles
	}
	if in.Mode == ModeShop {
		if in.ShopID == "" {
			return nil, ErrShopRequired
		}
		if _, err := s.shops.FindByShopID(ctx, in.ShopID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrShopUnknown
			}
			return nil, err
		}
	}

	expiresIn := in.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = s.cfg.DefaultLifetimeMin
	}
	action := in.AllowedAction
	if action == "" {
		action = model.ActionPrint
	}
	style := in.WatermarkStyle
	if style == "" {
		style = model.WatermarkGhost
	}
	sender := in.SenderName
	if sender == "" {
		sender = "Anonymous"
	}

	result := &UploadResult{}
	for _, f := range files {
		doc, err := s.uploadOne(ctx, f, in, action, style, sender, expiresIn)
		if err != nil {
			return nil, err
		}
		result.Documents = append(result.Documents, *doc)
	}

	if in.Mode == ModeShop {
		result.Message = fmt.Sprintf("Sent to %s successfully!", in.ShopID)
	} else {
		result.Link = fmt.Sprintf("%s/%s", s.base, result.Documents[0].SecureID)
	}
	return result, nil
}

func (s *documentService) uploadOne(ctx context.Context, f UploadFile, in UploadInput, action model.AllowedAction, style model.WatermarkStyle, sender string, expiresIn int) (*model.Document, error) {
	// Generate filename using UUID + extension
	ext := filepath.Ext(f.Filename)
	genName := uuid.New().String() + ext
	key := filepath.ToSlash(filepath.Join("documents", genName))

	objInfo, err := s.store.Put(ctx, key, f.Reader, storage.PutObjectOptions{
		Size:        f.Size,
		ContentType: f.ContentType,
		Metadata: map[string]string{
			"original-filename": f.Filename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	now := s.now().UTC()
	shopID := ""
	if in.Mode == ModeShop {
		shopID = in.ShopID
	}
	doc := &model.Document{
		ID:             uuid.New().String(),
		SecureID:       uuid.New().String(),
		OriginalName:   f.Filename,
		StoragePath:    objInfo.Key,
		Size:           objInfo.Size,
		ContentType:    objInfo.ContentType,
		OwnerID:        in.OwnerID,
		OwnerEmail:     in.OwnerEmail,
		AllowedAction:  action,
		ExpiresIn:      expiresIn,
		ExpireAt:       now.Add(time.Duration(expiresIn) * time.Minute),
		ReceiverShopID: shopID,
		SenderName:     sender,
		WatermarkStyle: style,
		CreatedAt:      now,
	}
	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		// Rollback: delete the object from storage
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return stored, nil
}

// View returns an unexpired document by secure identifier.
func (s *documentService) View(ctx context.Context, secureID string) (*model.Document, error) {
	if secureID == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindBySecureID(ctx, secureID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if doc.Expired(s.now()) {
		return nil, ErrExpired
	}
	return doc, nil
}

// Render fetches the original bytes and burns the provenance mark.
func (s *documentService) Render(ctx context.Context, secureID string) ([]byte, error) {
	doc, err := s.View(ctx, secureID)
	if err != nil {
		return nil, err
	}
	obj, _, err := s.store.Get(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("fetch source bytes: %w", err)
	}
	defer obj.Close()
	src, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read source bytes: %w", err)
	}
	return stamp.Render(src, stamp.Options{
		Style:          doc.WatermarkStyle,
		SenderName:     doc.SenderName,
		RecipientLabel: doc.RecipientLabel(),
		Now:            s.now(),
	})
}

// Verify appends a human visit record; expired or unknown links fail.
func (s *documentService) Verify(ctx context.Context, secureID, name, snapshot string) error {
	if _, err := s.View(ctx, secureID); err != nil {
		return err
	}
	entry := &model.AccessLogEntry{
		ID:         uuid.New().String(),
		AccessedBy: name,
		Snapshot:   snapshot,
		AccessedAt: s.now().UTC(),
	}
	if err := s.repo.AppendAccessLog(ctx, secureID, entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// OwnerLogs returns the sender's documents with their audit trails.
func (s *documentService) OwnerLogs(ctx context.Context, ownerID string) ([]model.Document, error) {
	if ownerID == "" {
		return nil, ErrIDRequired
	}
	return s.repo.ListByOwner(ctx, ownerID)
}

// SourceURL presigns the original object for its owner only.
func (s *documentService) SourceURL(ctx context.Context, secureID, ownerID string) (string, error) {
	if secureID == "" || ownerID == "" {
		return "", ErrIDRequired
	}
	doc, err := s.repo.FindBySecureID(ctx, secureID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	if doc.OwnerID != ownerID {
		return "", ErrNotOwner
	}
	return s.store.PresignGet(ctx, doc.StoragePath, 15*time.Minute)
}
