// Package documents attaches files to cases: blob write first, then the
// metadata row.
package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jomosautsem/lex/internal/storage"
	"github.com/jomosautsem/lex/pkg/logger"
	"github.com/jomosautsem/lex/pkg/models"
)

var (
	// ErrStorage: the blob write failed and nothing was recorded.
	ErrStorage = errors.New("Error al subir el archivo")
	// ErrDatabase: the blob exists but the row could not be inserted.
	ErrDatabase = errors.New("Error al registrar el documento")
	ErrNoFile   = errors.New("Debe seleccionar un archivo")
)

// File is an incoming upload.
type File struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

// Rows persists document metadata.
type Rows interface {
	Insert(ctx context.Context, row *models.DocumentRow) error
	Get(ctx context.Context, id string) (models.DocumentRow, error)
}

type Uploader struct {
	blobs storage.BlobStore
	rows  Rows
	node  *snowflake.Node
	rep   logger.Reporter
}

func NewUploader(blobs storage.BlobStore, rows Rows, node *snowflake.Node, rep logger.Reporter) *Uploader {
	if rep == nil {
		rep = logger.Nop{}
	}
	return &Uploader{blobs: blobs, rows: rows, node: node, rep: rep}
}

// Upload stores f under <caseID>/<id>_<name> and records it against the case.
//
// A failed blob write returns ErrStorage with no row written. A failed row
// insert returns ErrDatabase; the blob stays behind and is reported.
func (u *Uploader) Upload(ctx context.Context, caseID string, f File, docType models.DocType) (models.Document, error) {
	cid, err := uuid.Parse(caseID)
	if err != nil {
		return models.Document{}, models.ErrNotFound
	}
	name := BaseName(f.Name)
	if f.Body == nil || name == "" {
		return models.Document{}, ErrNoFile
	}
	if !docType.Valid() {
		docType = models.DocOther
	}

	key := ObjectKey(caseID, u.node.Generate().String(), name)
	if err := u.blobs.Put(ctx, key, f.Body, f.Size, f.ContentType); err != nil {
		return models.Document{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	link, err := u.blobs.URL(ctx, key)
	if err != nil {
		u.rep.Report("documents.orphan_blob", err, zap.String("key", key), zap.String("stage", "url"))
		return models.Document{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	row := models.DocumentRow{
		CaseID:     cid,
		Name:       name,
		Type:       docType,
		URL:        link,
		Size:       FormatSize(f.Size),
		StorageKey: key,
	}
	if err := u.rows.Insert(ctx, &row); err != nil {
		u.rep.Report("documents.orphan_blob", err, zap.String("key", key), zap.String("stage", "insert"))
		return models.Document{}, fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	return row.ToDocument(), nil
}

// ObjectKey builds the storage key: <caseID>/<uniq>_<filename>.
func ObjectKey(caseID, uniq, filename string) string {
	return caseID + "/" + uniq + "_" + filename
}

// FormatSize renders bytes as megabytes with two decimals, e.g. "1.00 MB".
func FormatSize(bytes int64) string {
	return fmt.Sprintf("%.2f MB", float64(bytes)/1024/1024)
}

// BaseName drops any client-supplied directory part from a file name.
func BaseName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	b := path.Base(name)
	if b == "." || b == "/" || b == ".." {
		return ""
	}
	return b
}
