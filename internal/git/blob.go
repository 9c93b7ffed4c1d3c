package git

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-git/v5/utils/binary"
	"github.com/h2non/filetype"
)

const (
	mimeText   = "text/plain; charset=utf-8"
	mimeBinary = "application/octet-stream"
)

type Blob struct {
	Path string
	Hash string
	Kind EntryKind
	Size int64

	Content []byte
	// Truncated is set when Content holds fewer than Size bytes.
	Truncated bool
	Binary    bool
	MIME      string
}

// IsImage reports whether the sniffed content type is an image.
func (b *Blob) IsImage() bool {
	return filetype.IsImage(b.Content)
}

// ReadBlob reads the file at p. At most limit bytes are returned; limit <= 0
// reads the whole blob. Symlinks yield their target path.
func (s *Service) ReadBlob(rev *Revision, p string, limit int64) (*Blob, error) {
	if rev == nil {
		return nil, fmt.Errorf("revision not specified")
	}
	p, err := CleanPath(p)
	if err != nil {
		return nil, err
	}
	if p == "" {
		return nil, fmt.Errorf("%w: repository root", ErrNotFile)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := findEntry(rev.tree, p)
	if err != nil {
		return nil, err
	}
	kind := kindForMode(entry.Mode)
	if !kind.HasBlob() {
		return nil, fmt.Errorf("%w: %s is a %s", ErrNotFile, p, kind)
	}
	blob, err := s.repo.BlobObject(entry.Hash)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", p, err)
	}
	r, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", p, err)
	}
	defer r.Close()

	var src io.Reader = r
	if limit > 0 {
		src = io.LimitReader(r, limit)
	}
	content, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", p, err)
	}
	out := &Blob{
		Path:      p,
		Hash:      entry.Hash.String(),
		Kind:      kind,
		Size:      blob.Size,
		Content:   content,
		Truncated: int64(len(content)) < blob.Size,
	}
	out.Binary, out.MIME, err = sniff(content)
	if err != nil {
		return nil, fmt.Errorf("sniff %s: %w", p, err)
	}
	return out, nil
}

func sniff(content []byte) (bool, string, error) {
	isBinary, err := binary.IsBinary(bytes.NewReader(content))
	if err != nil {
		return false, "", err
	}
	if kind, err := filetype.Match(content); err == nil && kind != filetype.Unknown {
		return isBinary || !isTextMIME(kind.MIME.Value), kind.MIME.Value, nil
	}
	if isBinary {
		return true, mimeBinary, nil
	}
	return false, mimeText, nil
}

func isTextMIME(mime string) bool {
	return strings.HasPrefix(mime, "text/")
}
