package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachmentKey(t *testing.T) {
	key, err := AttachmentKey("bob", 42, "My CV.PDF")
	require.NoError(t, err)
	parts := strings.Split(key, "/")
	require.Len(t, parts, 3)
	assert.Equal(t, "bob", parts[0])
	assert.Equal(t, "42", parts[1])
	assert.True(t, strings.HasSuffix(parts[2], ".pdf"))
	assert.Len(t, strings.TrimSuffix(parts[2], ".pdf"), 36)

	other, err := AttachmentKey("bob", 42, "My CV.pdf")
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	_, err = AttachmentKey("bob", 42, "payload.exe")
	assert.Error(t, err)
	_, err = AttachmentKey("bob", 42, "noext")
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentType("a/1/x.pdf"))
	assert.Equal(t, "image/jpeg", ContentType("a/1/x.JPG"))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", ContentType("a/1/x.docx"))
	assert.Equal(t, "application/octet-stream", ContentType("a/1/x.bin"))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Put(ctx, "k", strings.NewReader("hello"), 5, "text/plain"))

	rc, err := s.Get(ctx, "k")
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "hello", string(b))

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, s.Len())
}
