package backup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestDecodeBSONStream(t *testing.T) {
	first, err := bson.Marshal(map[string]interface{}{"id": "a", "label": "Simple past"})
	require.NoError(t, err)
	second, err := bson.Marshal(map[string]interface{}{"id": "b", "label": "Negation"})
	require.NoError(t, err)

	rows, err := decodeBSONStream(append(first, second...))

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0]["id"])
	assert.Equal(t, "Negation", rows[1]["label"])
}

func TestDecodeBSONStreamEmpty(t *testing.T) {
	rows, err := decodeBSONStream(nil)

	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDecodeBSONStreamTruncated(t *testing.T) {
	doc, err := bson.Marshal(map[string]interface{}{"id": "a"})
	require.NoError(t, err)

	_, err = decodeBSONStream(doc[:len(doc)-2])

	assert.Error(t, err)
}

func TestObjectKeyLayout(t *testing.T) {
	now := time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "backups/2026/03/backup-x.zip", objectKey("", "backup-x.zip", now))
	assert.Equal(t, "archive/2026/03/backup-x.zip", objectKey("/archive/", "backup-x.zip", now))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "2.00 KB", formatSize(2048))
	assert.Equal(t, "3.00 MB", formatSize(3<<20))
}
