package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscussionColumn(t *testing.T) {
	in := Discussion{Responses: map[string]string{"legal": "AB"}, Complete: true}
	v, err := in.Value()
	require.NoError(t, err)

	var out Discussion
	require.NoError(t, out.Scan([]byte(v.(string))))
	assert.Equal(t, in, out)

	var fromString Discussion
	require.NoError(t, fromString.Scan(v))
	assert.Equal(t, in, fromString)

	assert.Error(t, out.Scan(42))
}

func TestDiscussionClone(t *testing.T) {
	d := &Discussion{Responses: map[string]string{"legal": "A"}}
	c := d.Clone()
	c.Responses["legal"] = "changed"
	assert.Equal(t, "A", d.Responses["legal"])

	var nilDiscussion *Discussion
	assert.Nil(t, nilDiscussion.Clone())
}

func TestMetadataColumn(t *testing.T) {
	var nilMeta Metadata
	v, err := nilMeta.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	m := Metadata{MetaFilename: "notes.txt", MetaSize: 5}
	v, err = m.Value()
	require.NoError(t, err)

	var out Metadata
	require.NoError(t, out.Scan(v))
	assert.Equal(t, "notes.txt", out.String(MetaFilename))
	assert.Equal(t, "", out.String(MetaSize))
	assert.Equal(t, "", out.String("missing"))
}

func TestDocumentDisplayName(t *testing.T) {
	folder := &Document{IsFolder: true, Metadata: Metadata{MetaName: "Board"}}
	file := &Document{Metadata: Metadata{MetaFilename: "minutes.txt"}}
	bare := &Document{}

	assert.Equal(t, "Board", folder.DisplayName())
	assert.Equal(t, "minutes.txt", file.DisplayName())
	assert.Equal(t, "", bare.DisplayName())
}
