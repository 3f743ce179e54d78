package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/classwork/internal/apperr"
)

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSStore(t.TempDir(), "https://lms.example/api/uploads/")
	require.NoError(t, err)

	key, err := s.Put(ctx, "/courses/go/notes.md", strings.NewReader("# notes"))
	require.NoError(t, err)
	assert.Equal(t, "courses/go/notes.md", key)
	assert.Equal(t, "https://lms.example/api/uploads/courses/go/notes.md", s.URL(key))

	rc, err := s.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "# notes", string(b))
}

func TestKeysCannotEscapeRoot(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSStore(t.TempDir(), "")
	require.NoError(t, err)

	for _, k := range []string{"../x", "a/../../x", "..\\x", "", "/"} {
		_, err := s.Put(ctx, k, strings.NewReader("x"))
		assert.True(t, apperr.Is(err, apperr.KindValidation), k)
		_, err = s.Get(ctx, k)
		assert.True(t, apperr.Is(err, apperr.KindValidation), k)
	}
}

func TestGetMissing(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), "")
	require.NoError(t, err)
	_, err = s.Get(context.Background(), "nope.txt")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestMaterialKey(t *testing.T) {
	k := MaterialKey("course 1", "../../My Notebook.ipynb")
	assert.True(t, strings.HasPrefix(k, "courses/course_1/"), k)
	assert.True(t, strings.HasSuffix(k, "-My_Notebook.ipynb"), k)
	_, err := CleanKey(k)
	assert.NoError(t, err)
	assert.NotEqual(t, k, MaterialKey("course 1", "../../My Notebook.ipynb"))
}

func TestCourseOf(t *testing.T) {
	c, ok := CourseOf(MaterialKey("course-go", "notes.md"))
	assert.True(t, ok)
	assert.Equal(t, "course-go", c)

	for _, k := range []string{MaterialKey("", "notes.md"), "notes.md", "courses/only-course", "other/c/file", "courses/../x/y", ""} {
		_, ok := CourseOf(k)
		assert.False(t, ok, k)
	}
}
