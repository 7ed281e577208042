package seed

import (
	"fmt"
	"path/filepath"
	"testing"

	herrors "github.com/wisdom-pool/poolcheck/internal/errors"
	"github.com/wisdom-pool/poolcheck/internal/testutil"
)

func TestDefaultFixture(t *testing.T) {
	fx, err := DefaultFixture()
	testutil.RequireNoError(t, err)

	testutil.AssertEqual(t, "FE_TEST", fx.Pool.Title)
	testutil.AssertEqual(t, "Frontend testing pool with sample streams and drops", fx.Pool.Description)
	testutil.RequireEqual(t, 5, len(fx.Streams))

	wantDrops := []int{5, 7, 6, 8, 3}
	wantRead := []int{5, 4, 2, 0, 1}
	for i, s := range fx.Streams {
		testutil.AssertEqual(t, wantDrops[i], len(s.Drops), fmt.Sprintf("drops of %s", s.Title))
		testutil.AssertEqual(t, wantRead[i], s.Read, fmt.Sprintf("read of %s", s.Title))
		testutil.AssertNotEqual(t, "", s.Category)
	}
	testutil.AssertEqual(t, 29, fx.TotalDrops())
	testutil.AssertEqual(t, 12, fx.TotalReads())
	testutil.AssertContains(t, fx.Streams[3].Drops[7].Text, "Q#")
}

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	testutil.RequireFile(t, path, `pool:
  title: Small
streams:
  - title: Only
    read: 1
    drops:
      - title: One
        text: first
      - title: Two
        text: second
`)

	fx, err := LoadFixture(path)
	testutil.RequireNoError(t, err)
	testutil.AssertEqual(t, "Small", fx.Pool.Title)
	testutil.AssertEqual(t, 2, fx.TotalDrops())
	testutil.AssertEqual(t, "second", fx.Streams[0].Drops[1].Text)
}

func TestLoadFixture_Missing(t *testing.T) {
	_, err := LoadFixture(filepath.Join(t.TempDir(), "nope.yaml"))
	testutil.AssertErrorCode(t, err, herrors.CodeIOFileNotFound)
}

func TestLoadFixture_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    string
		field   string
	}{
		{
			name:    "not yaml",
			content: "pool: [unclosed",
			code:    herrors.CodeConfigInvalidValue,
			field:   "fixture",
		},
		{
			name:    "no pool title",
			content: "streams:\n  - title: s\n    drops:\n      - title: d\n",
			code:    herrors.CodeConfigMissingField,
			field:   "pool.title",
		},
		{
			name:    "no streams",
			content: "pool:\n  title: p\n",
			code:    herrors.CodeConfigMissingField,
			field:   "streams",
		},
		{
			name:    "stream without drops",
			content: "pool:\n  title: p\nstreams:\n  - title: s\n",
			code:    herrors.CodeConfigMissingField,
			field:   "streams[0].drops",
		},
		{
			name:    "read beyond drops",
			content: "pool:\n  title: p\nstreams:\n  - title: s\n    read: 2\n    drops:\n      - title: d\n",
			code:    herrors.CodeConfigInvalidValue,
			field:   "streams[0].read",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "seed.yaml")
			testutil.RequireFile(t, path, tt.content)

			_, err := LoadFixture(path)
			testutil.AssertErrorCode(t, err, tt.code)
			testutil.AssertErrorContains(t, err, tt.field)
		})
	}
}
