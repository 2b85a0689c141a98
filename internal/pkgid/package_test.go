package pkgid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portgraph/internal/pkgver"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Package
	}{
		{
			name:     "bare name",
			input:    "chromeos-chrome",
			expected: Package{Name: "chromeos-chrome"},
		},
		{
			name:     "category and name",
			input:    "chromeos-base/chromeos-chrome",
			expected: Package{Category: "chromeos-base", Name: "chromeos-chrome"},
		},
		{
			name:     "full cpv",
			input:    "sys-apps/portage-3.0.21",
			expected: Package{Category: "sys-apps", Name: "portage", Version: "3.0.21"},
		},
		{
			name:  "full cpv with revision",
			input: "sys-libs/glibc-2.33-r7",
			expected: Package{
				Category: "sys-libs", Name: "glibc", Version: "2.33", Revision: 7,
			},
		},
		{
			name:     "name and version without category",
			input:    "glibc-2.33-r7",
			expected: Package{Name: "glibc", Version: "2.33", Revision: 7},
		},
		{
			name:     "version with suffix",
			input:    "dev-lang/python-3.9_rc1",
			expected: Package{Category: "dev-lang", Name: "python", Version: "3.9_rc1"},
		},
		{
			name:     "hyphenated name without version",
			input:    "media-libs/mesa-img",
			expected: Package{Category: "media-libs", Name: "mesa-img"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, input := range []string{"", "cat/", "/name", "a/b/c", "cat/-1.2"} {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			var perr *InvalidPackageError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, input, perr.Input)
		})
	}
}

func TestViews(t *testing.T) {
	p := Package{Category: "sys-libs", Name: "glibc", Version: "2.33", Revision: 7}
	assert.Equal(t, "sys-libs/glibc", p.Atom())
	assert.Equal(t, "glibc-2.33-r7", p.NameVersion())
	assert.Equal(t, "2.33-r7", p.VersionRevision())
	assert.Equal(t, "sys-libs/glibc-2.33-r7", p.String())

	// Revision 0 is omitted from every rendered form.
	p0 := Package{Category: "sys-apps", Name: "dbus", Version: "1.12"}
	assert.Equal(t, "dbus-1.12", p0.NameVersion())
	assert.Equal(t, "1.12", p0.VersionRevision())
	assert.Equal(t, "sys-apps/dbus-1.12", p0.String())

	bare := Package{Name: "dbus"}
	assert.Equal(t, "dbus", bare.Atom())
	assert.Equal(t, "dbus", bare.String())
}

func TestEqual(t *testing.T) {
	a := Package{Category: "sys-apps", Name: "dbus", Version: "1.12"}
	b, err := Parse("sys-apps/dbus-1.12-r0")
	require.NoError(t, err)
	assert.True(t, a.Equal(b), "revision 0 and absent revision are the same identity")

	c := b.WithRevision(1)
	assert.False(t, a.Equal(c))
}

func TestCompare(t *testing.T) {
	older, err := Parse("sys-apps/dbus-1.12")
	require.NoError(t, err)
	newer, err := Parse("sys-apps/dbus-1.12-r2")
	require.NoError(t, err)

	got, err := older.Compare(newer)
	require.NoError(t, err)
	assert.Equal(t, pkgver.Less, got)

	got, err = newer.Compare(older)
	require.NoError(t, err)
	assert.Equal(t, pkgver.Greater, got)

	got, err = older.Compare(older)
	require.NoError(t, err)
	assert.Equal(t, pkgver.Equal, got)
}

func TestCompareDifferentAtoms(t *testing.T) {
	a, err := Parse("sys-apps/dbus-1.12")
	require.NoError(t, err)
	b, err := Parse("sys-libs/glibc-2.33")
	require.NoError(t, err)

	_, err = a.Compare(b)
	assert.Error(t, err, "ordering across atoms is undefined")
}

func TestWithRevisionImmutable(t *testing.T) {
	p := Package{Category: "sys-apps", Name: "dbus", Version: "1.12", Revision: 1}
	bumped := p.WithRevision(2)
	assert.Equal(t, 1, p.Revision, "original identity must not change")
	assert.Equal(t, 2, bumped.Revision)
	assert.Equal(t, "sys-apps/dbus-1.12-r2", bumped.String())
}
