package shared

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePageDefaults(t *testing.T) {
	p := ParsePage(url.Values{})
	require.Equal(t, 1, p.Page)
	require.Equal(t, 20, p.PerPage)
	require.Equal(t, 20, p.Limit())
	require.Equal(t, 0, p.Offset())
}

func TestParsePageOffset(t *testing.T) {
	p := ParsePage(url.Values{"page": {"3"}, "per_page": {"25"}})
	require.Equal(t, 25, p.Limit())
	require.Equal(t, 50, p.Offset())
}

func TestParsePageIgnoresGarbageAndCaps(t *testing.T) {
	p := ParsePage(url.Values{"page": {"abc"}, "per_page": {"100000"}})
	require.Equal(t, 1, p.Page)
	require.Equal(t, 200, p.PerPage)

	p = ParsePage(url.Values{"page": {"-4"}, "per_page": {"0"}})
	require.Equal(t, 1, p.Page)
	require.Equal(t, 20, p.PerPage)
}
