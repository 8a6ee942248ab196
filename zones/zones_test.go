package zones

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inventory = `# landing zones
123456789012 cmsnonprod

210987654321 appaprod
345678901234 appanonprod
`

func TestParse(t *testing.T) {
	entries, err := Parse(inventory)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, Entry{AccountID: "123456789012", Name: "cmsnonprod"}, entries[0])
	assert.Equal(t, Entry{AccountID: "210987654321", Name: "appaprod"}, entries[1])
}

func TestParse_MalformedLine(t *testing.T) {
	_, err := Parse("123456789012 cmsnonprod extra")
	assert.Error(t, err)
}

func TestFetchURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(inventory))
	}))
	defer srv.Close()

	entries, err := FetchURL(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestFetchURL_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := FetchURL(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestFilterByEnvironment(t *testing.T) {
	entries, _ := Parse(inventory)

	nonprod := FilterByEnvironment(entries, "nonprod")
	require.Len(t, nonprod, 2)
	assert.Equal(t, "cmsnonprod", nonprod[0].Name)
	assert.Equal(t, "appanonprod", nonprod[1].Name)

	assert.Empty(t, FilterByEnvironment(entries, ""))
}

func TestFilterByName(t *testing.T) {
	entries, _ := Parse(inventory)

	kept := FilterByName(entries, []string{"appaprod", "nosuch"})
	require.Len(t, kept, 1)
	assert.Equal(t, "210987654321", kept[0].AccountID)
}

func TestParseOverride(t *testing.T) {
	e, ok := ParseOverride("sandbox:999988887777")
	require.True(t, ok)
	assert.Equal(t, Entry{AccountID: "999988887777", Name: "sandbox"}, e)

	_, ok = ParseOverride("cmsnonprod")
	assert.False(t, ok)
}
