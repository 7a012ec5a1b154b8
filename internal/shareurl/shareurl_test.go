package shareurl

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

func TestEncode(t *testing.T) {
	got, err := Encode("https://example.com/search", State{Query: `status:Active label:"high priority"`, Mode: ModeRaw})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/search?mode=raw&q=status%3AActive+label%3A%22high+priority%22&v=1", got)
}

func TestEncode_DefaultsToVisual(t *testing.T) {
	got, err := Encode("https://example.com/", State{Query: "iteration:>3"})
	require.NoError(t, err)
	assert.Contains(t, got, "mode=visual")
}

func TestEncode_KeepsOtherParams(t *testing.T) {
	got, err := Encode("https://example.com/s?tab=runs&q=old&query=legacy", State{Query: "status:Done"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/s?mode=visual&q=status%3ADone&tab=runs&v=1", got)
}

func TestEncode_BlankQueryClears(t *testing.T) {
	got, err := Encode("https://example.com/s?tab=runs&q=old&mode=raw&v=1", State{Query: "  "})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/s?tab=runs", got)
}

func TestEncode_TooLong(t *testing.T) {
	_, err := Encode("https://example.com/", State{Query: "branch-name:" + strings.Repeat("x", MaxURLLength)})
	assert.ErrorIs(t, err, ErrURLTooLong)
}

func TestEncode_InvalidMode(t *testing.T) {
	_, err := Encode("https://example.com/", State{Query: "status:Done", Mode: "table"})
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestDecode_RoundTrip(t *testing.T) {
	want := State{Query: `label:"high priority" OR label:urgent`, Mode: ModeRaw, Version: Version}
	u, err := Encode("https://example.com/search", want)
	require.NoError(t, err)

	got, ok, err := Decode(u)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
	assert.True(t, got.Compatible())
}

func TestDecode_Forms(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  State
	}{
		{"full url", "https://example.com/?q=status%3AActive&mode=raw&v=1", State{Query: "status:Active", Mode: ModeRaw, Version: "1"}},
		{"question mark", "?q=iteration%3A%3E3", State{Query: "iteration:>3", Mode: ModeVisual}},
		{"bare", "q=assignee%3Ame&mode=visual", State{Query: "assignee:me", Mode: ModeVisual}},
		{"legacy param", "https://example.com/?query=status%3ADone", State{Query: "status:Done", Mode: ModeVisual}},
		{"q wins over legacy", "?query=a%3A1&q=b%3A2", State{Query: "b:2", Mode: ModeVisual}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := Decode(tt.input)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_NoQuery(t *testing.T) {
	_, ok, err := Decode("https://example.com/?tab=runs")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecode_Rejects(t *testing.T) {
	_, _, err := Decode("?q=" + strings.Repeat("a", MaxQueryLength+1))
	assert.ErrorIs(t, err, ErrQueryTooLong)

	_, _, err = Decode("?q=status%3ADone&mode=grid")
	assert.ErrorIs(t, err, ErrInvalidMode)

	_, _, err = Decode("?q=%zz")
	assert.Error(t, err)
}

func TestDecode_OtherVersionStillDecodes(t *testing.T) {
	got, ok, err := Decode("?q=status%3ADone&v=2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, got.Compatible())
}

func TestHasSearch(t *testing.T) {
	assert.True(t, HasSearch("https://example.com/?q=x%3A1"))
	assert.True(t, HasSearch("?query=x%3A1"))
	assert.False(t, HasSearch("https://example.com/?tab=1"))
	assert.False(t, HasSearch("?q=%zz"))
}

func TestClear(t *testing.T) {
	got, err := Clear("https://example.com/s?q=a&mode=raw&v=1&query=b&tab=runs")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/s?tab=runs", got)
}
