package enrichment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePayload(t *testing.T) {
	t.Run("plain json", func(t *testing.T) {
		req := require.New(t)
		payload, err := parsePayload(`{"translation":"hello","suggestions":["a","b"]}`)
		req.NoError(err)
		req.Equal("hello", payload.Translation)
		req.Equal([]string{"a", "b"}, payload.Suggestions)
	})

	t.Run("code fences tolerated", func(t *testing.T) {
		req := require.New(t)
		raw := "```json\n{\"translation\":\"fenced\",\"suggestions\":[]}\n```"
		payload, err := parsePayload(raw)
		req.NoError(err)
		req.Equal("fenced", payload.Translation)
	})

	t.Run("prose around the object tolerated", func(t *testing.T) {
		req := require.New(t)
		raw := `Sure, here is the result: {"tags":["visa","housing"]} Hope that helps!`
		payload, err := parsePayload(raw)
		req.NoError(err)
		req.Equal([]string{"visa", "housing"}, payload.Tags)
	})

	t.Run("blank and padded entries dropped", func(t *testing.T) {
		req := require.New(t)
		payload, err := parsePayload(`{"suggestions":["  keep  ","","   "],"translation":"  x  "}`)
		req.NoError(err)
		req.Equal([]string{"keep"}, payload.Suggestions)
		req.Equal("x", payload.Translation)
	})

	t.Run("garbage fails with ErrUnparseable", func(t *testing.T) {
		for _, raw := range []string{"", "not json at all", "{broken", "[1,2,3]"} {
			_, err := parsePayload(raw)
			require.ErrorIs(t, err, ErrUnparseable, "input %q", raw)
		}
	})
}
