package jsonscan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var samples = []string{
	`{"event":"RunResponse","content":"Hi","created_at":1}`,
	`{"a":"x\"}y"}`,
	`{"nested":{"deep":{"list":[1,{"x":"}"}]}},"s":"{{"}`,
	`{"path":"C:\\dir\\","ok":true}`,
	`{"text":"héllo wörld ✓ 🚀"}`,
	`{}`,
}

func TestExtractConcatenated(t *testing.T) {
	for n := 1; n <= len(samples); n++ {
		buf := strings.Join(samples[:n], "")

		objects, rest := Extract(buf)
		require.Len(t, objects, n)
		require.Empty(t, rest)
		for i, obj := range objects {
			assert.JSONEq(t, samples[i], obj)
		}
	}
}

func TestExtractWhitespaceBetweenObjects(t *testing.T) {
	objects, rest := Extract("{\"a\":1}\n  {\"b\":2}\r\n")
	require.Equal(t, []string{`{"a":1}`, `{"b":2}`}, objects)
	require.Empty(t, rest)
}

func TestExtractPartialPrefix(t *testing.T) {
	whole := `{"event":"RunResponse","content":"a \"quoted\" } brace","extra_data":{"references":[{"q":"{"}]}}`
	for cut := 0; cut < len(whole); cut++ {
		prefix := whole[:cut]

		objects, rest := Extract(prefix)
		require.Empty(t, objects, "cut at %d", cut)
		require.Equal(t, prefix, rest, "cut at %d", cut)

		objects, rest = Extract(rest + whole[cut:])
		require.Equal(t, []string{whole}, objects, "cut at %d", cut)
		require.Empty(t, rest)
	}
}

func TestExtractEscapedQuoteAndBrace(t *testing.T) {
	objects, rest := Extract(`{"a":"x\"}y"}`)
	require.Equal(t, []string{`{"a":"x\"}y"}`}, objects)
	require.Empty(t, rest)
}

func TestExtractNoObject(t *testing.T) {
	for _, buf := range []string{"", "   ", "no braces here", `"}"`} {
		objects, rest := Extract(buf)
		require.Empty(t, objects)
		require.Equal(t, buf, rest)
	}
}

func TestExtractKeepsTrailingPartial(t *testing.T) {
	objects, rest := Extract(`{"a":1}{"b":"par`)
	require.Equal(t, []string{`{"a":1}`}, objects)
	require.Equal(t, `{"b":"par`, rest)
}

func TestExtractStopsAtInvalidSpan(t *testing.T) {
	buf := `{"a":1}{"b":nope}{"c":3}`
	objects, rest := Extract(buf)
	require.Equal(t, []string{`{"a":1}`}, objects)
	require.Equal(t, `{"b":nope}{"c":3}`, rest)
}

func TestScannerAcrossWrites(t *testing.T) {
	payload := `{"event":"RunResponse","content":"Hi","created_at":1}{"event":"RunCompleted","content":"Hi there","created_at":2}`

	var (
		s   Scanner
		got []string
	)
	got = append(got, s.Write(payload[:30])...)
	require.Empty(t, got)
	got = append(got, s.Write(payload[30:70])...)
	require.Len(t, got, 1)
	got = append(got, s.Write(payload[70:])...)
	got = append(got, s.Flush()...)

	require.Len(t, got, 2)
	assert.JSONEq(t, `{"event":"RunCompleted","content":"Hi there","created_at":2}`, got[1])
	require.Empty(t, s.Remainder())
}
