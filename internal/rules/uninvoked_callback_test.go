package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/snag/internal/report"
)

func TestUninvokedCallback_Pass(t *testing.T) {
	pass := []string{
		"const list = new Array(5).fill().map(_ => {})",
		"const list = new Array(5).flat()",
		"const list = new Array(5).concat()",
		"const list = new Array('x').forEach((x) => console.log(x))",
		"const list = new Array(1, 2).forEach((x) => console.log(x))",
		"const list = new Array(...[1, 2, 3]).forEach((x) => console.log(x))",
		"const list = new Array(5)",
		"const list = new Array(5).length",
		"const list = new Array(5).join('')",
		"const list = new Array(n).map(_ => {})",
		"const list = new Buffer(5).map(_ => {})",
	}
	for _, src := range pass {
		t.Run(src, func(t *testing.T) {
			assert.Empty(t, runRule(t, UninvokedArrayCallback(), src))
		})
	}
}

func TestUninvokedCallback_Fail(t *testing.T) {
	fail := []string{
		"const list = new Array(5).map(_ => {})",
		"const list = new Array(5).filter(function(_) {})",
		"const list = new Array(5)['every'](function(_) {})",
	}
	for _, src := range fail {
		t.Run(src, func(t *testing.T) {
			diags := runRule(t, UninvokedArrayCallback(), src)
			require.Len(t, diags, 1)
			assert.Equal(t, "Uninvoked array callback", diags[0].Message)
		})
	}
}

func TestUninvokedCallback_LabeledSpans(t *testing.T) {
	src := "const list = new Array(5).map(_ => {})"
	diags := runRule(t, UninvokedArrayCallback(), src)
	require.Len(t, diags, 1)

	d := diags[0]
	assert.Equal(t, "uninvoked-array-callback", d.Rule)
	assert.Equal(t, report.SeverityWarning, d.Severity)
	assert.Contains(t, d.Help, "Array.prototype.fill()")

	require.Len(t, d.Labels, 2)
	assert.Equal(t, "this callback will not be invoked", d.Labels[0].Message)
	assert.Equal(t, "map", spanText(src, d.Labels[0].Span))
	assert.Equal(t, "because this is an array with only empty slots", d.Labels[1].Message)
	assert.Equal(t, "new Array(5)", spanText(src, d.Labels[1].Span))
}

func TestUninvokedCallback_ComputedKeySpan(t *testing.T) {
	src := "const list = new Array(5)['every'](function(_) {})"
	diags := runRule(t, UninvokedArrayCallback(), src)
	require.Len(t, diags, 1)

	d := diags[0]
	require.Len(t, d.Labels, 2)
	assert.Equal(t, "'every'", spanText(src, d.Labels[0].Span))
	assert.Equal(t, "new Array(5)", spanText(src, d.Labels[1].Span))
}

// The rule is agnostic to the method name: with an unresolvable computed key
// the key expression itself is labeled.
func TestUninvokedCallback_NonLiteralComputedKey(t *testing.T) {
	src := "const list = new Array(5)[method](function(_) {})"
	diags := runRule(t, UninvokedArrayCallback(), src)
	require.Len(t, diags, 1)
	assert.Equal(t, "method", spanText(src, diags[0].Labels[0].Span))
}

func TestUninvokedCallback_CallbackMustBeFirstArgument(t *testing.T) {
	for _, src := range []string{
		"const list = new Array(5).map()",
		"const list = new Array(5).fill(0, () => {})",
		"const list = new Array(5).reduce(0, () => {})",
	} {
		t.Run(src, func(t *testing.T) {
			assert.Empty(t, runRule(t, UninvokedArrayCallback(), src))
		})
	}
}
