package pass

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_Parse(t *testing.T) {
	var (
		level int
		tag   string
		json  bool
	)
	o := NewOptions("test")
	o.IntVar(&level, "level", 1, "")
	o.StringVar(&tag, "tag", "", "")
	o.BoolVar(&json, "json", false, "")

	require.NoError(t, o.Parse(`level=3 tag="a b" json`))

	assert.Equal(t, 3, level)
	assert.Equal(t, "a b", tag)
	assert.True(t, json)
	assert.Equal(t, `{level=3 tag="a b" json=true}`, o.String())
}

func TestOptions_BraceValues(t *testing.T) {
	var tag string
	o := NewOptions("test")
	o.StringVar(&tag, "tag", "", "")

	require.NoError(t, o.Parse(`tag={say "hi"}`))
	assert.Equal(t, `say "hi"`, tag)
	assert.Equal(t, `{tag='say "hi"'}`, o.String())
}

func TestOptions_QuotedValuesRoundTrip(t *testing.T) {
	values := []string{
		``,
		`plain`,
		`a b`,
		`a"b`,
		`it's`,
		`say "it's"`,
		`x{y}`,
		`{a"b'c}`,
		`(a,b)`,
	}
	for _, v := range values {
		t.Run(v, func(t *testing.T) {
			var tag string
			o := NewOptions("test")
			o.StringVar(&tag, "tag", v, "")
			printed := o.String()

			var again string
			o2 := NewOptions("test")
			o2.StringVar(&again, "tag", "", "")
			require.NoError(t, o2.Parse(printed[1:len(printed)-1]))

			assert.Equal(t, v, again)
			assert.Equal(t, printed, o2.String())
		})
	}
}

func TestOptions_Errors(t *testing.T) {
	var level int
	o := NewOptions("test")
	o.IntVar(&level, "level", 0, "")

	tests := []string{
		"level=abc",
		"color=red",
		`level="1`,
		"level={1",
		"level=1}",
	}
	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			assert.Error(t, o.Parse(text))
		})
	}
}

func TestOptions_NilAndEmpty(t *testing.T) {
	var o *Options
	assert.Equal(t, 0, o.Len())
	assert.Equal(t, "", o.String())
	assert.NoError(t, o.Parse("  "))
	assert.Error(t, o.Parse("x=1"))

	_, ok := o.Get("x")
	assert.False(t, ok)
	assert.Equal(t, "", NewOptions("empty").String())
}

func TestOptions_CopyFrom(t *testing.T) {
	var srcLevel, dstLevel int
	var dstTag string
	src := NewOptions("src")
	src.IntVar(&srcLevel, "level", 0, "")
	dst := NewOptions("dst")
	dst.IntVar(&dstLevel, "level", 0, "")
	dst.StringVar(&dstTag, "tag", "keep", "")

	require.NoError(t, src.Parse("level=7"))
	require.NoError(t, dst.CopyFrom(src))

	assert.Equal(t, 7, dstLevel)
	assert.Equal(t, "keep", dstTag)
	v, ok := dst.Get("level")
	require.True(t, ok)
	assert.Equal(t, "7", v)
}
