package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	ID     string    `json:"id"`
	Vector []float32 `json:"vector"`
}

func TestByName(t *testing.T) {
	for _, name := range []string{"json", "go-json"} {
		c, ok := ByName(name)
		require.True(t, ok, name)
		assert.Equal(t, name, c.Name())
	}

	_, ok := ByName("msgpack")
	assert.False(t, ok)
}

func TestRoundTrip(t *testing.T) {
	codecs := []Codec{JSON{}, GoJSON{}}

	for _, c := range codecs {
		t.Run(c.Name(), func(t *testing.T) {
			in := payload{ID: "/pics/cat.jpg", Vector: []float32{0.6, 0.8}}

			data, err := c.Marshal(in)
			require.NoError(t, err)

			var out payload
			require.NoError(t, c.Unmarshal(data, &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestCrossCodecCompatibility(t *testing.T) {
	// go-json output must decode with stdlib json and vice versa,
	// since snapshot readers pick the codec by header name.
	in := payload{ID: "a", Vector: []float32{1, 0}}

	data := MustMarshal(GoJSON{}, in)
	var out payload
	require.NoError(t, JSON{}.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}
