package grpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	ID       string   `json:"id"`
	Quantity int      `json:"quantity"`
	Tags     []string `json:"tags,omitempty"`
	Price    string   `json:"price"`
}

func TestEncodeDecodeStruct(t *testing.T) {
	in := samplePayload{ID: "abc", Quantity: 3, Tags: []string{"x"}, Price: "400.00"}

	s, err := EncodeStruct(in)
	require.NoError(t, err)
	assert.Equal(t, "abc", s.Fields["id"].GetStringValue())
	assert.Equal(t, float64(3), s.Fields["quantity"].GetNumberValue())

	var out samplePayload
	require.NoError(t, DecodeStruct(s, &out))
	assert.Equal(t, in, out)
}

func TestDecodeStruct_Nil(t *testing.T) {
	var out samplePayload
	require.NoError(t, DecodeStruct(nil, &out))
	assert.Empty(t, out.ID)
}
