package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/palemoky/exquisite-corpse/internal/protocol"
)

func TestForSubprotocol(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sub      string
		expected Codec
	}{
		{"json", SubprotocolJSON, JSON},
		{"protobuf", SubprotocolProtobuf, Protobuf},
		{"empty falls back to json", "", JSON},
		{"unknown falls back to json", "chat", JSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected.Name(), ForSubprotocol(tt.sub).Name())
		})
	}
}

func TestJSONCodec_Encode(t *testing.T) {
	t.Parallel()

	msg := MustNewMessage(protocol.MsgPage, protocol.PagePayload{
		ID: "1", Page: 2, Value: "<a & b>", Author: "3",
	})

	data, err := JSON.Encode(msg)
	require.NoError(t, err)
	assert.False(t, JSON.Binary())
	// 不转义 HTML，不带换行
	assert.Equal(t, `{"type":"page","payload":{"id":"1","page":2,"value":"<a & b>","author":"3"}}`, string(data))
}

func TestJSONCodec_Decode(t *testing.T) {
	t.Parallel()

	msg, err := JSON.Decode([]byte(`{"type":"joinRoom","payload":{"id":42,"name":"ann","room":"abc"}}`))
	require.NoError(t, err)
	defer PutMessage(msg)

	assert.Equal(t, protocol.MsgJoinRoom, msg.Type)
	payload, err := ParsePayload[protocol.JoinRoomPayload](msg)
	require.NoError(t, err)
	assert.Equal(t, protocol.FlexString("42"), payload.ID)
	assert.Equal(t, "ann", payload.Name)
	assert.Equal(t, "abc", payload.Room)
}

func TestJSONCodec_DecodeErrors(t *testing.T) {
	t.Parallel()

	_, err := JSON.Decode([]byte(`not json`))
	assert.Error(t, err)

	_, err = JSON.Decode([]byte(`{"payload":{}}`))
	assert.ErrorIs(t, err, ErrMissingType)
}

func TestProtobufCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	msg := MustNewMessage(protocol.MsgUserHost, protocol.UserHostPayload{ID: "7"})

	data, err := Protobuf.Encode(msg)
	require.NoError(t, err)
	assert.True(t, Protobuf.Binary())

	decoded, err := Protobuf.Decode(data)
	require.NoError(t, err)
	defer PutMessage(decoded)

	assert.Equal(t, protocol.MsgUserHost, decoded.Type)
	assert.JSONEq(t, `{"id":"7"}`, string(decoded.Payload))
}

func TestProtobufCodec_EnvelopeIsStruct(t *testing.T) {
	t.Parallel()

	data, err := Protobuf.Encode(MustNewMessage(protocol.MsgNextPage, protocol.EmptyPayload{}))
	require.NoError(t, err)

	var envelope structpb.Struct
	require.NoError(t, proto.Unmarshal(data, &envelope))
	assert.Equal(t, "nextPage", envelope.GetFields()["type"].GetStringValue())
	assert.NotNil(t, envelope.GetFields()["payload"].GetStructValue())
}

func TestProtobufCodec_DecodeNumericID(t *testing.T) {
	t.Parallel()

	envelope, err := structpb.NewStruct(map[string]any{
		"type": "joinRoom",
		"payload": map[string]any{
			"id":   1234567890,
			"name": "bob",
			"room": "r1",
		},
	})
	require.NoError(t, err)
	data, err := proto.Marshal(envelope)
	require.NoError(t, err)

	msg, err := Protobuf.Decode(data)
	require.NoError(t, err)
	defer PutMessage(msg)

	payload, err := ParsePayload[protocol.JoinRoomPayload](msg)
	require.NoError(t, err)
	assert.Equal(t, protocol.FlexString("1234567890"), payload.ID)
}

func TestProtobufCodec_DecodeErrors(t *testing.T) {
	t.Parallel()

	_, err := Protobuf.Decode([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)

	envelope, err := structpb.NewStruct(map[string]any{"payload": map[string]any{}})
	require.NoError(t, err)
	data, err := proto.Marshal(envelope)
	require.NoError(t, err)
	_, err = Protobuf.Decode(data)
	assert.ErrorIs(t, err, ErrMissingType)
}
