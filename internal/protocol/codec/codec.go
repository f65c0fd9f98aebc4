package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/palemoky/exquisite-corpse/internal/protocol"
)

// WebSocket 子协议名
const (
	SubprotocolJSON     = "corpse.json"
	SubprotocolProtobuf = "corpse.pb"
)

// Subprotocols 服务端支持的子协议，按优先级排列
var Subprotocols = []string{SubprotocolJSON, SubprotocolProtobuf}

// ErrMissingType 帧中没有消息类型
var ErrMissingType = errors.New("codec: message type missing")

// Codec 消息帧编解码器
type Codec interface {
	Name() string
	// Binary 为 true 时使用 WebSocket 二进制帧
	Binary() bool
	Encode(msg *protocol.Message) ([]byte, error)
	// Decode 返回的消息来自对象池，使用完毕后应调用 PutMessage
	Decode(data []byte) (*protocol.Message, error)
}

var (
	// JSON 文本帧编解码器（默认）
	JSON Codec = jsonCodec{}
	// Protobuf 二进制帧编解码器，信封为 structpb.Struct
	Protobuf Codec = protobufCodec{}
)

// ForSubprotocol 根据握手协商出的子协议选择编解码器，未知或为空时使用 JSON
func ForSubprotocol(name string) Codec {
	if name == SubprotocolProtobuf {
		return Protobuf
	}
	return JSON
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return SubprotocolJSON }
func (jsonCodec) Binary() bool { return false }

func (jsonCodec) Encode(msg *protocol.Message) ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(msg); err != nil {
		return nil, err
	}
	// Encoder 会追加换行
	return bytes.Clone(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

func (jsonCodec) Decode(data []byte) (*protocol.Message, error) {
	msg := GetMessage()
	if err := json.Unmarshal(data, msg); err != nil {
		PutMessage(msg)
		return nil, err
	}
	if msg.Type == "" {
		PutMessage(msg)
		return nil, ErrMissingType
	}
	return msg, nil
}

type protobufCodec struct{}

func (protobufCodec) Name() string { return SubprotocolProtobuf }
func (protobufCodec) Binary() bool { return true }

func (protobufCodec) Encode(msg *protocol.Message) ([]byte, error) {
	fields := map[string]any{"type": string(msg.Type)}
	if len(msg.Payload) > 0 {
		var payload any
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return nil, fmt.Errorf("codec: payload of %s: %w", msg.Type, err)
		}
		fields["payload"] = payload
	}
	envelope, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("codec: envelope of %s: %w", msg.Type, err)
	}
	return proto.Marshal(envelope)
}

func (protobufCodec) Decode(data []byte) (*protocol.Message, error) {
	var envelope structpb.Struct
	if err := proto.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	msgType := envelope.GetFields()["type"].GetStringValue()
	if msgType == "" {
		return nil, ErrMissingType
	}

	msg := GetMessage()
	msg.Type = protocol.MessageType(msgType)
	if payload, ok := envelope.GetFields()["payload"]; ok {
		raw, err := protojson.Marshal(payload)
		if err != nil {
			PutMessage(msg)
			return nil, err
		}
		msg.Payload = raw
	}
	return msg, nil
}
