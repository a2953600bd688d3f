package apiv1

import (
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/proto"
)

// CodecName is the content subtype both ends negotiate:
// application/grpc+silhouette.
const CodecName = "silhouette"

func init() {
	encoding.RegisterCodec(codec{})
}

// codec marshals the messages of this package. Their bytes are plain
// proto3, so it also serves generated proto.Message values, which lets a
// server answer clients built from coordination.proto with a stock codec.
type codec struct{}

func (codec) Name() string { return CodecName }

func (codec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case Message:
		return m.MarshalBinary()
	case proto.Message:
		return proto.Marshal(m)
	}
	return nil, fmt.Errorf("apiv1: cannot marshal %T", v)
}

func (codec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case Message:
		return m.UnmarshalBinary(data)
	case proto.Message:
		return proto.Unmarshal(data, m)
	}
	return fmt.Errorf("apiv1: cannot unmarshal into %T", v)
}

// ServerCodec makes a server decode every request with this package's
// codec, whatever content subtype the client sent. Servers that must
// accept clients generated from coordination.proto pass it to
// grpc.NewServer.
func ServerCodec() grpc.ServerOption {
	return grpc.ForceServerCodec(codec{})
}
