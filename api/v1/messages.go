// Package apiv1 holds the CoordinationService messages and gRPC bindings
// described by coordination.proto. Messages encode to the proto3 wire
// format and travel through the codec registered in codec.go.
package apiv1

import (
	"bytes"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/mundrapranay/silhouette-db/internal/wire"
)

// Message is implemented by every request and response type.
type Message interface {
	MarshalBinary() ([]byte, error)
	UnmarshalBinary([]byte) error
}

// KeyValuePair is one value a worker publishes under key.
type KeyValuePair struct {
	Key   string
	Value []byte
}

// StartRoundRequest opens a round that completes once ExpectedWorkers
// workers have published.
type StartRoundRequest struct {
	RoundId         uint64
	ExpectedWorkers int32
}

// StartRoundResponse reports whether the round was opened.
type StartRoundResponse struct {
	Success bool
}

// PublishValuesRequest carries one worker's pairs for a round. Publishing
// again replaces the worker's earlier pairs.
type PublishValuesRequest struct {
	RoundId  uint64
	WorkerId string
	Pairs    []*KeyValuePair
}

// PublishValuesResponse reports whether the pairs were accepted.
type PublishValuesResponse struct {
	Success bool
}

// GetValueRequest carries a serialized PIR query against a completed round.
type GetValueRequest struct {
	RoundId  uint64
	PirQuery []byte
}

// GetValueResponse carries the serialized PIR response.
type GetValueResponse struct {
	PirResponse []byte
}

// GetBaseParamsRequest asks for the PIR base parameters of a round.
type GetBaseParamsRequest struct {
	RoundId uint64
}

// GetBaseParamsResponse carries the serialized base parameters clients
// build queries from.
type GetBaseParamsResponse struct {
	BaseParams []byte
}

// GetKeyMappingRequest asks for the key-to-row mapping of a round.
type GetKeyMappingRequest struct {
	RoundId uint64
}

// KeyMappingEntry maps a key to its PIR database row.
type KeyMappingEntry struct {
	Key   string
	Index int32
}

// GetKeyMappingResponse lists the mapping entries ordered by row.
type GetKeyMappingResponse struct {
	Entries []*KeyMappingEntry
}

// proto3 leaves zero values off the wire.

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	return wire.AppendUint64(b, num, v)
}

func appendInt32(b []byte, num protowire.Number, v int32) []byte {
	return appendVarint(b, num, uint64(int64(v)))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	return wire.AppendBool(b, num, v)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	return wire.AppendBytes(b, num, []byte(s))
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	return wire.AppendBytes(b, num, v)
}

func appendMessage(b []byte, num protowire.Number, m Message) ([]byte, error) {
	inner, err := m.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return wire.AppendBytes(b, num, inner), nil
}

func varintField(f wire.Field) (uint64, error) {
	if err := wire.Expect(f, protowire.VarintType); err != nil {
		return 0, err
	}
	return f.Varint, nil
}

// bytesField copies the payload; the buffer it came from may be reused.
func bytesField(f wire.Field) ([]byte, error) {
	if err := wire.Expect(f, protowire.BytesType); err != nil {
		return nil, err
	}
	return bytes.Clone(f.Bytes), nil
}

func stringField(f wire.Field) (string, error) {
	if err := wire.Expect(f, protowire.BytesType); err != nil {
		return "", err
	}
	return string(f.Bytes), nil
}

func (m *KeyValuePair) MarshalBinary() ([]byte, error) {
	b := appendString(nil, 1, m.Key)
	return appendBytes(b, 2, m.Value), nil
}

func (m *KeyValuePair) UnmarshalBinary(data []byte) error {
	*m = KeyValuePair{}
	return wire.ReadFields(data, func(f wire.Field) (err error) {
		switch f.Num {
		case 1:
			m.Key, err = stringField(f)
		case 2:
			m.Value, err = bytesField(f)
		}
		return err
	})
}

func (m *StartRoundRequest) MarshalBinary() ([]byte, error) {
	b := appendVarint(nil, 1, m.RoundId)
	return appendInt32(b, 2, m.ExpectedWorkers), nil
}

func (m *StartRoundRequest) UnmarshalBinary(data []byte) error {
	*m = StartRoundRequest{}
	return wire.ReadFields(data, func(f wire.Field) (err error) {
		switch f.Num {
		case 1:
			m.RoundId, err = varintField(f)
		case 2:
			var v uint64
			v, err = varintField(f)
			m.ExpectedWorkers = int32(v)
		}
		return err
	})
}

func (m *StartRoundResponse) MarshalBinary() ([]byte, error) {
	return appendBool(nil, 1, m.Success), nil
}

func (m *StartRoundResponse) UnmarshalBinary(data []byte) error {
	*m = StartRoundResponse{}
	return unmarshalSuccess(data, &m.Success)
}

func (m *PublishValuesRequest) MarshalBinary() ([]byte, error) {
	b := appendVarint(nil, 1, m.RoundId)
	b = appendString(b, 2, m.WorkerId)
	for i, p := range m.Pairs {
		if p == nil {
			return nil, fmt.Errorf("%w: pair %d is nil", wire.ErrSerialization, i)
		}
		var err error
		if b, err = appendMessage(b, 3, p); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (m *PublishValuesRequest) UnmarshalBinary(data []byte) error {
	*m = PublishValuesRequest{}
	return wire.ReadFields(data, func(f wire.Field) (err error) {
		switch f.Num {
		case 1:
			m.RoundId, err = varintField(f)
		case 2:
			m.WorkerId, err = stringField(f)
		case 3:
			if err = wire.Expect(f, protowire.BytesType); err != nil {
				return err
			}
			p := new(KeyValuePair)
			if err = p.UnmarshalBinary(f.Bytes); err != nil {
				return err
			}
			m.Pairs = append(m.Pairs, p)
		}
		return err
	})
}

func (m *PublishValuesResponse) MarshalBinary() ([]byte, error) {
	return appendBool(nil, 1, m.Success), nil
}

func (m *PublishValuesResponse) UnmarshalBinary(data []byte) error {
	*m = PublishValuesResponse{}
	return unmarshalSuccess(data, &m.Success)
}

func unmarshalSuccess(data []byte, success *bool) error {
	return wire.ReadFields(data, func(f wire.Field) error {
		if f.Num != 1 {
			return nil
		}
		v, err := varintField(f)
		*success = v != 0
		return err
	})
}

func (m *GetValueRequest) MarshalBinary() ([]byte, error) {
	b := appendVarint(nil, 1, m.RoundId)
	return appendBytes(b, 2, m.PirQuery), nil
}

func (m *GetValueRequest) UnmarshalBinary(data []byte) error {
	*m = GetValueRequest{}
	return wire.ReadFields(data, func(f wire.Field) (err error) {
		switch f.Num {
		case 1:
			m.RoundId, err = varintField(f)
		case 2:
			m.PirQuery, err = bytesField(f)
		}
		return err
	})
}

func (m *GetValueResponse) MarshalBinary() ([]byte, error) {
	return appendBytes(nil, 1, m.PirResponse), nil
}

func (m *GetValueResponse) UnmarshalBinary(data []byte) error {
	*m = GetValueResponse{}
	return wire.ReadFields(data, func(f wire.Field) (err error) {
		if f.Num == 1 {
			m.PirResponse, err = bytesField(f)
		}
		return err
	})
}

func (m *GetBaseParamsRequest) MarshalBinary() ([]byte, error) {
	return appendVarint(nil, 1, m.RoundId), nil
}

func (m *GetBaseParamsRequest) UnmarshalBinary(data []byte) error {
	*m = GetBaseParamsRequest{}
	return unmarshalRoundID(data, &m.RoundId)
}

func (m *GetBaseParamsResponse) MarshalBinary() ([]byte, error) {
	return appendBytes(nil, 1, m.BaseParams), nil
}

func (m *GetBaseParamsResponse) UnmarshalBinary(data []byte) error {
	*m = GetBaseParamsResponse{}
	return wire.ReadFields(data, func(f wire.Field) (err error) {
		if f.Num == 1 {
			m.BaseParams, err = bytesField(f)
		}
		return err
	})
}

func (m *GetKeyMappingRequest) MarshalBinary() ([]byte, error) {
	return appendVarint(nil, 1, m.RoundId), nil
}

func (m *GetKeyMappingRequest) UnmarshalBinary(data []byte) error {
	*m = GetKeyMappingRequest{}
	return unmarshalRoundID(data, &m.RoundId)
}

func unmarshalRoundID(data []byte, id *uint64) error {
	return wire.ReadFields(data, func(f wire.Field) (err error) {
		if f.Num == 1 {
			*id, err = varintField(f)
		}
		return err
	})
}

func (m *KeyMappingEntry) MarshalBinary() ([]byte, error) {
	b := appendString(nil, 1, m.Key)
	return appendInt32(b, 2, m.Index), nil
}

func (m *KeyMappingEntry) UnmarshalBinary(data []byte) error {
	*m = KeyMappingEntry{}
	return wire.ReadFields(data, func(f wire.Field) error {
		switch f.Num {
		case 1:
			k, err := stringField(f)
			m.Key = k
			return err
		case 2:
			v, err := varintField(f)
			m.Index = int32(v)
			return err
		}
		return nil
	})
}

func (m *GetKeyMappingResponse) MarshalBinary() ([]byte, error) {
	var b []byte
	for i, e := range m.Entries {
		if e == nil {
			return nil, fmt.Errorf("%w: entry %d is nil", wire.ErrSerialization, i)
		}
		var err error
		if b, err = appendMessage(b, 1, e); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (m *GetKeyMappingResponse) UnmarshalBinary(data []byte) error {
	*m = GetKeyMappingResponse{}
	return wire.ReadFields(data, func(f wire.Field) error {
		if f.Num != 1 {
			return nil
		}
		if err := wire.Expect(f, protowire.BytesType); err != nil {
			return err
		}
		e := new(KeyMappingEntry)
		if err := e.UnmarshalBinary(f.Bytes); err != nil {
			return err
		}
		m.Entries = append(m.Entries, e)
		return nil
	})
}
