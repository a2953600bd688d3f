package session

import (
	"fmt"
	"unicode/utf8"

	"github.com/mundrapranay/silhouette-db/internal/frodo"
	"github.com/mundrapranay/silhouette-db/internal/handle"
	"github.com/mundrapranay/silhouette-db/internal/status"
	"github.com/mundrapranay/silhouette-db/internal/wire"
)

// ServerCreate builds a shard from base64-encoded rows and returns its
// handle together with the serialized BaseParams for clients.
func (m *Manager) ServerCreate(rows []string, lweDim, rowCount, elemSize, plaintextBits int) (handle.Handle, []byte, error) {
	const op = "server_create"
	if len(rows) == 0 {
		return 0, nil, status.WithCode(op, status.InvalidInput, fmt.Errorf("%w: empty database", status.ErrInvalidInput))
	}
	for i, r := range rows {
		if !utf8.ValidString(r) {
			return 0, nil, status.WithCode(op, status.InvalidInput, fmt.Errorf("%w: row %d is not valid text", status.ErrInvalidInput, i))
		}
	}

	shard, err := frodo.FromBase64Strings(rows, lweDim, rowCount, elemSize, plaintextBits)
	if err != nil {
		m.logger.Debug("shard construction failed", "rows", len(rows), "error", err)
		return 0, nil, status.WithCode(op, status.UnknownError, err)
	}

	bp, err := wire.Marshal(shard.BaseParams())
	if err != nil {
		return 0, nil, status.WithCode(op, status.SerializationError, err)
	}

	h := m.servers.Insert(&pirServer{shard: shard})
	m.logger.Debug("server created", "handle", h, "rows", rowCount, "lwe_dim", lweDim, "elem_size", elemSize)
	return h, bp, nil
}

// ServerRespond answers a serialized query. It only reads the shard, so
// concurrent calls against one handle are safe.
func (m *Manager) ServerRespond(h handle.Handle, query []byte) ([]byte, error) {
	const op = "server_respond"
	srv, err := m.servers.Get(h)
	if err != nil {
		return nil, status.Errorf(op, err)
	}

	var q frodo.Query
	if err := wire.Unmarshal(query, &q); err != nil {
		return nil, status.WithCode(op, status.DeserializationError, err)
	}
	resp, err := srv.shard.Respond(&q)
	if err != nil {
		return nil, status.WithCode(op, status.UnknownError, err)
	}
	out, err := wire.Marshal(resp)
	if err != nil {
		return nil, status.WithCode(op, status.SerializationError, err)
	}
	return out, nil
}

// ServerDestroy releases the shard behind h. Destroying twice, or using h
// afterwards, fails with InvalidInput.
func (m *Manager) ServerDestroy(h handle.Handle) error {
	if _, err := m.servers.Remove(h); err != nil {
		return status.Errorf("server_destroy", err)
	}
	m.logger.Debug("server destroyed", "handle", h)
	return nil
}

// ClientCreate derives client state from serialized BaseParams.
func (m *Manager) ClientCreate(baseParams []byte) (handle.Handle, error) {
	const op = "client_create"
	var bp frodo.BaseParams
	if err := wire.Unmarshal(baseParams, &bp); err != nil {
		return 0, status.WithCode(op, status.DeserializationError, err)
	}
	h := m.clients.Insert(&pirClient{base: &bp, common: frodo.NewCommonParams(&bp)})
	m.logger.Debug("client created", "handle", h, "rows", bp.M)
	return h, nil
}

// ClientGenerateQuery samples fresh QueryParams, consumes them for row and
// returns the serialized query and params. The params are needed again by
// ClientDecodeResponse. Each call uses its own params, so concurrent calls
// on one handle never share single-use state.
func (m *Manager) ClientGenerateQuery(h handle.Handle, row int) (query, queryParams []byte, err error) {
	const op = "client_generate_query"
	c, err := m.clients.Get(h)
	if err != nil {
		return nil, nil, status.Errorf(op, err)
	}

	qp, err := frodo.NewQueryParams(c.common, c.base)
	if err != nil {
		return nil, nil, status.WithCode(op, status.UnknownError, err)
	}
	q, err := qp.GenerateQuery(row)
	if err != nil {
		return nil, nil, status.Errorf(op, err)
	}

	query, err = wire.Marshal(q)
	if err != nil {
		return nil, nil, status.WithCode(op, status.SerializationError, err)
	}
	queryParams, err = wire.Marshal(qp)
	if err != nil {
		return nil, nil, status.WithCode(op, status.SerializationError, err)
	}
	return query, queryParams, nil
}

// ClientDecodeResponse recovers the row bytes from a response. queryParams
// must be the params returned with the query that produced response; a
// mismatched pair decodes to unrelated bytes without an error.
func (m *Manager) ClientDecodeResponse(h handle.Handle, response, queryParams []byte) ([]byte, error) {
	const op = "client_decode_response"
	if _, err := m.clients.Get(h); err != nil {
		return nil, status.Errorf(op, err)
	}

	var resp frodo.Response
	if err := wire.Unmarshal(response, &resp); err != nil {
		return nil, status.WithCode(op, status.DeserializationError, err)
	}
	var qp frodo.QueryParams
	if err := wire.Unmarshal(queryParams, &qp); err != nil {
		return nil, status.WithCode(op, status.DeserializationError, err)
	}
	out, err := resp.ParseOutputAsBytes(&qp)
	if err != nil {
		return nil, status.WithCode(op, status.DecodingError, err)
	}
	return out, nil
}

// ClientDestroy releases the client state behind h.
func (m *Manager) ClientDestroy(h handle.Handle) error {
	if _, err := m.clients.Remove(h); err != nil {
		return status.Errorf("client_destroy", err)
	}
	m.logger.Debug("client destroyed", "handle", h)
	return nil
}
