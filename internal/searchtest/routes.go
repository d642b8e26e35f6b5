package searchtest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"maps"
	"mime"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

func (s *Server) routes() {
	s.handle(http.MethodGet, "/{$}", s.info)
	s.handle(http.MethodGet, "/_cluster/health", s.health)
	s.handle(http.MethodGet, "/_cat/indices", s.catIndices)
	s.handle(http.MethodPost, "/_bulk", s.bulk)

	s.handle(http.MethodGet, "/{index}", s.getIndex)
	s.handle(http.MethodPut, "/{index}", s.createIndex)
	s.handle(http.MethodDelete, "/{index}", s.deleteIndex)

	s.handle(http.MethodPost, "/{index}/_doc", s.indexDoc)
	s.handle(http.MethodPut, "/{index}/_doc/{id}", s.indexDoc)
	s.handle(http.MethodPost, "/{index}/_doc/{id}", s.indexDoc)
	s.handle(http.MethodGet, "/{index}/_doc/{id}", s.getDoc)
	s.handle(http.MethodDelete, "/{index}/_doc/{id}", s.deleteDoc)

	s.handle(http.MethodGet, "/{index}/_search", s.search)
	s.handle(http.MethodPost, "/{index}/_search", s.search)
}

func (s *Server) info(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return respondJSON(w, http.StatusOK, map[string]any{
		"name":         "searchtest",
		"cluster_name": "searchtest",
		"version":      map[string]any{"number": s.version},
		"tagline":      "You Know, for Search",
	})
}

func (s *Server) health(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	s.mu.RLock()
	n := len(s.indices)
	s.mu.RUnlock()

	return respondJSON(w, http.StatusOK, map[string]any{
		"cluster_name":   "searchtest",
		"status":         "green",
		"active_indices": n,
	})
}

func (s *Server) catIndices(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b strings.Builder
	for _, name := range slices.Sorted(maps.Keys(s.indices)) {
		b.WriteString(name)
		b.WriteByte('\n')
	}

	return respondText(w, http.StatusOK, b.String())
}

func (s *Server) getIndex(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	name := r.PathValue("index")

	s.mu.RLock()
	idx, ok := s.indices[name]
	s.mu.RUnlock()

	if !ok {
		return indexNotFound(name)
	}

	return respondJSON(w, http.StatusOK, map[string]any{
		name: map[string]any{"docs": len(idx)},
	})
}

func (s *Server) createIndex(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	name := r.PathValue("index")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.indices[name]; ok {
		return NewError(http.StatusBadRequest, "resource_already_exists_exception", "index [%s] already exists", name)
	}
	s.indices[name] = make(index)

	return respondJSON(w, http.StatusOK, map[string]any{"acknowledged": true, "index": name})
}

func (s *Server) deleteIndex(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	name := r.PathValue("index")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.indices[name]; !ok {
		return indexNotFound(name)
	}
	delete(s.indices, name)

	return respondJSON(w, http.StatusOK, map[string]any{"acknowledged": true})
}

func (s *Server) indexDoc(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	name, id := r.PathValue("index"), r.PathValue("id")
	if id == "" {
		id = uuid.NewString()
	}

	src, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if err := requireJSON(r, src); err != nil {
		return err
	}

	result, status := s.put(name, id, src)

	return respondJSON(w, status, map[string]any{"_index": name, "_id": id, "result": result})
}

func (s *Server) getDoc(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	name, id := r.PathValue("index"), r.PathValue("id")

	s.mu.RLock()
	idx, ok := s.indices[name]
	src, found := idx[id]
	s.mu.RUnlock()

	if !ok {
		return indexNotFound(name)
	}
	if !found {
		return respondJSON(w, http.StatusNotFound, map[string]any{"_index": name, "_id": id, "found": false})
	}

	return respondJSON(w, http.StatusOK, map[string]any{
		"_index":  name,
		"_id":     id,
		"found":   true,
		"_source": json.RawMessage(src),
	})
}

func (s *Server) deleteDoc(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	name, id := r.PathValue("index"), r.PathValue("id")

	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.indices[name]
	if !ok {
		return indexNotFound(name)
	}
	if _, found := idx[id]; !found {
		return respondJSON(w, http.StatusNotFound, map[string]any{"_index": name, "_id": id, "result": "not_found"})
	}
	delete(idx, id)

	return respondJSON(w, http.StatusOK, map[string]any{"_index": name, "_id": id, "result": "deleted"})
}

type hit struct {
	Index  string          `json:"_index"`
	ID     string          `json:"_id"`
	Source json.RawMessage `json:"_source"`
}

// search matches every document, or those whose field equals the value
// of a "field:value" q parameter. A bare q matches any document containing it.
func (s *Server) search(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	name := r.PathValue("index")
	q := r.URL.Query().Get("q")

	s.mu.RLock()
	idx, ok := s.indices[name]
	var hits []hit
	for _, id := range slices.Sorted(maps.Keys(idx)) {
		if matches(idx[id], q) {
			hits = append(hits, hit{Index: name, ID: id, Source: idx[id]})
		}
	}
	s.mu.RUnlock()

	if !ok {
		return indexNotFound(name)
	}

	return respondJSON(w, http.StatusOK, map[string]any{
		"timed_out": false,
		"hits": map[string]any{
			"total": map[string]any{"value": len(hits), "relation": "eq"},
			"hits":  hits,
		},
	})
}

func matches(src []byte, q string) bool {
	if q == "" {
		return true
	}

	field, value, ok := strings.Cut(q, ":")
	if !ok {
		return bytes.Contains(src, []byte(q))
	}

	return gjson.GetBytes(src, field).String() == value
}

// bulk applies newline-delimited index actions, each followed by its source.
func (s *Server) bulk(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mt != "application/x-ndjson" {
		return NewError(http.StatusNotAcceptable, "illegal_argument_exception",
			"Content-Type header [%s] is not supported", r.Header.Get("Content-Type"))
	}

	var items []map[string]any
	sc := bufio.NewScanner(r.Body)
	for sc.Scan() {
		action := bytes.TrimSpace(sc.Bytes())
		if len(action) == 0 {
			continue
		}

		meta := gjson.GetBytes(action, "index")
		if !meta.Exists() {
			return NewError(http.StatusBadRequest, "illegal_argument_exception", "unsupported bulk action %s", action)
		}
		if !sc.Scan() {
			return NewError(http.StatusBadRequest, "illegal_argument_exception", "bulk action is missing its source")
		}

		src := bytes.Clone(sc.Bytes())
		if !json.Valid(src) {
			return NewError(http.StatusBadRequest, "parse_exception", "bulk source is not valid json")
		}

		name, id := meta.Get("_index").String(), meta.Get("_id").String()
		if id == "" {
			id = uuid.NewString()
		}

		result, status := s.put(name, id, src)
		items = append(items, map[string]any{
			"index": map[string]any{"_index": name, "_id": id, "result": result, "status": status},
		})
	}
	if err := sc.Err(); err != nil {
		return err
	}

	return respondJSON(w, http.StatusOK, map[string]any{"errors": false, "items": items})
}

func (s *Server) put(name, id string, src []byte) (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.indices[name]
	if !ok {
		idx = make(index)
		s.indices[name] = idx
	}

	_, exists := idx[id]
	idx[id] = src

	if exists {
		return "updated", http.StatusOK
	}

	return "created", http.StatusCreated
}

func requireJSON(r *http.Request, body []byte) error {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt != "application/json" {
		return NewError(http.StatusNotAcceptable, "illegal_argument_exception",
			"Content-Type header [%s] is not supported", r.Header.Get("Content-Type"))
	}
	if len(body) == 0 || !json.Valid(body) {
		return NewError(http.StatusBadRequest, "parse_exception", "request body is required and must be json")
	}

	return nil
}

func indexNotFound(name string) error {
	return NewError(http.StatusNotFound, "index_not_found_exception", "no such index [%s]", name)
}
