package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bnema/mediaconv/internal/domain"
	"github.com/bnema/mediaconv/internal/service"
)

const maxBodyBytes = 1 << 20

type ItemService interface {
	Ingest(path string, knownSize int64) (domain.MediaItem, error)
	Get(id string) (domain.MediaItem, error)
	Snapshot(kind domain.MediaType) domain.Collection
	ActiveSnapshot() (domain.MediaType, domain.Collection, error)
	Remove(id string) error
	Clear(kind domain.MediaType) (int, error)
}

type ConversionService interface {
	ConvertItem(ctx context.Context, id string) (domain.MediaItem, error)
	StartAll(ctx context.Context) error
	CancelConversion() bool
	ActiveItem() (string, bool)
}

type SettingsService interface {
	Current() (domain.Settings, error)
	Update(patch domain.SettingsPatch) (domain.Settings, error)
}

// kindParam reads ?kind=, falling back to the active kind.
func (s *Server) kindParam(r *http.Request) (domain.MediaType, error) {
	if raw := r.URL.Query().Get("kind"); raw != "" {
		kind, ok := domain.ParseMediaType(raw)
		if !ok {
			return "", errBadKind
		}
		return kind, nil
	}
	settings, err := s.settings.Current()
	if err != nil {
		return "", err
	}
	return settings.MediaKind, nil
}

var errBadKind = errors.New("kind must be video, audio or image")

type itemsResponse struct {
	Kind  domain.MediaType   `json:"kind"`
	Items []domain.MediaItem `json:"items"`
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	kind, err := s.kindParam(r)
	if errors.Is(err, errBadKind) {
		writeBadRequest(w, err.Error())
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	items := s.items.Snapshot(kind)
	if items == nil {
		items = domain.Collection{}
	}
	writeJSON(w, http.StatusOK, itemsResponse{Kind: kind, Items: items})
}

type ingestRequest struct {
	Paths []string `json:"paths"`
}

type ingestResult struct {
	Path  string            `json:"path"`
	Item  *domain.MediaItem `json:"item,omitempty"`
	Error string            `json:"error,omitempty"`
}

// ingest adds every path independently and reports one result per path.
// The response is 201 when at least one item was added.
func (s *Server) ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if len(req.Paths) == 0 {
		writeBadRequest(w, "paths is required")
		return
	}

	results := make([]ingestResult, 0, len(req.Paths))
	added := false
	for _, path := range req.Paths {
		item, err := s.items.Ingest(path, 0)
		res := ingestResult{Path: path}
		switch {
		case err == nil:
			added = true
			res.Item = &item
		case errors.Is(err, domain.ErrAlreadyIngested):
			res.Item = &item
			res.Error = err.Error()
		default:
			res.Error = err.Error()
		}
		results = append(results, res)
	}

	code := http.StatusOK
	if added {
		code = http.StatusCreated
	}
	writeJSON(w, code, map[string]any{"results": results})
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.items.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) removeItem(w http.ResponseWriter, r *http.Request) {
	if err := s.items.Remove(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearItems(w http.ResponseWriter, r *http.Request) {
	kind, err := s.kindParam(r)
	if errors.Is(err, errBadKind) {
		writeBadRequest(w, err.Error())
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	n, err := s.items.Clear(kind)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"kind": kind, "removed": n})
}

// convertItem runs one conversion synchronously. A failed conversion is a
// 200 carrying the failed item.
func (s *Server) convertItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.conversions.ConvertItem(s.baseCtx, r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) convertAll(w http.ResponseWriter, r *http.Request) {
	if err := s.conversions.StartAll(s.baseCtx); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	id, _ := s.conversions.ActiveItem()
	cancelled := s.conversions.CancelConversion()
	resp := map[string]any{"cancelled": cancelled}
	if cancelled {
		resp["item_id"] = id
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settings.Current()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) patchSettings(w http.ResponseWriter, r *http.Request) {
	var patch domain.SettingsPatch
	if err := decodeBody(w, r, &patch); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	settings, err := s.settings.Update(patch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

type summaryResponse struct {
	domain.Summary
	ActiveItem string `json:"active_item,omitempty"`
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	kind, err := s.kindParam(r)
	if errors.Is(err, errBadKind) {
		writeBadRequest(w, err.Error())
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := summaryResponse{Summary: s.items.Snapshot(kind).Summarize(kind)}
	resp.ActiveItem, _ = s.conversions.ActiveItem()
	writeJSON(w, http.StatusOK, resp)
}

type formatInfo struct {
	Inputs  []string `json:"inputs"`
	Outputs []string `json:"outputs"`
	Default string   `json:"default"`
}

func (s *Server) formats(w http.ResponseWriter, r *http.Request) {
	out := make(map[domain.MediaType]formatInfo, len(domain.MediaTypes()))
	for _, kind := range domain.MediaTypes() {
		out[kind] = formatInfo{
			Inputs:  domain.InputExtensions(kind),
			Outputs: domain.OutputFormats(kind),
			Default: domain.DefaultOutputFormat(kind),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

var _ ConversionService = (*service.Orchestrator)(nil)
var _ ItemService = (*service.Registry)(nil)

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}
