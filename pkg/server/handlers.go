package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/entrhq/devpreview/pkg/device"
	"github.com/entrhq/devpreview/pkg/preview"
	"github.com/entrhq/devpreview/pkg/registry"
	"github.com/gorilla/mux"
)

// maxBodyBytes bounds API request bodies.
const maxBodyBytes = 64 << 10

// DeviceView is a device as returned by the API.
type DeviceView struct {
	device.Descriptor
	Category device.Category `json:"category"`
}

// DevicesResponse is the body of GET /api/devices.
type DevicesResponse struct {
	Version  uint64       `json:"version"`
	Selected []string     `json:"selected"`
	Devices  []DeviceView `json:"devices"`
}

// SelectionRequest is the body of PUT /api/selection.
type SelectionRequest struct {
	Names []string `json:"names"`
}

// PreviewResponse is the body of GET /api/preview.
type PreviewResponse struct {
	URL     string           `json:"url"`
	Reports []preview.Report `json:"reports"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := fmt.Fprintln(w, "OK"); err != nil {
		s.logger.Debugf("server: health write: %v", err)
	}
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	state := s.registry.Snapshot()
	devices := device.Filter(state.Devices(), r.URL.Query().Get("q"))

	views := make([]DeviceView, 0, len(devices))
	for _, d := range devices {
		views = append(views, DeviceView{Descriptor: d, Category: device.Categorize(d)})
	}
	s.writeJSON(w, http.StatusOK, DevicesResponse{
		Version:  state.Version(),
		Selected: state.SelectedNames(),
		Devices:  views,
	})
}

func (s *Server) handleAddDevice(w http.ResponseWriter, r *http.Request) {
	var spec device.Spec
	if err := decodeBody(w, r, &spec); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.registry.AddCustom(spec); err != nil {
		s.writeRegistryError(w, err)
		return
	}
	d, _ := s.registry.Snapshot().Find(spec.Descriptor().Name)
	s.writeJSON(w, http.StatusCreated, DeviceView{Descriptor: d, Category: device.Categorize(d)})
}

func (s *Server) handleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	name, err := deviceName(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.registry.RemoveCustom(name); err != nil {
		s.writeRegistryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleDevice(w http.ResponseWriter, r *http.Request) {
	name, err := deviceName(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.registry.Toggle(name); err != nil {
		s.writeRegistryError(w, err)
		return
	}
	d, _ := s.registry.Snapshot().Find(name)
	s.writeJSON(w, http.StatusOK, DeviceView{Descriptor: d, Category: device.Categorize(d)})
}

// deviceName returns the {name} route variable. The router matches on the
// escaped path so that names containing "/" stay in one segment.
func deviceName(r *http.Request) (string, error) {
	name, err := url.PathUnescape(mux.Vars(r)["name"])
	if err != nil {
		return "", fmt.Errorf("invalid device name: %w", err)
	}
	return name, nil
}

func (s *Server) handleSetSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.registry.Select(req.Names); err != nil {
		s.writeRegistryError(w, err)
		return
	}
	s.handleListDevices(w, r)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if s.surface == nil {
		s.writeError(w, http.StatusServiceUnavailable, errors.New("load detection is disabled"))
		return
	}

	target := s.cfg.DefaultURL
	if raw := r.URL.Query().Get("url"); raw != "" {
		normalized, err := NormalizeURL(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		target = normalized
	}

	s.syncSurface(target)
	s.writeJSON(w, http.StatusOK, PreviewResponse{URL: target, Reports: s.surface.Reports()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// registryStatus maps registry errors onto HTTP statuses.
func registryStatus(err error) int {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrDuplicateName), errors.Is(err, registry.ErrNotRemovable):
		return http.StatusConflict
	case errors.Is(err, registry.ErrInvalidDevice):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeRegistryError(w http.ResponseWriter, err error) {
	status := registryStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Errorf("server: registry: %v", err)
	}
	s.writeError(w, status, err)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debugf("server: encode response: %v", err)
	}
}
