package matisse

import (
	"encoding/json"
	"net/http"
	"time"

	"goji.io"
	"goji.io/pat"

	"github.com/qdotlab/matisse/server"
)

// HTTPWrapper exposes a Matisse over HTTP.  Scans and wavelength sets run
// synchronously; those requests return when the hardware settles.
type HTTPWrapper struct {
	// Matisse is the wrapped controller.
	Matisse *Matisse

	// RouteTable maps goji patterns to handlers.
	RouteTable server.RouteTable
}

// stabilizeReq is the body of POST stabilize/on.  Zero values mean "use
// the configured defaults".
type stabilizeReq struct {
	Tolerance float64 `json:"tolerance"`
	Delay     float64 `json:"delay"`
}

// NewHTTPWrapper creates a new HTTP wrapper with the route table
// pre-configured.
func NewHTTPWrapper(urlStem string, m *Matisse) HTTPWrapper {
	w := HTTPWrapper{Matisse: m}
	rt := server.RouteTable{
		pat.Get(urlStem + "wavelength"):           w.GetWavelength,
		pat.Post(urlStem + "wavelength"):          w.SetWavelength,
		pat.Get(urlStem + "target-wavelength"):    w.GetTargetWavelength,
		pat.Post(urlStem + "scan/bifi"):           w.BiFiScan,
		pat.Post(urlStem + "scan/thin-etalon"):    w.ThinEtalonScan,
		pat.Post(urlStem + "stabilize/on"):        w.StabilizeOn,
		pat.Post(urlStem + "stabilize/off"):       w.StabilizeOff,
		pat.Get(urlStem + "stabilize"):            w.Stabilizing,
		pat.Get(urlStem + "limit-reached"):        w.LimitReached,
		pat.Get(urlStem + "auto-corrections"):     w.AutoCorrections,
		pat.Post(urlStem + "lock-correction/on"):  w.LockCorrectionOn,
		pat.Post(urlStem + "lock-correction/off"): w.LockCorrectionOff,
		pat.Get(urlStem + "lock-correction"):      w.LockCorrectionStatus,
		pat.Get(urlStem + "locked"):               w.Locked,
	}
	w.RouteTable = rt
	return w
}

// Mux returns a goji mux with all of the wrapper's routes bound.
func (h HTTPWrapper) Mux() *goji.Mux {
	mux := goji.NewMux()
	h.RouteTable.Bind(mux)
	return mux
}

// GetWavelength reads the wavemeter and pipes the value back as a float json.
func (h HTTPWrapper) GetWavelength(w http.ResponseWriter, r *http.Request) {
	wl, err := h.Matisse.WavemeterWavelength()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	server.EncodeAndRespond(w, server.FloatT{F64: wl})
}

// SetWavelength drives the laser to the requested wavelength.  Returns
// 400 for out-of-range requests, 500 for hardware failures.
func (h HTTPWrapper) SetWavelength(w http.ResponseWriter, r *http.Request) {
	f := server.FloatT{}
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	if err := h.Matisse.SetWavelength(f.F64); err != nil {
		status := http.StatusInternalServerError
		if _, ok := err.(RangeError); ok {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetTargetWavelength returns the current target, or 404 if none is set.
func (h HTTPWrapper) GetTargetWavelength(w http.ResponseWriter, r *http.Request) {
	wl, ok := h.Matisse.TargetWavelength()
	if !ok {
		http.Error(w, "no target wavelength set", http.StatusNotFound)
		return
	}
	server.EncodeAndRespond(w, server.FloatT{F64: wl})
}

// BiFiScan runs a birefringent filter scan and returns the chosen motor
// position.
func (h HTTPWrapper) BiFiScan(w http.ResponseWriter, r *http.Request) {
	pos, err := h.Matisse.BirefringentFilterScan()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	server.EncodeAndRespond(w, server.IntT{Int: pos})
}

// ThinEtalonScan runs a thin etalon scan and returns the chosen motor
// position.
func (h HTTPWrapper) ThinEtalonScan(w http.ResponseWriter, r *http.Request) {
	pos, err := h.Matisse.ThinEtalonScan()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	server.EncodeAndRespond(w, server.IntT{Int: pos})
}

// StabilizeOn starts the stabilization loop.
func (h HTTPWrapper) StabilizeOn(w http.ResponseWriter, r *http.Request) {
	req := stabilizeReq{}
	if r.Body != nil {
		// an empty body means all defaults
		json.NewDecoder(r.Body).Decode(&req)
		r.Body.Close()
	}
	delay := time.Duration(req.Delay * float64(time.Second))
	if err := h.Matisse.StabilizeOn(req.Tolerance, delay); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// StabilizeOff stops the stabilization loop, blocking until it has joined.
func (h HTTPWrapper) StabilizeOff(w http.ResponseWriter, r *http.Request) {
	h.Matisse.StabilizeOff()
	w.WriteHeader(http.StatusOK)
}

// Stabilizing pipes back whether the stabilization loop is running.
func (h HTTPWrapper) Stabilizing(w http.ResponseWriter, r *http.Request) {
	server.EncodeAndRespond(w, server.BoolT{Bool: h.Matisse.IsStabilizing()})
}

// LimitReached pipes back whether any stabilization actuator is near a
// travel bound.
func (h HTTPWrapper) LimitReached(w http.ResponseWriter, r *http.Request) {
	limited, err := h.Matisse.IsAnyLimitReached()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	server.EncodeAndRespond(w, server.BoolT{Bool: limited})
}

// AutoCorrections pipes back the saturation-correction count.
func (h HTTPWrapper) AutoCorrections(w http.ResponseWriter, r *http.Request) {
	server.EncodeAndRespond(w, server.IntT{Int: h.Matisse.AutoCorrections()})
}

// LockCorrectionOn starts the lock-correction loop.
func (h HTTPWrapper) LockCorrectionOn(w http.ResponseWriter, r *http.Request) {
	h.Matisse.StartLaserLockCorrection()
	w.WriteHeader(http.StatusOK)
}

// LockCorrectionOff stops the lock-correction loop.
func (h HTTPWrapper) LockCorrectionOff(w http.ResponseWriter, r *http.Request) {
	h.Matisse.StopLaserLockCorrection()
	w.WriteHeader(http.StatusOK)
}

// LockCorrectionStatus pipes back whether the lock-correction loop is
// running.
func (h HTTPWrapper) LockCorrectionStatus(w http.ResponseWriter, r *http.Request) {
	server.EncodeAndRespond(w, server.BoolT{Bool: h.Matisse.IsLockCorrectionOn()})
}

// Locked pipes back whether the laser is locked.
func (h HTTPWrapper) Locked(w http.ResponseWriter, r *http.Request) {
	locked, err := h.Matisse.LaserLocked()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	server.EncodeAndRespond(w, server.BoolT{Bool: locked})
}
