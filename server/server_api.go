package server

import (
	"encoding/json"
	"evroam/api"
	"evroam/entity"
	"evroam/event"
	"evroam/internal"
	"evroam/network"
	"evroam/types"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

const (
	operatorsEndpoint = "/api/operators"
	operatorEndpoint  = "/api/operators/:id"
	propertyEndpoint  = "/api/operators/:id/properties/:name"
	logEndpoint       = "/api/log"
	failuresEndpoint  = "/api/failures"
	maxBodySize       = 1 << 20
)

// Api serves operator management over REST.
type Api struct {
	network     *network.Network
	diagnostics *api.Handler
	logger      internal.LogHandler
}

func NewServerApi(network *network.Network, diagnostics *api.Handler, logger internal.LogHandler) *Api {
	return &Api{
		network:     network,
		diagnostics: diagnostics,
		logger:      logger,
	}
}

func (a *Api) Register(router *httprouter.Router) {
	router.POST(operatorsEndpoint, instrument("register", a.handleRegister))
	router.GET(operatorsEndpoint, instrument("list", a.handleList))
	router.GET(operatorEndpoint, instrument("get", a.handleGet))
	router.DELETE(operatorEndpoint, instrument("deregister", a.handleDeregister))
	router.PUT(operatorEndpoint+"/admin-status", instrument("admin_status", a.handleAdminStatus))
	router.PUT(operatorEndpoint+"/status", instrument("status", a.handleStatus))
	router.PUT(propertyEndpoint, instrument("property", a.handleProperty))
	router.DELETE(propertyEndpoint, instrument("clear_property", a.handleClearProperty))
	router.GET(logEndpoint, instrument("log", a.diagnosticsCall(api.ReadLog)))
	router.GET(failuresEndpoint, instrument("failures", a.diagnosticsCall(api.FailuresToday)))
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func instrument(route string, handle httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		handle(rec, r, params)
		observeRequest(route, rec.code)
	}
}

type registerRequest struct {
	Id string `json:"id"`
	entity.Attributes
	AdminStatus string     `json:"admin_status,omitempty"`
	Status      string     `json:"status,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

type statusRequest struct {
	Status    string     `json:"status"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type propertyRequest struct {
	Value     json.RawMessage `json:"value"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`
}

type updateResponse struct {
	Changed  bool            `json:"changed"`
	Event    json.RawMessage `json:"event,omitempty"`
	Operator entity.Snapshot `json:"operator"`
}

func (a *Api) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err == nil {
		err = json.Unmarshal(body, v)
	}
	if err != nil {
		a.logger.Warn(fmt.Sprintf("api: invalid body from %s: %s", r.RemoteAddr, err))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid body: %s", err)})
		return false
	}
	return true
}

func (a *Api) fail(w http.ResponseWriter, err error) {
	code := statusCode(err)
	if code == http.StatusInternalServerError {
		a.logger.Error("api request failed", err)
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

// stamped reports the explicit timestamp of a request, if any. Requests
// without one are stamped by the operator clock.
func stamped(ts *time.Time) (time.Time, bool) {
	if ts == nil || ts.IsZero() {
		return time.Time{}, false
	}
	return *ts, true
}

func (a *Api) handleRegister(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req registerRequest
	if !a.decode(w, r, &req) {
		return
	}
	info := network.Info{Id: event.Ref(req.Id), Attributes: req.Attributes}
	asOf, ok := stamped(req.Timestamp)
	if !ok {
		asOf = a.network.Clock().Now()
	}
	if req.AdminStatus != "" {
		admin, err := types.ParseAdminStatus(req.AdminStatus)
		if err != nil {
			a.fail(w, err)
			return
		}
		info.AdminStatus = types.Some(types.NewTimestamped(admin, asOf))
	}
	if req.Status != "" {
		status, err := types.ParseOperationalStatus(req.Status)
		if err != nil {
			a.fail(w, err)
			return
		}
		info.Status = types.Some(types.NewTimestamped(status, asOf))
	}
	op, err := a.network.Register(info)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, op.Snapshot())
}

func (a *Api) handleList(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	operators := a.network.Operators()
	snapshots := make([]entity.Snapshot, 0, len(operators))
	for _, op := range operators {
		snapshots = append(snapshots, op.Snapshot())
	}
	writeJSON(w, http.StatusOK, snapshots)
}

func (a *Api) lookup(w http.ResponseWriter, params httprouter.Params) (*entity.Operator, bool) {
	op, err := a.network.Lookup(event.Ref(params.ByName("id")))
	if err != nil {
		a.fail(w, err)
		return nil, false
	}
	return op, true
}

func (a *Api) handleGet(w http.ResponseWriter, _ *http.Request, params httprouter.Params) {
	if op, ok := a.lookup(w, params); ok {
		writeJSON(w, http.StatusOK, op.Snapshot())
	}
}

func (a *Api) handleDeregister(w http.ResponseWriter, _ *http.Request, params httprouter.Params) {
	if err := a.network.Deregister(event.Ref(params.ByName("id"))); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *Api) handleAdminStatus(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	op, ok := a.lookup(w, params)
	if !ok {
		return
	}
	var req statusRequest
	if !a.decode(w, r, &req) {
		return
	}
	status, err := types.ParseAdminStatus(req.Status)
	if err != nil {
		a.fail(w, err)
		return
	}
	var ev event.Event
	if ts, ok := stamped(req.Timestamp); ok {
		ev, err = op.UpdateAdminStatusAt(status, ts)
	} else {
		ev, err = op.UpdateAdminStatus(status)
	}
	a.respondUpdate(w, op, ev, err)
}

func (a *Api) handleStatus(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	op, ok := a.lookup(w, params)
	if !ok {
		return
	}
	var req statusRequest
	if !a.decode(w, r, &req) {
		return
	}
	status, err := types.ParseOperationalStatus(req.Status)
	if err != nil {
		a.fail(w, err)
		return
	}
	var ev event.Event
	if ts, ok := stamped(req.Timestamp); ok {
		ev, err = op.UpdateStatusAt(status, ts)
	} else {
		ev, err = op.UpdateStatus(status)
	}
	a.respondUpdate(w, op, ev, err)
}

func (a *Api) handleProperty(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	op, ok := a.lookup(w, params)
	if !ok {
		return
	}
	var req propertyRequest
	if !a.decode(w, r, &req) {
		return
	}
	name := params.ByName("name")
	if len(req.Value) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "value is required"})
		return
	}
	value, err := entity.DecodeProperty(name, req.Value)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	var ev event.Event
	if ts, ok := stamped(req.Timestamp); ok {
		ev, err = op.UpdatePropertyAt(name, value, ts)
	} else {
		ev, err = op.UpdateProperty(name, value)
	}
	a.respondUpdate(w, op, ev, err)
}

func (a *Api) handleClearProperty(w http.ResponseWriter, _ *http.Request, params httprouter.Params) {
	op, ok := a.lookup(w, params)
	if !ok {
		return
	}
	ev, err := op.ClearProperty(params.ByName("name"))
	a.respondUpdate(w, op, ev, err)
}

// respondUpdate reports a mutation. A publish failure after the write still
// reports the change, the failure is only logged.
func (a *Api) respondUpdate(w http.ResponseWriter, op *entity.Operator, ev event.Event, err error) {
	if err != nil && ev == nil {
		a.fail(w, err)
		return
	}
	if err != nil {
		a.logger.Error(fmt.Sprintf("publish change of %s", op.ID()), err)
	}
	resp := updateResponse{Changed: ev != nil, Operator: op.Snapshot()}
	if ev != nil {
		if data, err := event.Marshal(ev); err == nil {
			resp.Event = data
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *Api) diagnosticsCall(callType api.CallType) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		data, err := a.diagnostics.HandleApiCall(&api.Call{CallType: callType, Remote: r.RemoteAddr})
		if err != nil {
			a.fail(w, err)
			return
		}
		if data == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write(data)
	}
}
