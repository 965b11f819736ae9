package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pborman/uuid"
	klog "k8s.io/klog/v2"

	"github.com/nfsherd/nfsherd/pkg/authority"
	"github.com/nfsherd/nfsherd/pkg/lifecycle"
	"github.com/nfsherd/nfsherd/pkg/relation"
	"github.com/nfsherd/nfsherd/types"
)

const (
	SignalConnected = "connected"
	SignalDeparted  = "departed"
)

// Signal is one consumer lifecycle event delivered by the surrounding
// notification system.
type Signal struct {
	Type    string `json:"type"`
	GroupID string `json:"group_id"`
}

func (s Signal) validate() error {
	if s.Type != SignalConnected && s.Type != SignalDeparted {
		return fmt.Errorf("unknown signal type %q", s.Type)
	}
	if s.GroupID == "" {
		return fmt.Errorf("group_id must not be empty")
	}
	return nil
}

// Orchestrator is the lifecycle entry points the API drives.
type Orchestrator interface {
	HandleConnected(ctx context.Context, tok authority.Token, groupID string) (lifecycle.Disposition, error)
	HandleDeparted(ctx context.Context, tok authority.Token, groupID string) (lifecycle.Disposition, error)
	State(groupID string) lifecycle.State
}

// Server is the signal intake surface plus a small status API.
type Server struct {
	orc     Orchestrator
	auth    authority.Source
	store   relation.Store
	requeue *Requeue

	// deliverMu serializes signal handling. Membership decisions read the
	// inventory before actuating, so two interleaved deliveries could both
	// claim the same free host for different groups.
	deliverMu sync.Mutex
}

func NewServer(orc Orchestrator, auth authority.Source, store relation.Store, requeueInterval time.Duration) *Server {
	s := &Server{
		orc:   orc,
		auth:  auth,
		store: store,
	}
	s.requeue = NewRequeue(requeueInterval, s.deliver)
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/signals", s.handleSignal)
	r.Get("/v1/clusters/{id}", s.handleCluster)
	r.Get("/healthz", s.handleHealth)
	return r
}

// Serve runs the HTTP listener and the redelivery loop until ctx is done.
func (s *Server) Serve(ctx context.Context, addr string) error {
	go s.requeue.Run(ctx)

	srv := &http.Server{Addr: addr, Handler: s.Router()}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// deliver hands one signal to the orchestrator. Deliveries run one at a
// time, covering both the HTTP path and requeue redelivery.
func (s *Server) deliver(ctx context.Context, sig Signal) (lifecycle.Disposition, error) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	tok := s.auth.Token()
	switch sig.Type {
	case SignalConnected:
		return s.orc.HandleConnected(ctx, tok, sig.GroupID)
	case SignalDeparted:
		return s.orc.HandleDeparted(ctx, tok, sig.GroupID)
	}
	return lifecycle.Skipped, fmt.Errorf("unknown signal type %q", sig.Type)
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	var sig Signal
	if err := json.NewDecoder(r.Body).Decode(&sig); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed signal body"})
		return
	}
	if err := sig.validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	delivery := uuid.NewUUID().String()
	disp, err := s.deliver(r.Context(), sig)
	klog.V(2).Infof("delivery %s: %s/%s -> %s", delivery, sig.Type, sig.GroupID, disp)

	body := map[string]string{
		"delivery": delivery,
		"status":   disp.String(),
	}
	if err != nil {
		body["detail"] = err.Error()
	}

	switch disp {
	case lifecycle.Completed:
		writeJSON(w, http.StatusOK, body)
	case lifecycle.Skipped:
		body["detail"] = "this node does not hold write authority"
		writeJSON(w, http.StatusConflict, body)
	case lifecycle.Deferred:
		if err := s.requeue.Add(sig); err != nil && !types.IsAlreadyExist(err) {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusAccepted, body)
	default:
		writeJSON(w, http.StatusInternalServerError, body)
	}
}

func (s *Server) handleCluster(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "id")
	rec, err := s.store.Get(r.Context(), groupID)
	if err != nil {
		if types.IsNotFound(err) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		relation.Record
		State string `json:"state"`
	}{Record: rec, State: s.orc.State(groupID).String()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		klog.Errorf("encode response failed: %v", err)
	}
}
