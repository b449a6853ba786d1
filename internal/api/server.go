// Package api serves the engine over HTTP. Ingest endpoints accept
// observations from the perception and cognition collaborators; query
// endpoints drive the status window and the CLI. Every route is JSON and
// sits behind a per-IP token-bucket rate limiter.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/junhyuk-oh/arise/internal/army"
	"github.com/junhyuk-oh/arise/internal/config"
	"github.com/junhyuk-oh/arise/internal/engine"
	"github.com/junhyuk-oh/arise/internal/event"
	"github.com/junhyuk-oh/arise/internal/quest"
	"github.com/junhyuk-oh/arise/internal/shop"
	"github.com/junhyuk-oh/arise/internal/skill"
	"github.com/junhyuk-oh/arise/internal/types"
)

// Server serves the engine state over HTTP.
type Server struct {
	eng     *engine.Engine
	limiter *RateLimiter
	srv     *http.Server
	stopCh  chan struct{}
}

// New builds the server on cfg.ListenAddr with cfg.RateLimit applied to
// every route.
func New(eng *engine.Engine, cfg config.Config) *Server {
	s := &Server{
		eng:     eng,
		limiter: NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst, nil),
		stopCh:  make(chan struct{}),
	}

	mux := http.NewServeMux()

	// Ingest (POST, collaborators feed observations in).
	mux.HandleFunc("POST /api/context", s.handleContext)
	mux.HandleFunc("POST /api/window", s.handleWindow)
	mux.HandleFunc("POST /api/motive", s.handleMotive)

	// Query (GET, presentation layer reads state out).
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/quests", s.handleQuests)
	mux.HandleFunc("GET /api/army", s.handleArmy)
	mux.HandleFunc("GET /api/army/templates", s.handleArmyTemplates)
	mux.HandleFunc("GET /api/achievements", s.handleAchievements)
	mux.HandleFunc("GET /api/shop", s.handleShop)
	mux.HandleFunc("GET /api/skills", s.handleSkills)
	mux.HandleFunc("GET /api/notifications", s.handleNotifications)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/report", s.handleReport)

	// Actions.
	mux.HandleFunc("POST /api/quests/{id}/complete", s.handleQuestComplete)
	mux.HandleFunc("POST /api/army/extract", s.handleArmyExtract)
	mux.HandleFunc("POST /api/army/{id}/deploy", s.handleAgentAction((*army.Registry).Deploy))
	mux.HandleFunc("POST /api/army/{id}/recall", s.handleAgentAction((*army.Registry).Recall))
	mux.HandleFunc("POST /api/army/{id}/destroy", s.handleAgentAction((*army.Registry).Destroy))
	mux.HandleFunc("POST /api/army/{id}/execute", s.handleAgentExecute)
	mux.HandleFunc("POST /api/army/{id}/report", s.handleAgentReport)
	mux.HandleFunc("POST /api/shop/buy", s.handleShopBuy)
	mux.HandleFunc("POST /api/skills/cast", s.handleSkillCast)

	s.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      limitMiddleware(s.limiter, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the routed handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start begins serving in a goroutine and launches the limiter sweep.
func (s *Server) Start() {
	slog.Info("http api starting", "addr", s.srv.Addr)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()
	go s.sweepLoop()
}

func (s *Server) sweepLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.limiter.Sweep(time.Hour)
		}
	}
}

// Shutdown stops accepting requests and drains in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.stopCh)
	return s.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encode failed", "error", err)
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// errorStatus maps subsystem sentinels onto HTTP statuses. Unknown errors
// are internal.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, quest.ErrQuestNotActive),
		errors.Is(err, army.ErrAgentState),
		errors.Is(err, shop.ErrAlreadyOwned),
		errors.Is(err, skill.ErrOnCooldown):
		return http.StatusConflict
	case errors.Is(err, army.ErrAgentNotFound),
		errors.Is(err, army.ErrUnknownRank),
		errors.Is(err, shop.ErrUnknownItem),
		errors.Is(err, skill.ErrUnknownSkill):
		return http.StatusNotFound
	case errors.Is(err, army.ErrLevelTooLow),
		errors.Is(err, army.ErrArmyCapacity),
		errors.Is(err, shop.ErrLevelTooLow),
		errors.Is(err, skill.ErrLevelTooLow):
		return http.StatusForbidden
	case errors.Is(err, shop.ErrInsufficientGold):
		return http.StatusPaymentRequired
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	var rec types.ContextRecord
	if !readJSON(w, r, &rec) {
		return
	}
	if rec.Category == "" {
		http.Error(w, "category is required", http.StatusBadRequest)
		return
	}
	if rec.FocusScore < 0 || rec.FocusScore > 1 {
		http.Error(w, "focus_score must be in [0,1]", http.StatusBadRequest)
		return
	}
	s.eng.IngestContext(rec)
	writeJSON(w, map[string]bool{"accepted": true})
}

func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request) {
	var ev types.WindowEvent
	if !readJSON(w, r, &ev) {
		return
	}
	if ev.Window == "" {
		http.Error(w, "window is required", http.StatusBadRequest)
		return
	}
	s.eng.IngestWindow(ev)
	writeJSON(w, map[string]bool{"accepted": true})
}

func (s *Server) handleMotive(w http.ResponseWriter, r *http.Request) {
	var info types.MotiveInfo
	if !readJSON(w, r, &info) {
		return
	}
	s.eng.IngestMotive(info)
	writeJSON(w, map[string]bool{"accepted": true})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.eng.Status())
}

func (s *Server) handleQuests(w http.ResponseWriter, r *http.Request) {
	quests := s.eng.Quests.Active()
	if quests == nil {
		quests = []quest.Quest{}
	}
	writeJSON(w, quests)
}

func (s *Server) handleQuestComplete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.eng.CompleteQuest(id); err != nil {
		writeError(w, err)
		return
	}
	q, _ := s.eng.Quests.Get(id)
	writeJSON(w, q)
}

func (s *Server) handleArmy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.eng.Army.Overview())
}

func (s *Server) handleArmyTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.eng.Army.TemplateOptions(s.eng.Players.Level()))
}

func (s *Server) handleArmyExtract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TemplateID string `json:"template_id"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	agent, err := s.eng.ExtractAgent(req.TemplateID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, agent)
}

// handleAgentAction adapts the uniform registry operations (deploy, recall,
// destroy) into handlers.
func (s *Server) handleAgentAction(op func(*army.Registry, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := op(s.eng.Army, id); err != nil {
			writeError(w, err)
			return
		}
		agent, _ := s.eng.Army.Get(id)
		writeJSON(w, agent)
	}
}

func (s *Server) handleAgentExecute(w http.ResponseWriter, r *http.Request) {
	result, err := s.eng.Army.Execute(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, result)
}

func (s *Server) handleAgentReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Success bool `json:"success"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	id := r.PathValue("id")
	if err := s.eng.Army.ReportResult(id, req.Success); err != nil {
		writeError(w, err)
		return
	}
	agent, _ := s.eng.Army.Get(id)
	writeJSON(w, agent)
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.eng.Achievements.All())
}

func (s *Server) handleShop(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"gold":  s.eng.Shop.Gold(),
		"items": s.eng.Shop.Items(s.eng.Players.Level()),
	})
}

func (s *Server) handleShopBuy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemID string `json:"item_id"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	receipt, err := s.eng.PurchaseItem(req.ItemID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, receipt)
}

func (s *Server) handleSkills(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.eng.Skills.Available(s.eng.Players.Level()))
}

func (s *Server) handleSkillCast(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SkillID string `json:"skill_id"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	cast, err := s.eng.CastSkill(req.SkillID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, cast)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	notes := s.eng.Notifier.Drain()
	if notes == nil {
		notes = []types.Notification{}
	}
	writeJSON(w, notes)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.eng.Reports == nil {
		http.Error(w, "reporting requires persistent storage", http.StatusServiceUnavailable)
		return
	}
	switch period := r.URL.Query().Get("period"); period {
	case "", "daily":
		rep, err := s.eng.Reports.Daily()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, rep)
	case "weekly":
		rep, err := s.eng.Reports.Weekly()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, rep)
	default:
		http.Error(w, "period must be daily or weekly", http.StatusBadRequest)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	typ := event.Type(r.URL.Query().Get("type"))
	events := s.eng.Bus().History(typ, limit)
	if events == nil {
		events = []event.Event{}
	}
	writeJSON(w, events)
}
