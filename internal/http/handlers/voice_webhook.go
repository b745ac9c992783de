package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/wolfman30/clinic-voice-agent/internal/callflow"
	"github.com/wolfman30/clinic-voice-agent/pkg/logging"
)

// VoiceWebhookHandler receives one dialogue turn per request from the
// telephony platform and replies with what the agent should say.
type VoiceWebhookHandler struct {
	engine *callflow.Engine
	logger *logging.Logger
}

// NewVoiceWebhookHandler creates a voice webhook handler.
func NewVoiceWebhookHandler(engine *callflow.Engine, logger *logging.Logger) *VoiceWebhookHandler {
	if engine == nil {
		panic("handlers: callflow engine cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &VoiceWebhookHandler{engine: engine, logger: logger}
}

// TurnRequest is one caller utterance as delivered by the telephony platform.
type TurnRequest struct {
	CallID      string `json:"call_id"`
	Utterance   string `json:"utterance"`
	IsCallStart bool   `json:"is_call_start"`
	IsCallEnd   bool   `json:"is_call_end"`
}

// TurnResponse tells the platform what to speak and whether to hang up.
type TurnResponse struct {
	Prompt        string `json:"prompt"`
	State         string `json:"state"`
	ShouldEndCall bool   `json:"should_end_call"`
}

// HandleTurn processes POST /webhooks/voice/turn.
func (h *VoiceWebhookHandler) HandleTurn(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.engine.HandleTurn(r.Context(), callflow.Turn{
		CallID:      req.CallID,
		Utterance:   req.Utterance,
		IsCallStart: req.IsCallStart,
		IsCallEnd:   req.IsCallEnd,
	})
	if err != nil {
		if errors.Is(err, callflow.ErrMissingCallID) {
			http.Error(w, "call_id is required", http.StatusBadRequest)
			return
		}
		h.logger.Error("turn processing failed", "call_id", req.CallID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(TurnResponse{
		Prompt:        result.Prompt,
		State:         string(result.State),
		ShouldEndCall: result.ShouldEndCall,
	}); err != nil {
		h.logger.Error("failed to encode turn response", "error", err)
	}
}

// HealthCheck reports service liveness.
func (h *VoiceWebhookHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
