package transport

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/starregistry/internal/ledger"
	"github.com/goodnatureofminers/starregistry/internal/model"
	"github.com/goodnatureofminers/starregistry/pkg/jsonx"
)

const maxRequestBytes = 1 << 20

// Handler routes REST requests to the ledger and the ownership service.
type Handler struct {
	logger    *zap.Logger
	ledger    Ledger
	registrar Registrar
	metrics   Metrics
	router    *mux.Router
}

// NewHandler builds the router.
func NewHandler(l Ledger, registrar Registrar, metrics Metrics, logger *zap.Logger) (*Handler, error) {
	if l == nil {
		return nil, errors.New("transport ledger is required")
	}
	if registrar == nil {
		return nil, errors.New("transport registrar is required")
	}
	if metrics == nil {
		return nil, errors.New("transport metrics is required")
	}

	h := &Handler{
		logger:    logger.Named("transport"),
		ledger:    l,
		registrar: registrar,
		metrics:   metrics,
		router:    mux.NewRouter(),
	}
	h.setupRoutes()
	return h, nil
}

func (h *Handler) setupRoutes() {
	h.router.Use(h.observe)

	h.router.HandleFunc("/block/height/{height}", h.getBlockByHeight).Methods(http.MethodGet)
	h.router.HandleFunc("/block/hash/{hash}", h.getBlockByHash).Methods(http.MethodGet)
	h.router.HandleFunc("/blocks/{address}", h.getStarsByAddress).Methods(http.MethodGet)
	h.router.HandleFunc("/chain/height", h.getChainHeight).Methods(http.MethodGet)
	h.router.HandleFunc("/chain/export", h.exportChain).Methods(http.MethodGet)
	h.router.HandleFunc("/validateChain", h.validateChain).Methods(http.MethodGet)

	h.router.HandleFunc("/requestValidation", h.requestValidation).Methods(http.MethodPost)
	h.router.HandleFunc("/submitstar", h.submitStar).Methods(http.MethodPost)
}

// Router returns the configured router.
func (h *Handler) Router() *mux.Router {
	return h.router
}

func (h *Handler) getBlockByHeight(w http.ResponseWriter, r *http.Request) {
	height, err := strconv.ParseInt(mux.Vars(r)["height"], 10, 64)
	if err != nil {
		h.writeError(w, r, errBadRequest("height must be an integer"))
		return
	}

	block, err := h.ledger.BlockByHeight(height)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newBlockView(block))
}

func (h *Handler) getBlockByHash(w http.ResponseWriter, r *http.Request) {
	block, err := h.ledger.BlockByHash(mux.Vars(r)["hash"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newBlockView(block))
}

func (h *Handler) getStarsByAddress(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.ledger.ClaimsByAddress(mux.Vars(r)["address"]))
}

func (h *Handler) getChainHeight(w http.ResponseWriter, r *http.Request) {
	height, err := h.ledger.Height()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, heightResponse{Height: height})
}

func (h *Handler) exportChain(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.ledger.Export())
}

func (h *Handler) validateChain(w http.ResponseWriter, _ *http.Request) {
	issues := h.ledger.Validate()
	if issues == nil {
		issues = []ledger.Issue{}
	}
	h.writeJSON(w, http.StatusOK, validationResponse{Errors: issues})
}

func (h *Handler) requestValidation(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Address == "" {
		h.writeError(w, r, errBadRequest("address is required"))
		return
	}

	h.writeJSON(w, http.StatusOK, challengeResponse{Message: h.registrar.RequestChallenge(req.Address)})
}

func (h *Handler) submitStar(w http.ResponseWriter, r *http.Request) {
	var req submitStarRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Address == "" || req.Message == "" || req.Signature == "" {
		h.writeError(w, r, errBadRequest("address, message and signature are required"))
		return
	}

	block, err := h.registrar.SubmitClaim(req.Address, req.Message, req.Signature, req.Star)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newBlockView(block))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := jsonx.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadRequest("invalid request body")
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := jsonx.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("write response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, kind := classify(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	h.writeJSON(w, code, errorResponse{Error: kind, Message: err.Error()})
}

type (
	challengeRequest struct {
		Address string `json:"address"`
	}
	challengeResponse struct {
		Message string `json:"message"`
	}
	submitStarRequest struct {
		Address   string     `json:"address"`
		Message   string     `json:"message"`
		Signature string     `json:"signature"`
		Star      model.Star `json:"star"`
	}
	heightResponse struct {
		Height uint64 `json:"height"`
	}
	validationResponse struct {
		Errors []ledger.Issue `json:"errors"`
	}
	errorResponse struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
)

// blockView is a block with its body decoded for display.
type blockView struct {
	Height            uint64      `json:"height"`
	Time              int64       `json:"time"`
	PreviousBlockHash string      `json:"previousBlockHash,omitempty"`
	Hash              string      `json:"hash"`
	Body              *model.Body `json:"body,omitempty"`
	RawBody           []byte      `json:"rawBody,omitempty"`
}

func newBlockView(b model.Block) blockView {
	view := blockView{
		Height:            b.Height,
		Time:              b.Timestamp,
		PreviousBlockHash: b.PreviousHash,
		Hash:              b.Hash,
	}
	body, err := ledger.DecodeBody(b.Body)
	if err != nil {
		view.RawBody = b.Body
		return view
	}
	view.Body = &body
	return view
}
