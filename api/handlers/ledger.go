package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	errorsmod "cosmossdk.io/errors"
	"github.com/gorilla/mux"

	"github.com/openalpha/stake-ledger/api/middleware"
	apitypes "github.com/openalpha/stake-ledger/api/types"
	"github.com/openalpha/stake-ledger/x/stakepool/types"
)

// Ledger is the ledger surface served over HTTP
type Ledger interface {
	CreatePool(msg *types.MsgCreatePool) (*types.MsgCreatePoolResponse, error)
	Stake(msg *types.MsgStake) (*types.MsgStakeResponse, error)
	Claim(msg *types.MsgClaim) (*types.MsgClaimResponse, error)
	StakeMore(msg *types.MsgStakeMore) (*types.MsgStakeMoreResponse, error)
	Unstake(msg *types.MsgUnstake) (*types.MsgUnstakeResponse, error)
	Spend(msg *types.MsgSpend) (*types.MsgSpendResponse, error)
	SetRate(msg *types.MsgSetRate) (*types.MsgSetRateResponse, error)
	UpdateParams(msg *types.MsgUpdateParams) (*types.MsgUpdateParamsResponse, error)
	SetPositionOwner(msg *types.MsgSetPositionOwner) (*types.MsgSetPositionOwnerResponse, error)
	SetPositionStakedTokens(msg *types.MsgSetPositionStakedTokens) (*types.MsgSetPositionStakedTokensResponse, error)
	SetPositionLockUntil(msg *types.MsgSetPositionLockUntil) (*types.MsgSetPositionLockUntilResponse, error)
	SetPositionActive(msg *types.MsgSetPositionActive) (*types.MsgSetPositionActiveResponse, error)
	SetPositionPool(msg *types.MsgSetPositionPool) (*types.MsgSetPositionPoolResponse, error)
	Approve(req *apitypes.ApproveRequest) (*apitypes.EmptyResponse, error)
	Mint(req *apitypes.MintRequest) (*apitypes.EmptyResponse, error)

	Params() (types.Params, error)
	Rate() (*apitypes.RateResponse, error)
	Pool(poolID uint64) (*types.Pool, error)
	Pools(offset, limit uint64) (*apitypes.PoolsResponse, error)
	Position(positionID uint64) (*types.Position, error)
	Positions(offset, limit uint64) (*apitypes.PositionsResponse, error)
	PositionsByOwner(owner string) (*apitypes.PositionsResponse, error)
	ActivePosition(owner string, poolID uint64) (*types.Position, error)
	PendingReward(positionID uint64) (types.RewardResult, error)
	UnlockSchedule(from, to int64, limit int) (*apitypes.ScheduleResponse, error)
	AuditLog(from uint64) (*apitypes.AuditResponse, error)
	Balances(address string) (*apitypes.BalanceResponse, error)
}

// LedgerHandler serves the ledger routes
type LedgerHandler struct {
	ledger Ledger
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledger Ledger) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// RegisterRoutes registers ledger routes
func (h *LedgerHandler) RegisterRoutes(r *mux.Router) {
	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/params", h.GetParams).Methods(http.MethodGet)
	v1.HandleFunc("/params", h.UpdateParams).Methods(http.MethodPost)

	v1.HandleFunc("/pools", h.ListPools).Methods(http.MethodGet)
	v1.HandleFunc("/pools", h.CreatePool).Methods(http.MethodPost)
	v1.HandleFunc("/pools/{id}", h.GetPool).Methods(http.MethodGet)

	v1.HandleFunc("/positions", h.ListPositions).Methods(http.MethodGet)
	v1.HandleFunc("/positions/{id}", h.GetPosition).Methods(http.MethodGet)
	v1.HandleFunc("/positions/{id}/reward", h.GetPendingReward).Methods(http.MethodGet)
	v1.HandleFunc("/positions/{id}/claim", h.Claim).Methods(http.MethodPost)
	v1.HandleFunc("/positions/{id}/stake-more", h.StakeMore).Methods(http.MethodPost)
	v1.HandleFunc("/positions/{id}/unstake", h.Unstake).Methods(http.MethodPost)
	v1.HandleFunc("/positions/{id}/spend", h.Spend).Methods(http.MethodPost)
	v1.HandleFunc("/stake", h.Stake).Methods(http.MethodPost)

	v1.HandleFunc("/owners/{owner}/positions", h.GetOwnerPositions).Methods(http.MethodGet)
	v1.HandleFunc("/owners/{owner}/pools/{id}/position", h.GetActivePosition).Methods(http.MethodGet)
	v1.HandleFunc("/schedule", h.GetSchedule).Methods(http.MethodGet)

	v1.HandleFunc("/oracle/rate", h.GetRate).Methods(http.MethodGet)
	v1.HandleFunc("/oracle/rate", h.SetRate).Methods(http.MethodPost)

	admin := v1.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/positions/{id}/owner", h.SetPositionOwner).Methods(http.MethodPost)
	admin.HandleFunc("/positions/{id}/staked-tokens", h.SetPositionStakedTokens).Methods(http.MethodPost)
	admin.HandleFunc("/positions/{id}/lock-until", h.SetPositionLockUntil).Methods(http.MethodPost)
	admin.HandleFunc("/positions/{id}/active", h.SetPositionActive).Methods(http.MethodPost)
	admin.HandleFunc("/positions/{id}/pool", h.SetPositionPool).Methods(http.MethodPost)
	admin.HandleFunc("/audit", h.GetAuditLog).Methods(http.MethodGet)

	v1.HandleFunc("/bank/approve", h.Approve).Methods(http.MethodPost)
	v1.HandleFunc("/bank/mint", h.Mint).Methods(http.MethodPost)
	v1.HandleFunc("/bank/{address}", h.GetBalances).Methods(http.MethodGet)
}

// ============ Pools ============

func (h *LedgerHandler) ListPools(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w)(h.ledger.Pools(offset, limit))
}

func (h *LedgerHandler) GetPool(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w)(h.ledger.Pool(id))
}

func (h *LedgerHandler) CreatePool(w http.ResponseWriter, r *http.Request) {
	var msg types.MsgCreatePool
	caller, ok := decodeWithCaller(w, r, &msg)
	if !ok {
		return
	}
	msg.Authority = caller
	respondStatus(w, http.StatusCreated)(h.ledger.CreatePool(&msg))
}

// ============ Positions ============

func (h *LedgerHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w)(h.ledger.Positions(offset, limit))
}

func (h *LedgerHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w)(h.ledger.Position(id))
}

func (h *LedgerHandler) GetPendingReward(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w)(h.ledger.PendingReward(id))
}

func (h *LedgerHandler) GetOwnerPositions(w http.ResponseWriter, r *http.Request) {
	respond(w)(h.ledger.PositionsByOwner(mux.Vars(r)["owner"]))
}

func (h *LedgerHandler) GetActivePosition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w)(h.ledger.ActivePosition(mux.Vars(r)["owner"], id))
}

func (h *LedgerHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := queryInt(q.Get("from"), 0)
	if err != nil {
		writeError(w, err)
		return
	}
	to, err := queryInt(q.Get("to"), 0)
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := queryInt(q.Get("limit"), 0)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w)(h.ledger.UnlockSchedule(from, to, int(limit)))
}

func (h *LedgerHandler) Stake(w http.ResponseWriter, r *http.Request) {
	var msg types.MsgStake
	caller, ok := decodeWithCaller(w, r, &msg)
	if !ok {
		return
	}
	msg.Owner = caller
	respondStatus(w, http.StatusCreated)(h.ledger.Stake(&msg))
}

func (h *LedgerHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var msg types.MsgClaim
	caller, id, ok := decodePositionAction(w, r, &msg)
	if !ok {
		return
	}
	msg.Owner, msg.PositionID = caller, id
	respond(w)(h.ledger.Claim(&msg))
}

func (h *LedgerHandler) StakeMore(w http.ResponseWriter, r *http.Request) {
	var msg types.MsgStakeMore
	caller, id, ok := decodePositionAction(w, r, &msg)
	if !ok {
		return
	}
	msg.Owner, msg.PositionID = caller, id
	respond(w)(h.ledger.StakeMore(&msg))
}

func (h *LedgerHandler) Unstake(w http.ResponseWriter, r *http.Request) {
	var msg types.MsgUnstake
	caller, id, ok := decodePositionAction(w, r, &msg)
	if !ok {
		return
	}
	msg.Owner, msg.PositionID = caller, id
	respond(w)(h.ledger.Unstake(&msg))
}

func (h *LedgerHandler) Spend(w http.ResponseWriter, r *http.Request) {
	var msg types.MsgSpend
	caller, id, ok := decodePositionAction(w, r, &msg)
	if !ok {
		return
	}
	msg.Owner, msg.PositionID = caller, id
	respond(w)(h.ledger.Spend(&msg))
}

// ============ Oracle and params ============

func (h *LedgerHandler) GetRate(w http.ResponseWriter, r *http.Request) {
	respond(w)(h.ledger.Rate())
}

func (h *LedgerHandler) SetRate(w http.ResponseWriter, r *http.Request) {
	var msg types.MsgSetRate
	caller, ok := decodeWithCaller(w, r, &msg)
	if !ok {
		return
	}
	msg.Authority = caller
	respond(w)(h.ledger.SetRate(&msg))
}

func (h *LedgerHandler) GetParams(w http.ResponseWriter, r *http.Request) {
	respond(w)(h.ledger.Params())
}

func (h *LedgerHandler) UpdateParams(w http.ResponseWriter, r *http.Request) {
	var msg types.MsgUpdateParams
	caller, ok := decodeWithCaller(w, r, &msg)
	if !ok {
		return
	}
	msg.Authority = caller
	respond(w)(h.ledger.UpdateParams(&msg))
}

// ============ Admin ============

func (h *LedgerHandler) SetPositionOwner(w http.ResponseWriter, r *http.Request) {
	var msg types.MsgSetPositionOwner
	caller, id, ok := decodePositionAction(w, r, &msg)
	if !ok {
		return
	}
	msg.Authority, msg.PositionID = caller, id
	respond(w)(h.ledger.SetPositionOwner(&msg))
}

func (h *LedgerHandler) SetPositionStakedTokens(w http.ResponseWriter, r *http.Request) {
	var msg types.MsgSetPositionStakedTokens
	caller, id, ok := decodePositionAction(w, r, &msg)
	if !ok {
		return
	}
	msg.Authority, msg.PositionID = caller, id
	respond(w)(h.ledger.SetPositionStakedTokens(&msg))
}

func (h *LedgerHandler) SetPositionLockUntil(w http.ResponseWriter, r *http.Request) {
	var msg types.MsgSetPositionLockUntil
	caller, id, ok := decodePositionAction(w, r, &msg)
	if !ok {
		return
	}
	msg.Authority, msg.PositionID = caller, id
	respond(w)(h.ledger.SetPositionLockUntil(&msg))
}

func (h *LedgerHandler) SetPositionActive(w http.ResponseWriter, r *http.Request) {
	var msg types.MsgSetPositionActive
	caller, id, ok := decodePositionAction(w, r, &msg)
	if !ok {
		return
	}
	msg.Authority, msg.PositionID = caller, id
	respond(w)(h.ledger.SetPositionActive(&msg))
}

func (h *LedgerHandler) SetPositionPool(w http.ResponseWriter, r *http.Request) {
	var msg types.MsgSetPositionPool
	caller, id, ok := decodePositionAction(w, r, &msg)
	if !ok {
		return
	}
	msg.Authority, msg.PositionID = caller, id
	respond(w)(h.ledger.SetPositionPool(&msg))
}

func (h *LedgerHandler) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	from, err := queryUint(r.URL.Query().Get("from"), 0)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w)(h.ledger.AuditLog(from))
}

// ============ Bank ============

func (h *LedgerHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req apitypes.ApproveRequest
	caller, ok := decodeWithCaller(w, r, &req)
	if !ok {
		return
	}
	req.Owner = caller
	respond(w)(h.ledger.Approve(&req))
}

func (h *LedgerHandler) Mint(w http.ResponseWriter, r *http.Request) {
	var req apitypes.MintRequest
	caller, ok := decodeWithCaller(w, r, &req)
	if !ok {
		return
	}
	req.Authority = caller
	respond(w)(h.ledger.Mint(&req))
}

func (h *LedgerHandler) GetBalances(w http.ResponseWriter, r *http.Request) {
	respond(w)(h.ledger.Balances(mux.Vars(r)["address"]))
}

// ============ Helpers ============

// respond writes res as JSON with status 200, or the mapped error
func respond(w http.ResponseWriter) func(res interface{}, err error) {
	return respondStatus(w, http.StatusOK)
}

func respondStatus(w http.ResponseWriter, status int) func(res interface{}, err error) {
	return func(res interface{}, err error) {
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, status, res)
	}
}

// decodeWithCaller reads the caller from the X-Caller header and decodes the body into v
func decodeWithCaller(w http.ResponseWriter, r *http.Request, v interface{}) (string, bool) {
	caller := r.Header.Get(middleware.CallerHeader)
	if caller == "" {
		writeError(w, errorsmod.Wrapf(types.ErrUnauthorized, "missing %s header", middleware.CallerHeader))
		return "", false
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(v); err != nil {
			writeJSON(w, http.StatusBadRequest, apitypes.ErrorResponse{Error: "invalid request body: " + err.Error()})
			return "", false
		}
	}
	return caller, true
}

func decodePositionAction(w http.ResponseWriter, r *http.Request, v interface{}) (string, uint64, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return "", 0, false
	}
	caller, ok := decodeWithCaller(w, r, v)
	return caller, id, ok
}

func pathID(r *http.Request, name string) (uint64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errBadRequest{msg: "invalid " + name + ": " + raw}
	}
	return id, nil
}

func pageParams(r *http.Request) (uint64, uint64, error) {
	q := r.URL.Query()
	offset, err := queryUint(q.Get("offset"), 0)
	if err != nil {
		return 0, 0, err
	}
	limit, err := queryUint(q.Get("limit"), 100)
	if err != nil {
		return 0, 0, err
	}
	return offset, limit, nil
}

func queryUint(raw string, def uint64) (uint64, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errBadRequest{msg: "invalid query parameter: " + raw}
	}
	return v, nil
}

func queryInt(raw string, def int64) (int64, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errBadRequest{msg: "invalid query parameter: " + raw}
	}
	return v, nil
}

type errBadRequest struct{ msg string }

func (e errBadRequest) Error() string { return e.msg }

// HTTPStatus maps a ledger error to an HTTP status code by its registered code
func HTTPStatus(err error) int {
	var bad errBadRequest
	if errors.As(err, &bad) {
		return http.StatusBadRequest
	}

	codespace, code, _ := errorsmod.ABCIInfo(err, false)
	if codespace != types.ModuleName {
		return http.StatusInternalServerError
	}
	switch code {
	case types.ErrUnauthorized.ABCICode():
		return http.StatusForbidden
	case types.ErrPositionNotFound.ABCICode(), types.ErrPoolNotFound.ABCICode():
		return http.StatusNotFound
	case types.ErrInvalidAmount.ABCICode(), types.ErrInvalidPool.ABCICode(), types.ErrInvalidRate.ABCICode(),
		types.ErrInvalidClaimMode.ABCICode(), types.ErrInvalidAddress.ABCICode(), types.ErrInvalidParams.ABCICode(),
		types.ErrInvalidGenesis.ABCICode():
		return http.StatusBadRequest
	}
	// Remaining errors reject an operation the current ledger state does not allow
	return http.StatusConflict
}

func writeError(w http.ResponseWriter, err error) {
	resp := apitypes.ErrorResponse{Error: err.Error()}
	var bad errBadRequest
	if !errors.As(err, &bad) {
		resp.Codespace, resp.Code, _ = errorsmod.ABCIInfo(err, false)
	}
	writeJSON(w, HTTPStatus(err), resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteJSON writes v as a JSON response
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	writeJSON(w, status, v)
}
