package api

import (
	"encoding/hex"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"stakeforge/native/stakepool"
)

func requestIDParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return 0, false
	}
	return id, true
}

func (s *Server) poolIDParam(w http.ResponseWriter, r *http.Request) ([32]byte, bool) {
	id, err := parsePoolID(chi.URLParam(r, "poolID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return [32]byte{}, false
	}
	return id, true
}

func addressParam(w http.ResponseWriter, r *http.Request) ([20]byte, bool) {
	addr, err := parseAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return [20]byte{}, false
	}
	return addr, true
}

func (s *Server) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	var payload submitRequestPayload
	if !decodeBody(w, r, &payload) {
		return
	}
	proposer, err := parseAddress(payload.Proposer)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tag, err := parseTag(payload.Tag)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cfg, err := payload.Config.toConfig()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := s.node.SubmitRequest(proposer, tag, cfg)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, submitResponse{ID: id})
}

func (s *Server) handleListRequests(w http.ResponseWriter, _ *http.Request) {
	requests, err := s.node.GetRequests()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	views := make([]requestView, 0, len(requests))
	for _, request := range requests {
		views = append(views, requestToWire(request))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := requestIDParam(w, r)
	if !ok {
		return
	}
	request, err := s.node.GetRequest(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requestToWire(request))
}

func (s *Server) reviewHandler(review func(caller [20]byte, id uint64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := requestIDParam(w, r)
		if !ok {
			return
		}
		var payload actionPayload
		if !decodeBody(w, r, &payload) {
			return
		}
		caller, err := parseAddress(payload.Caller)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := review(caller, id); err != nil {
			writeEngineError(w, err)
			return
		}
		request, err := s.node.GetRequest(id)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, requestToWire(request))
	}
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.reviewHandler(s.node.ApproveRequest)(w, r)
}

func (s *Server) handleDeny(w http.ResponseWriter, r *http.Request) {
	s.reviewHandler(s.node.DenyRequest)(w, r)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.reviewHandler(s.node.CancelRequest)(w, r)
}

func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	id, ok := requestIDParam(w, r)
	if !ok {
		return
	}
	var payload actionPayload
	if !decodeBody(w, r, &payload) {
		return
	}
	caller, err := parseAddress(payload.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	poolID, err := s.node.DeployPool(caller, id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, deployResponse{PoolID: "0x" + hex.EncodeToString(poolID[:])})
}

func (s *Server) handleListPools(w http.ResponseWriter, _ *http.Request) {
	pools, err := s.node.GetPools()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	now := s.nowFn()
	views := make([]poolView, 0, len(pools))
	for _, pool := range pools {
		views = append(views, poolToWire(pool, now))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request) {
	id, ok := s.poolIDParam(w, r)
	if !ok {
		return
	}
	pool, err := s.node.GetPool(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, poolToWire(pool, s.nowFn()))
}

func (s *Server) stakeSelection(w http.ResponseWriter, r *http.Request) ([32]byte, [20]byte, stakepool.Selection, bool) {
	poolID, ok := s.poolIDParam(w, r)
	if !ok {
		return [32]byte{}, [20]byte{}, stakepool.Selection{}, false
	}
	var payload stakePayload
	if !decodeBody(w, r, &payload) {
		return [32]byte{}, [20]byte{}, stakepool.Selection{}, false
	}
	caller, err := parseAddress(payload.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return [32]byte{}, [20]byte{}, stakepool.Selection{}, false
	}
	amount, err := parseAmount(payload.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return [32]byte{}, [20]byte{}, stakepool.Selection{}, false
	}
	return poolID, caller, stakepool.Selection{Amount: amount, ItemIDs: payload.ItemIDs}, true
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	poolID, caller, sel, ok := s.stakeSelection(w, r)
	if !ok {
		return
	}
	if err := s.node.Stake(poolID, caller, sel); err != nil {
		writeEngineError(w, err)
		return
	}
	account, err := s.node.GetAccount(poolID, caller)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accountToWire(account))
}

func (s *Server) handleUnstake(w http.ResponseWriter, r *http.Request) {
	poolID, caller, sel, ok := s.stakeSelection(w, r)
	if !ok {
		return
	}
	if err := s.node.Unstake(poolID, caller, sel); err != nil {
		writeEngineError(w, err)
		return
	}
	account, err := s.node.GetAccount(poolID, caller)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accountToWire(account))
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	poolID, ok := s.poolIDParam(w, r)
	if !ok {
		return
	}
	var payload actionPayload
	if !decodeBody(w, r, &payload) {
		return
	}
	caller, err := parseAddress(payload.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.node.Claim(poolID, caller); err != nil {
		writeEngineError(w, err)
		return
	}
	account, err := s.node.GetAccount(poolID, caller)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accountToWire(account))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	poolID, ok := s.poolIDParam(w, r)
	if !ok {
		return
	}
	addr, ok := addressParam(w, r)
	if !ok {
		return
	}
	account, err := s.node.GetAccount(poolID, addr)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accountToWire(account))
}

func (s *Server) handlePendingRewards(w http.ResponseWriter, r *http.Request) {
	poolID, ok := s.poolIDParam(w, r)
	if !ok {
		return
	}
	addr, ok := addressParam(w, r)
	if !ok {
		return
	}
	pending, err := s.node.PendingRewards(poolID, addr)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pendingView{Pending: pending.String()})
}
