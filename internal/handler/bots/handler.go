// Package bots exposes the Bot settings resource over REST, Rails-style:
// index, create, show, upsert, patch, destroy.
package bots

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/go-chi/chi/v5"

	"github.com/nmoralesv/horasbot/internal/model/bot"
	botstore "github.com/nmoralesv/horasbot/internal/repository/bots"
	"github.com/nmoralesv/horasbot/pkg/utils"
)

// Handler serves the bot CRUD endpoints.
type Handler struct {
	store botstore.Store
}

// New creates the bots handler.
func New(store botstore.Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes mounts the resource routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleIndex)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleShow)
	r.Put("/{id}", h.handleUpsert)
	r.Patch("/{id}", h.handlePatch)
	r.Delete("/{id}", h.handleDestroy)
}

type botPayload struct {
	Name   string `json:"name"`
	Info   string `json:"info"`
	Active *bool  `json:"active"`
}

func (p botPayload) toBot() bot.Bot {
	b := bot.Bot{Name: p.Name, Info: p.Info, Active: true}
	if p.Active != nil {
		b.Active = *p.Active
	}
	return b
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "listing bots failed")
		return
	}
	utils.RespondJSON(w, http.StatusOK, list)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload botPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.store.Create(r.Context(), payload.toBot())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "creating bot failed")
		return
	}
	utils.RespondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleShow(w http.ResponseWriter, r *http.Request) {
	b, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, b)
}

func (h *Handler) handleUpsert(w http.ResponseWriter, r *http.Request) {
	var payload botPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	b := payload.toBot()
	b.ID = chi.URLParam(r, "id")

	stored, err := h.store.Upsert(r.Context(), b)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "upserting bot failed")
		return
	}
	utils.RespondJSON(w, http.StatusOK, stored)
}

// handlePatch applies an RFC 6902 JSON Patch to the stored document.
func (h *Handler) handlePatch(w http.ResponseWriter, r *http.Request) {
	patchBody, err := io.ReadAll(r.Body)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "cannot read request body")
		return
	}

	patch, err := jsonpatch.DecodePatch(patchBody)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid json patch")
		return
	}

	current, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	doc, err := json.Marshal(current)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "encoding bot failed")
		return
	}

	patched, err := patch.Apply(doc)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "patch does not apply")
		return
	}

	var next bot.Bot
	if err := json.Unmarshal(patched, &next); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "patched document is not a bot")
		return
	}
	// Identity and timestamps are server-owned.
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt

	stored, err := h.store.Update(r.Context(), next)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, stored)
}

func (h *Handler) handleDestroy(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, botstore.ErrNotFound) {
		utils.RespondError(w, http.StatusNotFound, "bot not found")
		return
	}
	utils.RespondError(w, http.StatusInternalServerError, "bot store failure")
}
