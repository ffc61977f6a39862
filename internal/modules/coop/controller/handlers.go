package controller

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"kandang-monitor/internal/modules/coop/service"
	"kandang-monitor/internal/types"
	"kandang-monitor/internal/utils"
)

const maxCommandBody = 1 << 10

func (c *coopControllerImpl) handleTemp(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.service.Snapshot())
}

func (c *coopControllerImpl) handleHistory(w http.ResponseWriter, r *http.Request) {
	h, err := c.service.History(r.Context())
	if err != nil {
		slog.Error("temp history failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	utils.WriteJSON(w, http.StatusOK, h)
}

func (c *coopControllerImpl) handleKandang(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.service.Tally(r.Context()))
}

func (c *coopControllerImpl) handleStatus(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.service.Status())
}

func (c *coopControllerImpl) handleDeviceStatus(w http.ResponseWriter, r *http.Request) {
	device := r.PathValue("device")
	status, err := c.service.DeviceStatus(device)
	if err != nil {
		utils.WriteControllerError(w, http.StatusNotFound, "Device not found")
		return
	}
	utils.WriteJSON(w, http.StatusOK, types.DeviceStatus{Device: device, Status: status})
}

func (c *coopControllerImpl) handleSetDevice(w http.ResponseWriter, r *http.Request) {
	device := r.PathValue("device")

	var cmd types.DeviceCommand
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommandBody)).Decode(&cmd); err != nil {
		utils.WriteControllerError(w, http.StatusBadRequest, "Invalid device or action")
		return
	}

	status, err := c.service.SetDevice(r.Context(), device, cmd.Action)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCommand) {
			utils.WriteControllerError(w, http.StatusBadRequest, "Invalid device or action")
			return
		}
		slog.Error("set device failed", "device", device, "action", cmd.Action, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to set device")
		return
	}
	slog.Info("device set", "device", device, "status", status)
	utils.WriteJSON(w, http.StatusOK, types.DeviceStatus{Device: device, Status: status})
}
