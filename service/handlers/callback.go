package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sokoflow/service-storefront/service/events"
	"github.com/sokoflow/service-storefront/service/models"
)

// StkCallbackHandler receives the gateway's settlement result. The gateway
// retries on non-2xx, so the callback is acknowledged immediately and
// processed in the background through the event system.
func (api *ApiServer) StkCallbackHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Invalid request method", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := api.Service.Log(ctx).WithField("type", "StkCallbackHandler")

	var envelope models.STKCallbackEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		logger.WithError(err).Error("failed to decode callback request")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	callback := envelope.Body.StkCallback
	if callback.CheckoutRequestID == "" {
		logger.Error("missing checkout request id in callback")
		http.Error(w, "Missing required fields in callback", http.StatusBadRequest)
		return
	}

	logger = logger.WithField("checkoutRequestId", callback.CheckoutRequestID).
		WithField("resultCode", callback.ResultCode)
	logger.Info("received gateway callback")

	bgCtx := context.Background()
	go func(callbackData models.STKCallback) {
		gLogger := api.Service.Log(bgCtx).WithField("type", "CallbackProcessing").
			WithField("checkoutRequestId", callbackData.CheckoutRequestID)

		err := api.Emitter.Emit(bgCtx, (&events.MpesaCallbackReceive{}).Name(), &callbackData)
		if err != nil {
			gLogger.WithError(err).Error("failed to emit callback event")
			return
		}
		gLogger.Info("callback event queued")
	}(callback)

	writeJSON(w, http.StatusOK, map[string]any{
		"ResultCode": 0,
		"ResultDesc": "Callback received successfully",
	})
}
