package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sokoflow/service-storefront/service/business"
)

// CheckoutHandler is the server side action boundary for the storefront's
// pay button. Business level failures come back as {success:false, error}
// with a 200, only infrastructure faults surface as 5xx.
func (api *ApiServer) CheckoutHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var request business.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if request.CartID == "" {
		writeError(w, http.StatusBadRequest, "cartId is required")
		return
	}

	result, err := api.Checkout.InitiatePayment(ctx, request)
	if err != nil {
		api.Service.Log(ctx).WithError(err).Error("checkout failed unexpectedly")
		writeError(w, http.StatusInternalServerError, "could not process checkout")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
